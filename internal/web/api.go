package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/mtzanidakis/feescope/internal/schedule"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
)

func (s *Server) registerAPI(mux *http.ServeMux) {
	// Analysis runs
	mux.HandleFunc("GET /api/runs", s.listRuns)
	mux.HandleFunc("POST /api/runs", s.startRun)
	mux.HandleFunc("GET /api/runs/{id}", s.getRun)
	mux.HandleFunc("GET /api/runs/{id}/report", s.getRunReport)
	mux.HandleFunc("DELETE /api/runs/{id}", s.deleteRun)

	// Blockspace data
	mux.HandleFunc("GET /api/chains", s.listChains)
	mux.HandleFunc("GET /api/chains/{chain}/timeframes", s.listChainTimeframes)

	// Schedules
	mux.HandleFunc("GET /api/schedules", s.listSchedules)
	mux.HandleFunc("POST /api/schedules", s.createSchedule)
	mux.HandleFunc("GET /api/schedules/{id}", s.getSchedule)
	mux.HandleFunc("PUT /api/schedules/{id}", s.updateSchedule)
	mux.HandleFunc("DELETE /api/schedules/{id}", s.deleteSchedule)

	// Secrets
	mux.HandleFunc("GET /api/secrets", s.listSecrets)
	mux.HandleFunc("POST /api/secrets", s.createSecret)
	mux.HandleFunc("GET /api/secrets/{id}", s.getSecret)
	mux.HandleFunc("PUT /api/secrets/{id}", s.updateSecret)
	mux.HandleFunc("DELETE /api/secrets/{id}", s.deleteSecret)

	// System
	mux.HandleFunc("GET /api/status", s.getStatus)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}

	// The full result payload stays on the detail endpoint.
	out := make([]map[string]any, 0, len(runs))
	for _, run := range runs {
		out = append(out, runSummary(run))
	}
	jsonResponse(w, out)
}

func (s *Server) startRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Chains    []string `json:"chains"`
		Timeframe string   `json:"timeframe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(body.Chains) == 0 {
		jsonError(w, "chains are required", http.StatusBadRequest)
		return
	}
	if body.Timeframe == "" {
		body.Timeframe = string(state.Timeframe7d)
	}
	if _, err := state.ParseTimeframe(body.Timeframe); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	for _, chain := range body.Chains {
		if !s.runner.Data().HasChain(chain) {
			jsonError(w, fmt.Sprintf("unknown chain: %s", chain), http.StatusBadRequest)
			return
		}
	}

	runID := s.runner.Start(body.Chains, body.Timeframe, store.RunSourceAPI)

	w.WriteHeader(http.StatusAccepted)
	jsonResponse(w, map[string]any{
		"run_id":    runID,
		"status":    store.RunStatusRunning,
		"chains":    body.Chains,
		"timeframe": body.Timeframe,
	})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, run)
}

// getRunReport returns only the analysis result of a finished run.
func (s *Server) getRunReport(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		jsonError(w, "run not found", http.StatusNotFound)
		return
	}
	if run.Status == store.RunStatusRunning {
		jsonError(w, "run still in progress", http.StatusConflict)
		return
	}
	if len(run.Result) == 0 {
		jsonError(w, "run has no report", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(run.Result)
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) listChains(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]any{"chains": s.runner.Data().Chains()})
}

func (s *Server) listChainTimeframes(w http.ResponseWriter, r *http.Request) {
	chain := r.PathValue("chain")
	timeframes, err := s.runner.Data().Timeframes(chain)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]any{"chain": chain, "timeframes": timeframes})
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules()
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if schedules == nil {
		schedules = []store.Schedule{}
	}

	out := make([]map[string]any, 0, len(schedules))
	for _, sch := range schedules {
		out = append(out, scheduleResponse(sch))
	}
	jsonResponse(w, out)
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string   `json:"name"`
		Schedule  string   `json:"schedule"`
		Chains    []string `json:"chains"`
		Timeframe string   `json:"timeframe"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.Name == "" || body.Schedule == "" || len(body.Chains) == 0 {
		jsonError(w, "name, schedule and chains are required", http.StatusBadRequest)
		return
	}
	if body.Timeframe == "" {
		body.Timeframe = string(state.Timeframe7d)
	}
	if _, err := state.ParseTimeframe(body.Timeframe); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	normalized, err := schedule.Normalize(body.Schedule)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	sch := &store.Schedule{
		ID:        uuid.NewString(),
		Name:      body.Name,
		Schedule:  normalized,
		Chains:    body.Chains,
		Timeframe: body.Timeframe,
		Status:    "active",
		NextRunAt: schedule.NextRun(normalized),
	}
	if err := s.store.SaveSchedule(sch); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, scheduleResponse(*sch))
}

func (s *Server) getSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := s.store.GetSchedule(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if sch == nil {
		jsonError(w, "schedule not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, scheduleResponse(*sch))
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.GetSchedule(r.PathValue("id"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing == nil {
		jsonError(w, "schedule not found", http.StatusNotFound)
		return
	}

	var body struct {
		Name      *string  `json:"name"`
		Schedule  *string  `json:"schedule"`
		Chains    []string `json:"chains"`
		Timeframe *string  `json:"timeframe"`
		Status    *string  `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.Name != nil {
		existing.Name = *body.Name
	}
	if body.Chains != nil {
		existing.Chains = body.Chains
	}
	if body.Timeframe != nil {
		if _, err := state.ParseTimeframe(*body.Timeframe); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		existing.Timeframe = *body.Timeframe
	}
	if body.Status != nil {
		if *body.Status != "active" && *body.Status != "paused" {
			jsonError(w, "status must be 'active' or 'paused'", http.StatusBadRequest)
			return
		}
		existing.Status = *body.Status
	}
	if body.Schedule != nil {
		normalized, err := schedule.Normalize(*body.Schedule)
		if err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		existing.Schedule = normalized
		existing.NextRunAt = schedule.NextRun(normalized)
	}

	if err := s.store.SaveSchedule(existing); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, scheduleResponse(*existing))
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSchedule(r.PathValue("id")); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"status": "deleted"})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	runs, _ := s.store.ListRuns(0)

	running, completed, failed := 0, 0, 0
	for _, run := range runs {
		switch run.Status {
		case store.RunStatusRunning:
			running++
		case store.RunStatusCompleted:
			completed++
		case store.RunStatusFailed:
			failed++
		}
	}

	schedules, _ := s.store.ListSchedules()
	activeSchedules := 0
	for _, sch := range schedules {
		if sch.Status == "active" {
			activeSchedules++
		}
	}

	jsonResponse(w, map[string]any{
		"version": s.version,
		"uptime":  formatUptime(time.Since(s.startedAt)),
		"chains":  s.runner.Data().Chains(),
		"runs": map[string]int{
			"running":   running,
			"completed": completed,
			"failed":    failed,
		},
		"active_schedules": activeSchedules,
	})
}

func runSummary(run store.Run) map[string]any {
	out := map[string]any{
		"id":         run.ID,
		"chains":     run.Chains,
		"timeframe":  run.Timeframe,
		"status":     run.Status,
		"source":     run.Source,
		"started_at": run.StartedAt,
	}
	if run.CompletedAt != nil {
		out["completed_at"] = run.CompletedAt
	}
	if len(run.Errors) > 0 {
		out["errors"] = run.Errors
	}
	return out
}

func scheduleResponse(sch store.Schedule) map[string]any {
	out := map[string]any{
		"id":          sch.ID,
		"name":        sch.Name,
		"schedule":    sch.Schedule,
		"description": schedule.Describe(sch.Schedule),
		"chains":      sch.Chains,
		"timeframe":   sch.Timeframe,
		"status":      sch.Status,
		"created_at":  sch.CreatedAt,
	}
	if sch.NextRunAt != nil {
		out["next_run_at"] = sch.NextRunAt
	}
	if sch.LastRunAt != nil {
		out["last_run_at"] = sch.LastRunAt
		out["last_status"] = sch.LastStatus
	}
	if sch.LastError != "" {
		out["last_error"] = sch.LastError
	}
	return out
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}

func jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
