package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mtzanidakis/feescope/internal/agents"
	"github.com/mtzanidakis/feescope/internal/blockspace"
	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/llm"
	"github.com/mtzanidakis/feescope/internal/natsbus"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
)

// Runner wires the agents into an engine and persists every run.
type Runner struct {
	cfg    *config.Config
	store  *store.Store
	events Publisher
	engine *Engine
	data   *blockspace.Store
}

// NewRunner loads the blockspace dataset and registers one node per task.
// The events publisher and the store are both optional.
func NewRunner(cfg *config.Config, client llm.Client, st *store.Store, events Publisher) (*Runner, error) {
	data, err := blockspace.Load(cfg.Data.BlockspacePath)
	if err != nil {
		return nil, fmt.Errorf("load blockspace data: %w", err)
	}

	registry := agents.NewRegistry(cfg, client)
	pm := agents.NewProjectManager(registry)

	nodes := map[state.Task]Node{
		state.TaskValidate:        agents.NewValidator(data).Run,
		state.TaskRoute:           pm.Route,
		state.TaskRevenueAnalysis: agents.NewRevenueAgent(registry, data).Run,
		state.TaskTrendAnalysis:   agents.NewTrendAgent(registry, cfg.Data.DatasetDir).Run,
		state.TaskInterpretTrends: pm.InterpretTrends,
		state.TaskSynthesize:      agents.NewStrategicEditor(registry).Run,
	}

	engine := NewEngine(nodes, cfg.Workflow.MaxSteps)
	if events != nil {
		engine.WithEvents(events, natsbus.TopicRunSteps)
	}

	return &Runner{
		cfg:    cfg,
		store:  st,
		events: events,
		engine: engine,
		data:   data,
	}, nil
}

// Data exposes the loaded blockspace store for chain and timeframe lookups.
func (r *Runner) Data() *blockspace.Store {
	return r.data
}

// Run executes a full analysis synchronously. The run is persisted as
// running before the first step and updated with the final outcome.
func (r *Runner) Run(ctx context.Context, chains []string, timeframe string, source string) (state.Analysis, error) {
	return r.run(ctx, uuid.NewString(), chains, timeframe, source)
}

// Start launches an analysis in the background and returns its run ID
// immediately. Progress is observable through the store and the event bus.
func (r *Runner) Start(chains []string, timeframe string, source string) string {
	runID := uuid.NewString()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := r.run(ctx, runID, chains, timeframe, source); err != nil {
			slog.Error("background run failed", "run_id", runID, "error", err)
		}
	}()
	return runID
}

func (r *Runner) run(ctx context.Context, runID string, chains []string, timeframe string, source string) (state.Analysis, error) {
	a := state.New(runID, chains, state.Timeframe(timeframe))

	if err := r.saveRun(a, store.RunStatusRunning, source); err != nil {
		return a, err
	}
	slog.Info("run started", "run_id", runID, "chains", chains, "timeframe", timeframe, "source", source)

	start := time.Now()
	final, err := r.engine.Run(ctx, a)
	if err != nil {
		// Engine errors outside the state machine still mark the run failed.
		final.Errors = append(final.Errors, err.Error())
	}

	status := store.RunStatusCompleted
	if err != nil || final.Failed() {
		status = store.RunStatusFailed
	}
	if saveErr := r.saveRun(final, status, source); saveErr != nil {
		slog.Error("persist run", "run_id", runID, "error", saveErr)
	}
	r.publishCompletion(final, status)

	slog.Info("run finished", "run_id", runID, "status", status, "duration", time.Since(start))
	return final, err
}

func (r *Runner) saveRun(a state.Analysis, status string, source string) error {
	if r.store == nil {
		return nil
	}
	rec := &store.Run{
		ID:        a.RunID,
		Chains:    a.Chains,
		Timeframe: string(a.Timeframe),
		Status:    status,
		Source:    source,
		Errors:    a.Errors,
	}
	if status != store.RunStatusRunning {
		result, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
		rec.Result = result
	}
	if err := r.store.SaveRun(rec); err != nil {
		return fmt.Errorf("save run %s: %w", a.RunID, err)
	}
	return nil
}

func (r *Runner) publishCompletion(a state.Analysis, status string) {
	if r.events == nil {
		return
	}
	ev := map[string]any{
		"run_id":    a.RunID,
		"status":    status,
		"chains":    a.Chains,
		"timeframe": a.Timeframe,
		"errors":    a.Errors,
	}
	if err := r.events.PublishJSON(natsbus.TopicRunEvents(a.RunID), ev); err != nil {
		slog.Warn("publish completion event", "run_id", a.RunID, "error", err)
	}
}
