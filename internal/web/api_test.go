package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mtzanidakis/feescope/internal/blockspace"
	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
	"github.com/mtzanidakis/feescope/internal/vault"
)

const testBlockspace = `{
  "data": {
    "chains": {
      "base": {
        "overview": {
          "types": ["gas_fees_share_usd", "gas_fees_absolute_usd", "txcount_absolute"],
          "7d": {
            "defi": {"data": [0.60, 600000, 120000]},
            "nft": {"data": [0.40, 400000, 60000]}
          }
        }
      }
    }
  }
}`

type stubRunner struct {
	data    *blockspace.Store
	started []string
}

func (r *stubRunner) Run(_ context.Context, chains []string, timeframe string, _ string) (state.Analysis, error) {
	return state.New("run-stub", chains, state.Timeframe(timeframe)), nil
}

func (r *stubRunner) Start(chains []string, timeframe string, _ string) string {
	r.started = append(r.started, strings.Join(chains, ",")+":"+timeframe)
	return "run-stub"
}

func (r *stubRunner) Data() *blockspace.Store {
	return r.data
}

func newTestServer(t *testing.T) (*Server, *stubRunner, *http.ServeMux) {
	t.Helper()
	dir := t.TempDir()

	path := filepath.Join(dir, "blockspace.json")
	if err := os.WriteFile(path, []byte(testBlockspace), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := blockspace.Load(path)
	if err != nil {
		t.Fatalf("load blockspace: %v", err)
	}

	st, err := store.New(config.StoreConfig{Path: filepath.Join(dir, "test.db")})
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	runner := &stubRunner{data: data}
	srv := NewServer(st, nil, runner, config.WebConfig{Port: 0}, vault.New("test"), "test")

	mux := http.NewServeMux()
	srv.registerAPI(mux)
	return srv, runner, mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestStartRun(t *testing.T) {
	_, runner, mux := newTestServer(t)

	w := doJSON(t, mux, "POST", "/api/runs", `{"chains":["base"],"timeframe":"7d"}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["run_id"] != "run-stub" {
		t.Errorf("expected run id, got %v", resp["run_id"])
	}
	if len(runner.started) != 1 || runner.started[0] != "base:7d" {
		t.Errorf("unexpected started runs: %v", runner.started)
	}
}

func TestStartRunValidation(t *testing.T) {
	_, _, mux := newTestServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"no chains", `{"timeframe":"7d"}`},
		{"unknown chain", `{"chains":["solana"]}`},
		{"bad timeframe", `{"chains":["base"],"timeframe":"14d"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, mux, "POST", "/api/runs", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestStartRunDefaultsTimeframe(t *testing.T) {
	_, runner, mux := newTestServer(t)

	w := doJSON(t, mux, "POST", "/api/runs", `{"chains":["base"]}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if runner.started[0] != "base:7d" {
		t.Errorf("expected 7d default, got %v", runner.started)
	}
}

func TestGetRunAndReport(t *testing.T) {
	srv, _, mux := newTestServer(t)

	err := srv.store.SaveRun(&store.Run{
		ID: "r1", Chains: []string{"base"}, Timeframe: "7d",
		Status: store.RunStatusCompleted, Source: store.RunSourceAPI,
		Result: json.RawMessage(`{"run_id":"r1"}`),
	})
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	w := doJSON(t, mux, "GET", "/api/runs/r1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = doJSON(t, mux, "GET", "/api/runs/r1/report", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"run_id":"r1"`) {
		t.Errorf("expected raw report, got %s", w.Body.String())
	}

	w = doJSON(t, mux, "GET", "/api/runs/missing", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetRunReportInProgress(t *testing.T) {
	srv, _, mux := newTestServer(t)

	err := srv.store.SaveRun(&store.Run{
		ID: "r1", Chains: []string{"base"}, Timeframe: "7d",
		Status: store.RunStatusRunning, Source: store.RunSourceAPI,
	})
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	w := doJSON(t, mux, "GET", "/api/runs/r1/report", "")
	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestListChains(t *testing.T) {
	_, _, mux := newTestServer(t)

	w := doJSON(t, mux, "GET", "/api/chains", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "base") {
		t.Errorf("expected base in chains, got %s", w.Body.String())
	}

	w = doJSON(t, mux, "GET", "/api/chains/base/timeframes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "7d") {
		t.Errorf("expected 7d timeframe, got %s", w.Body.String())
	}

	w = doJSON(t, mux, "GET", "/api/chains/solana/timeframes", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown chain, got %d", w.Code)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	_, _, mux := newTestServer(t)

	w := doJSON(t, mux, "POST", "/api/schedules",
		`{"name":"weekly","schedule":"0 9 * * 1","chains":["base"],"timeframe":"7d"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected schedule id")
	}
	if created["next_run_at"] == nil {
		t.Error("expected computed next run")
	}

	// Pause it.
	w = doJSON(t, mux, "PUT", "/api/schedules/"+id, `{"status":"paused"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var updated map[string]any
	json.Unmarshal(w.Body.Bytes(), &updated)
	if updated["status"] != "paused" {
		t.Errorf("expected paused, got %v", updated["status"])
	}

	w = doJSON(t, mux, "GET", "/api/schedules", "")
	if !strings.Contains(w.Body.String(), "weekly") {
		t.Errorf("expected schedule in list, got %s", w.Body.String())
	}

	w = doJSON(t, mux, "DELETE", "/api/schedules/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w = doJSON(t, mux, "GET", "/api/schedules/"+id, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestScheduleValidation(t *testing.T) {
	_, _, mux := newTestServer(t)

	w := doJSON(t, mux, "POST", "/api/schedules", `{"name":"x","schedule":"not a cron","chains":["base"]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid schedule, got %d", w.Code)
	}

	w = doJSON(t, mux, "POST", "/api/schedules", `{"schedule":"0 9 * * 1"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", w.Code)
	}
}

func TestSecretLifecycle(t *testing.T) {
	_, _, mux := newTestServer(t)

	w := doJSON(t, mux, "POST", "/api/secrets",
		`{"name":"openai_api_key","description":"llm key","value":"sk-test"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var created map[string]any
	json.Unmarshal(w.Body.Bytes(), &created)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("expected secret id")
	}
	if strings.Contains(w.Body.String(), "sk-test") {
		t.Error("plaintext value leaked in response")
	}

	w = doJSON(t, mux, "GET", "/api/secrets/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "sk-test") {
		t.Error("plaintext value leaked in detail response")
	}

	w = doJSON(t, mux, "DELETE", "/api/secrets/"+id, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	_, _, mux := newTestServer(t)

	w := doJSON(t, mux, "GET", "/api/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var status map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["version"] != "test" {
		t.Errorf("expected version test, got %v", status["version"])
	}
	chains, _ := status["chains"].([]any)
	if len(chains) != 1 {
		t.Errorf("expected 1 chain, got %v", status["chains"])
	}
}
