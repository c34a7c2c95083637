package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want map[string]string
	}{
		{
			name: "empty",
			args: []string{},
			want: map[string]string{},
		},
		{
			name: "single flag",
			args: []string{"--chains", "base"},
			want: map[string]string{"chains": "base"},
		},
		{
			name: "multiple flags",
			args: []string{"--chains", "base,mantle", "--timeframe", "7d"},
			want: map[string]string{"chains": "base,mantle", "timeframe": "7d"},
		},
		{
			name: "flag without value is ignored",
			args: []string{"--chains"},
			want: map[string]string{},
		},
		{
			name: "non-flag args ignored",
			args: []string{"positional", "--chains", "base"},
			want: map[string]string{"chains": "base"},
		},
		{
			name: "short prefix not treated as flag",
			args: []string{"-c", "base"},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseArgs(tt.args)
			if len(got) != len(tt.want) {
				t.Errorf("parseArgs(%v) returned %d entries, want %d", tt.args, len(got), len(tt.want))
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("parseArgs(%v)[%q] = %q, want %q", tt.args, k, got[k], v)
				}
			}
		})
	}
}

func testClient(srv *httptest.Server, password string) *client {
	return &client{
		base:     srv.URL,
		password: password,
		http:     &http.Client{Timeout: 5 * time.Second},
	}
}

func TestClientStartsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/api/runs" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Chains    []string `json:"chains"`
			Timeframe string   `json:"timeframe"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(body.Chains) != 2 || body.Chains[0] != "base" {
			t.Errorf("unexpected chains: %v", body.Chains)
		}
		if body.Timeframe != "30d" {
			t.Errorf("expected 30d, got %s", body.Timeframe)
		}
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"run_id": "run-1", "status": "running", "timeframe": "30d"})
	}))
	defer srv.Close()

	err := cmdRun(testClient(srv, ""), map[string]string{"chains": "base,mantle", "timeframe": "30d"})
	if err != nil {
		t.Fatalf("cmdRun: %v", err)
	}
}

func TestClientSendsBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pass, ok := r.BasicAuth()
		if !ok || pass != "hunter2" {
			t.Error("expected basic auth with password")
		}
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	if err := cmdRuns(testClient(srv, "hunter2"), map[string]string{}); err != nil {
		t.Fatalf("cmdRuns: %v", err)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown chain: solana"})
	}))
	defer srv.Close()

	err := cmdRun(testClient(srv, ""), map[string]string{"chains": "solana"})
	if err == nil || err.Error() != "unknown chain: solana" {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestClientValidatesFlags(t *testing.T) {
	c := testClient(httptest.NewServer(http.NotFoundHandler()), "")

	if err := cmdRun(c, map[string]string{}); err == nil {
		t.Error("expected error without --chains")
	}
	if err := cmdReport(c, map[string]string{}); err == nil {
		t.Error("expected error without --id")
	}
	if err := cmdScheduleDelete(c, map[string]string{}); err == nil {
		t.Error("expected error without --id")
	}
	if err := cmdScheduleCreate(c, map[string]string{"name": "x"}); err == nil {
		t.Error("expected error without --schedule and --chains")
	}
	if err := cmdRuns(c, map[string]string{"limit": "abc"}); err == nil {
		t.Error("expected error for non-numeric --limit")
	}
}

func TestClientSchedules(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == "POST" && r.URL.Path == "/api/schedules":
			json.NewEncoder(w).Encode(map[string]string{"id": "sched-1"})
		case r.Method == "DELETE" && r.URL.Path == "/api/schedules/sched-1":
			json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := testClient(srv, "")
	err := cmdScheduleCreate(c, map[string]string{
		"name": "weekly", "schedule": "0 9 * * 1", "chains": "base",
	})
	if err != nil {
		t.Fatalf("schedule create: %v", err)
	}
	if err := cmdScheduleDelete(c, map[string]string{"id": "sched-1"}); err != nil {
		t.Fatalf("schedule delete: %v", err)
	}
}
