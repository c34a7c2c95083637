package agents

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mtzanidakis/feescope/internal/blockspace"
	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/llm"
)

const testBlockspace = `{
  "data": {
    "chains": {
      "base": {
        "overview": {
          "types": ["gas_fees_share_usd", "gas_fees_absolute_usd", "txcount_absolute"],
          "7d": {
            "defi": {
              "data": [0.50, 500000, 120000],
              "contracts": {
                "types": ["project_name", "address", "name", "main_category_key", "sub_category_key", "chain", "gas_fees_absolute_eth", "gas_fees_absolute_usd", "txcount_absolute"],
                "data": [
                  ["uniswap", "0xaaa", "Uniswap V3", "defi", "dex", "base", 12.5, 300000, 80000],
                  ["aerodrome", "0xbbb", "Aerodrome", "defi", "dex", "base", 6.0, 150000, 40000]
                ]
              }
            },
            "nft": {
              "data": [0.30, 300000, 60000],
              "contracts": {
                "types": ["project_name", "address", "name", "main_category_key", "sub_category_key", "chain", "gas_fees_absolute_eth", "gas_fees_absolute_usd", "txcount_absolute"],
                "data": [
                  ["zora", "0xccc", "Zora", "nft", "marketplace", "base", 2.0, 50000, 15000]
                ]
              }
            },
            "unlabeled": {
              "data": [0.20, 200000, 40000]
            }
          }
        }
      }
    }
  }
}`

func testStore(t *testing.T) *blockspace.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "blockspace.json")
	if err := os.WriteFile(path, []byte(testBlockspace), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := blockspace.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{Model: "gpt-4o", Temperature: 0.1},
	}
}

// stubLLM returns canned content per call in order, then repeats the last.
type stubLLM struct {
	responses []string
	requests  []llm.Request
	err       error
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (llm.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return llm.Response{}, s.err
	}
	i := len(s.requests) - 1
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	return llm.Response{Content: s.responses[i], Model: req.Model}, nil
}

func TestRegistryComplete(t *testing.T) {
	stub := &stubLLM{responses: []string{"analysis"}}
	cfg := testConfig()
	cfg.Agents = map[string]config.AgentSettings{
		RoleStrategicEditor: {Model: "gpt-4.1"},
	}
	r := NewRegistry(cfg, stub)

	content, err := r.Complete(context.Background(), RoleStrategicEditor, "sys", "prompt")
	if err != nil {
		t.Fatal(err)
	}
	if content != "analysis" {
		t.Errorf("expected analysis, got %s", content)
	}
	if stub.requests[0].Model != "gpt-4.1" {
		t.Errorf("expected role model override, got %s", stub.requests[0].Model)
	}
	if stub.requests[0].System != "sys" {
		t.Errorf("expected system prompt, got %s", stub.requests[0].System)
	}
}

func TestRegistryDisabled(t *testing.T) {
	r := NewRegistry(testConfig(), nil)
	if r.Enabled() {
		t.Error("expected disabled registry without client")
	}
	if _, err := r.Complete(context.Background(), RoleRevenueAgent, "s", "p"); err == nil {
		t.Error("expected error completing without client")
	}
}
