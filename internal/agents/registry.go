// Package agents implements the workflow nodes: input validation, the
// project manager supervisor, the revenue analyst, the trend analyst and
// the strategic editor.
package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/llm"
)

// Agent role names. Config overrides per-role model and temperature.
const (
	RoleValidator       = "validator"
	RoleProjectManager  = "project_manager"
	RoleRevenueAgent    = "revenue_agent"
	RoleTrendAgent      = "trend_agent"
	RoleStrategicEditor = "strategic_editor"
)

// Registry resolves per-role LLM settings and runs completions. A nil
// client disables narrative passes; the deterministic analysis still runs.
type Registry struct {
	cfg    *config.Config
	client llm.Client
}

func NewRegistry(cfg *config.Config, client llm.Client) *Registry {
	return &Registry{cfg: cfg, client: client}
}

// Enabled reports whether LLM passes are available.
func (r *Registry) Enabled() bool {
	return r.client != nil
}

// Complete runs one completion for a role with its resolved settings.
func (r *Registry) Complete(ctx context.Context, role, system, prompt string) (string, error) {
	if r.client == nil {
		return "", fmt.Errorf("no llm client configured for %s", role)
	}

	model := r.cfg.ResolveModel(role)
	resp, err := r.client.Complete(ctx, llm.Request{
		Model:       model,
		Temperature: r.cfg.ResolveTemperature(role),
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", role, err)
	}

	slog.Debug("completion finished", "role", role, "model", model,
		"prompt_tokens", resp.PromptTokens, "completion_tokens", resp.CompletionTokens)
	return resp.Content, nil
}
