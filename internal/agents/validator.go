package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mtzanidakis/feescope/internal/blockspace"
	"github.com/mtzanidakis/feescope/internal/state"
)

// Validator checks the run inputs against the dataset before any analysis
// starts.
type Validator struct {
	data *blockspace.Store
}

func NewValidator(data *blockspace.Store) *Validator {
	return &Validator{data: data}
}

func (v *Validator) Run(_ context.Context, a state.Analysis) state.Delta {
	var errs []string

	if len(a.Chains) == 0 {
		errs = append(errs, "validation: no chains requested")
	}
	for _, chain := range a.Chains {
		if !v.data.HasChain(chain) {
			errs = append(errs, fmt.Sprintf("validation: unsupported chain %q (available: %s)",
				chain, strings.Join(v.data.Chains(), ", ")))
		}
	}
	if _, err := state.ParseTimeframe(string(a.Timeframe)); err != nil {
		errs = append(errs, fmt.Sprintf("validation: %v", err))
	}

	if len(errs) > 0 {
		slog.Warn("run validation failed", "run_id", a.RunID, "errors", len(errs))
		return state.Delta{Task: state.TaskFailed, Errors: errs}
	}

	slog.Info("run validated", "run_id", a.RunID, "chains", a.Chains, "timeframe", a.Timeframe)
	return state.Delta{
		Task: state.TaskRoute,
		Messages: []state.Message{
			note(RoleValidator, fmt.Sprintf("validated %d chains for %s analysis", len(a.Chains), a.Timeframe)),
		},
	}
}
