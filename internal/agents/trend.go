package agents

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtzanidakis/feescope/internal/dataset"
	"github.com/mtzanidakis/feescope/internal/state"
)

const trendSystemPrompt = `You are a blockchain data analyst specializing in
growthepie historical datasets. You compare dataset captures in
chronological order and highlight significant changes in category revenue,
emerging patterns and declining trends. Be concrete and quantitative.`

// TrendAgent compares the two latest cached datasets. The deterministic
// summaries always feed the analysis; the LLM refines them into overviews
// and a comparison when configured.
type TrendAgent struct {
	registry *Registry
	cacheDir string
}

func NewTrendAgent(registry *Registry, cacheDir string) *TrendAgent {
	return &TrendAgent{registry: registry, cacheDir: cacheDir}
}

func (t *TrendAgent) Run(ctx context.Context, a state.Analysis) state.Delta {
	earlier, latter, err := dataset.LatestPair(t.cacheDir)
	if err != nil {
		return state.Delta{Errors: []string{fmt.Sprintf("trend analysis: %v", err)}}
	}

	slog.Info("trend datasets selected", "run_id", a.RunID,
		"earlier", earlier.Filename, "latter", latter.Filename)

	analysis := &state.TrendAnalysis{
		EarlierFile:     earlier.Filename,
		LatterFile:      latter.Filename,
		EarlierOverview: earlier.Describe(),
		LatterOverview:  latter.Describe(),
		Comparison:      compareSummaries(earlier, latter),
		GeneratedAt:     time.Now().UTC(),
	}

	if t.registry.Enabled() {
		if err := t.refine(ctx, analysis, earlier, latter); err != nil {
			return state.Delta{Errors: []string{fmt.Sprintf("trend analysis: %v", err)}}
		}
	}

	return state.Delta{
		Task:          state.TaskRoute,
		TrendAnalysis: analysis,
		Messages: []state.Message{
			note(RoleTrendAgent, fmt.Sprintf("trend analysis completed: %s vs %s", earlier.Filename, latter.Filename)),
		},
	}
}

func (t *TrendAgent) refine(ctx context.Context, analysis *state.TrendAnalysis, earlier, latter dataset.Summary) error {
	earlierOverview, err := t.registry.Complete(ctx, RoleTrendAgent, trendSystemPrompt,
		"Give a short overview of this dataset capture:\n"+earlier.Describe())
	if err != nil {
		return err
	}
	latterOverview, err := t.registry.Complete(ctx, RoleTrendAgent, trendSystemPrompt,
		"Give a short overview of this dataset capture:\n"+latter.Describe())
	if err != nil {
		return err
	}

	comparison, err := t.registry.Complete(ctx, RoleTrendAgent, trendSystemPrompt, fmt.Sprintf(
		`Compare these two dataset captures in chronological order.

Earlier capture:
%s

Latest capture:
%s

Identify the key trends and changes between the two periods.`, earlierOverview, latterOverview))
	if err != nil {
		return err
	}

	analysis.EarlierOverview = earlierOverview
	analysis.LatterOverview = latterOverview
	analysis.Comparison = comparison
	return nil
}

// compareSummaries is the deterministic comparison used when no LLM is
// configured.
func compareSummaries(earlier, latter dataset.Summary) string {
	delta := latter.TotalGasFeesUSD - earlier.TotalGasFeesUSD
	direction := "grew"
	if delta < 0 {
		direction = "shrank"
		delta = -delta
	}
	pct := 0.0
	if earlier.TotalGasFeesUSD > 0 {
		pct = delta / earlier.TotalGasFeesUSD * 100
	}
	return fmt.Sprintf("Between %s and %s total gas fee revenue %s by $%.2f (%.1f%%); chains covered went from %d to %d and categories from %d to %d.",
		earlier.Filename, latter.Filename, direction, delta, pct,
		len(earlier.Chains), len(latter.Chains), len(earlier.Categories), len(latter.Categories))
}
