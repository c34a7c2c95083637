package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mtzanidakis/feescope/internal/state"
)

const pmSystemPrompt = `You are a senior project manager for blockchain analytics projects.
You interpret trend analysis results for the team. Be concise and concrete:
summarise the notable changes between the two dataset captures and name the
categories most worth a contract-level deep dive.`

// ProjectManager is the supervisor. It routes between the worker agents
// over the task transition table and interprets trend results when they
// arrive without insights.
type ProjectManager struct {
	registry *Registry
}

func NewProjectManager(registry *Registry) *ProjectManager {
	return &ProjectManager{registry: registry}
}

// Route decides the next task from the current state.
func (p *ProjectManager) Route(_ context.Context, a state.Analysis) state.Delta {
	next, reason := routeDecision(a)
	slog.Info("supervisor routing", "run_id", a.RunID, "next", next, "reason", reason)
	return state.Delta{
		Task:     next,
		Messages: []state.Message{note(RoleProjectManager, reason)},
	}
}

func routeDecision(a state.Analysis) (state.Task, string) {
	if len(a.Errors) > 0 {
		return state.TaskFailed, "ending run: errors recorded"
	}
	if a.Timeframe.NeedsTrend() && a.TrendAnalysis == nil {
		return state.TaskTrendAnalysis, "delegating to trend agent: historical comparison pending"
	}
	if a.TrendAnalysis != nil && a.TrendInsights == "" {
		return state.TaskInterpretTrends, "interpreting trend analysis results"
	}
	if len(a.CategoryReports) == 0 {
		return state.TaskRevenueAnalysis, "delegating to revenue agent: category analysis pending"
	}
	if len(a.ContractReports) == 0 {
		return state.TaskRevenueAnalysis, "delegating to revenue agent: contract analysis pending"
	}
	if a.Synthesis == nil {
		return state.TaskSynthesize, "delegating to strategic editor: synthesis pending"
	}
	return state.TaskDone, "all deliverables complete"
}

// InterpretTrends turns a trend analysis into insights and the target
// categories for the contract deep dive. Without an LLM the comparison
// text stands in as the insight.
func (p *ProjectManager) InterpretTrends(ctx context.Context, a state.Analysis) state.Delta {
	if a.TrendAnalysis == nil {
		return state.Delta{Errors: []string{"trend interpretation: no trend analysis present"}}
	}

	if !p.registry.Enabled() {
		return state.Delta{
			Task:          state.TaskRoute,
			TrendInsights: a.TrendAnalysis.Comparison,
			Messages:      []state.Message{note(RoleProjectManager, "recorded trend comparison as insights")},
		}
	}

	prompt := fmt.Sprintf(`Interpret this blockchain revenue trend analysis.

Earlier dataset (%s): %s
Latest dataset (%s): %s
Comparison: %s

Respond with your key insights, then a final line of the form
TARGET_CATEGORIES: category1, category2
naming up to three category keys that deserve a contract-level deep dive.`,
		a.TrendAnalysis.EarlierFile, a.TrendAnalysis.EarlierOverview,
		a.TrendAnalysis.LatterFile, a.TrendAnalysis.LatterOverview,
		a.TrendAnalysis.Comparison)

	content, err := p.registry.Complete(ctx, RoleProjectManager, pmSystemPrompt, prompt)
	if err != nil {
		return state.Delta{Errors: []string{fmt.Sprintf("trend interpretation: %v", err)}}
	}

	insights, targets := parseTrendInsights(content)
	return state.Delta{
		Task:             state.TaskRoute,
		TrendInsights:    insights,
		TargetCategories: targets,
		Messages:         []state.Message{note(RoleProjectManager, content)},
	}
}

// parseTrendInsights splits the TARGET_CATEGORIES line off the insight
// text. Missing or empty target lines leave target selection to the
// revenue agent.
func parseTrendInsights(content string) (insights string, targets []string) {
	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "TARGET_CATEGORIES:"); ok {
			for _, c := range strings.Split(rest, ",") {
				if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
					targets = append(targets, c)
				}
			}
			continue
		}
		kept = append(kept, line)
	}
	insights = strings.TrimSpace(strings.Join(kept, "\n"))
	if insights == "" {
		insights = strings.TrimSpace(content)
	}
	return insights, targets
}
