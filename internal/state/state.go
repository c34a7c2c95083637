// Package state holds the analysis run state threaded through the workflow.
// The state is a value: nodes never mutate it, they return a Delta and the
// engine folds deltas in with Reduce.
package state

import (
	"fmt"
	"time"
)

// Message is one LLM exchange recorded in the run transcript.
type Message struct {
	Agent   string    `json:"agent"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Analysis is the full state of one analysis run.
type Analysis struct {
	RunID            string            `json:"run_id"`
	Chains           []string          `json:"chains"`
	Timeframe        Timeframe         `json:"timeframe"`
	Task             Task              `json:"task"`
	CategoryReports  []CategoryReport  `json:"category_reports,omitempty"`
	ContractReports  []ContractReport  `json:"contract_reports,omitempty"`
	TrendAnalysis    *TrendAnalysis    `json:"trend_analysis,omitempty"`
	TrendInsights    string            `json:"trend_insights,omitempty"`
	TargetCategories []string          `json:"target_categories,omitempty"`
	Synthesis        *Synthesis        `json:"synthesis,omitempty"`
	Errors           []string          `json:"errors,omitempty"`
	Messages         []Message         `json:"messages,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// New returns the initial state of a run.
func New(runID string, chains []string, timeframe Timeframe) Analysis {
	return Analysis{
		RunID:     runID,
		Chains:    append([]string(nil), chains...),
		Timeframe: timeframe,
		Task:      TaskValidate,
	}
}

// Failed reports whether the run ended with errors.
func (a Analysis) Failed() bool {
	return len(a.Errors) > 0
}

// Completed reports whether the run produced a synthesis.
func (a Analysis) Completed() bool {
	return a.Synthesis != nil
}

// Delta is the change set one node contributes. Slice fields append,
// pointer and string fields set when non-zero.
type Delta struct {
	Task             Task
	CategoryReports  []CategoryReport
	ContractReports  []ContractReport
	TrendAnalysis    *TrendAnalysis
	TrendInsights    string
	TargetCategories []string
	Synthesis        *Synthesis
	Errors           []string
	Messages         []Message
	Metadata         map[string]string
}

// Reduce folds a delta into the state and returns the next state value.
// It is the only place state changes happen. A task transition outside
// the transition table or a second synthesis is an error.
func Reduce(a Analysis, d Delta) (Analysis, error) {
	next := a
	next.Chains = append([]string(nil), a.Chains...)
	next.CategoryReports = append(append([]CategoryReport(nil), a.CategoryReports...), d.CategoryReports...)
	next.ContractReports = append(append([]ContractReport(nil), a.ContractReports...), d.ContractReports...)
	next.Errors = append(append([]string(nil), a.Errors...), d.Errors...)
	next.Messages = append(append([]Message(nil), a.Messages...), d.Messages...)

	if d.TrendAnalysis != nil {
		next.TrendAnalysis = d.TrendAnalysis
	}
	if d.TrendInsights != "" {
		next.TrendInsights = d.TrendInsights
	}
	if d.TargetCategories != nil {
		next.TargetCategories = append([]string(nil), d.TargetCategories...)
	} else {
		next.TargetCategories = append([]string(nil), a.TargetCategories...)
	}

	if d.Synthesis != nil {
		if a.Synthesis != nil {
			return a, fmt.Errorf("synthesis already set for run %s", a.RunID)
		}
		next.Synthesis = d.Synthesis
	}

	if len(d.Metadata) > 0 {
		next.Metadata = make(map[string]string, len(a.Metadata)+len(d.Metadata))
		for k, v := range a.Metadata {
			next.Metadata[k] = v
		}
		for k, v := range d.Metadata {
			next.Metadata[k] = v
		}
	}

	if d.Task != "" && d.Task != a.Task {
		if err := a.Task.validateTransition(d.Task); err != nil {
			return a, err
		}
		next.Task = d.Task
	}

	return next, nil
}
