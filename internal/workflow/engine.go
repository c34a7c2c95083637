package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtzanidakis/feescope/internal/state"
)

// Node handles one task on an analysis and returns the changes it wants
// applied. Nodes never mutate the analysis they receive.
type Node func(ctx context.Context, a state.Analysis) state.Delta

// Publisher receives step and completion events. Satisfied by natsbus.Client.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// StepEvent describes one engine transition, published per step.
type StepEvent struct {
	RunID  string     `json:"run_id"`
	Step   int        `json:"step"`
	From   state.Task `json:"from"`
	To     state.Task `json:"to"`
	Errors []string   `json:"errors,omitempty"`
}

// Engine drives an analysis from validation to a terminal task by
// dispatching on the current task and folding node deltas through
// state.Reduce.
type Engine struct {
	nodes    map[state.Task]Node
	maxSteps int
	events   Publisher
	topic    func(runID string) string
}

func NewEngine(nodes map[state.Task]Node, maxSteps int) *Engine {
	if maxSteps <= 0 {
		maxSteps = 32
	}
	return &Engine{nodes: nodes, maxSteps: maxSteps}
}

// WithEvents publishes a StepEvent after every transition. The topic
// function maps a run ID to its event subject.
func (e *Engine) WithEvents(p Publisher, topic func(runID string) string) *Engine {
	e.events = p
	e.topic = topic
	return e
}

// Run executes the workflow until the analysis reaches a terminal task.
// The returned analysis is always the last consistent state, even on error.
func (e *Engine) Run(ctx context.Context, a state.Analysis) (state.Analysis, error) {
	for step := 0; !a.Task.Terminal(); step++ {
		if step >= e.maxSteps {
			return a, fmt.Errorf("run %s exceeded %d steps at task %s", a.RunID, e.maxSteps, a.Task)
		}
		if err := ctx.Err(); err != nil {
			return a, fmt.Errorf("run %s cancelled at task %s: %w", a.RunID, a.Task, err)
		}

		node, ok := e.nodes[a.Task]
		if !ok {
			return a, fmt.Errorf("no node registered for task %s", a.Task)
		}

		prev := a.Task
		next, err := state.Reduce(a, node(ctx, a))
		if err != nil {
			// A malformed delta fails the run rather than aborting the
			// engine, so the failure is recorded on the analysis itself.
			next, err = state.Reduce(a, state.Delta{
				Task:   state.TaskFailed,
				Errors: []string{err.Error()},
			})
			if err != nil {
				return a, fmt.Errorf("fail run %s: %w", a.RunID, err)
			}
		}
		a = next

		// Accumulated errors on a non-terminal state force failure.
		if len(a.Errors) > 0 && !a.Task.Terminal() {
			a, err = state.Reduce(a, state.Delta{Task: state.TaskFailed})
			if err != nil {
				return a, fmt.Errorf("fail run %s: %w", a.RunID, err)
			}
		}

		slog.Debug("workflow step", "run_id", a.RunID, "step", step, "from", prev, "to", a.Task)
		e.publishStep(a, step, prev)
	}

	if err := checkOutcome(a); err != nil {
		return a, err
	}
	return a, nil
}

// checkOutcome enforces that a finished run carries exactly one outcome:
// a synthesis without errors, or errors without a synthesis.
func checkOutcome(a state.Analysis) error {
	switch a.Task {
	case state.TaskDone:
		if a.Synthesis == nil {
			return fmt.Errorf("run %s finished without a synthesis", a.RunID)
		}
		if len(a.Errors) > 0 {
			return fmt.Errorf("run %s finished with both synthesis and errors", a.RunID)
		}
	case state.TaskFailed:
		if len(a.Errors) == 0 {
			return fmt.Errorf("run %s failed without recorded errors", a.RunID)
		}
	default:
		return fmt.Errorf("run %s stopped on non-terminal task %s", a.RunID, a.Task)
	}
	return nil
}

func (e *Engine) publishStep(a state.Analysis, step int, from state.Task) {
	if e.events == nil || e.topic == nil {
		return
	}
	ev := StepEvent{RunID: a.RunID, Step: step, From: from, To: a.Task, Errors: a.Errors}
	if err := e.events.PublishJSON(e.topic(a.RunID), ev); err != nil {
		slog.Warn("publish step event", "run_id", a.RunID, "error", err)
	}
}
