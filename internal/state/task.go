package state

import "fmt"

// Task is the current position of a run in the workflow. The set is closed
// and transitions are validated against the table below; an unknown
// transition fails the run instead of looping.
type Task string

const (
	TaskValidate        Task = "validate"
	TaskRoute           Task = "route"
	TaskRevenueAnalysis Task = "revenue_analysis"
	TaskTrendAnalysis   Task = "trend_analysis"
	TaskInterpretTrends Task = "interpret_trends"
	TaskSynthesize      Task = "synthesize"
	TaskDone            Task = "done"
	TaskFailed          Task = "failed"
)

var transitions = map[Task][]Task{
	TaskValidate:        {TaskRoute, TaskFailed},
	TaskRoute:           {TaskRevenueAnalysis, TaskTrendAnalysis, TaskInterpretTrends, TaskSynthesize, TaskDone, TaskFailed},
	TaskRevenueAnalysis: {TaskRoute, TaskFailed},
	TaskTrendAnalysis:   {TaskRoute, TaskFailed},
	TaskInterpretTrends: {TaskRoute, TaskFailed},
	TaskSynthesize:      {TaskDone, TaskFailed},
}

// Terminal reports whether the task ends the run.
func (t Task) Terminal() bool {
	return t == TaskDone || t == TaskFailed
}

// CanTransition reports whether moving from t to next is allowed.
func (t Task) CanTransition(next Task) bool {
	for _, n := range transitions[t] {
		if n == next {
			return true
		}
	}
	return false
}

func (t Task) validateTransition(next Task) error {
	if !t.CanTransition(next) {
		return fmt.Errorf("illegal task transition %s -> %s", t, next)
	}
	return nil
}
