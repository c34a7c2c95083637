package state

import "testing"

func TestParseTimeframe(t *testing.T) {
	for _, s := range []string{"1d", "7d", "30d", "historical", "trend"} {
		if _, err := ParseTimeframe(s); err != nil {
			t.Errorf("expected %s to parse: %v", s, err)
		}
	}
	if _, err := ParseTimeframe("90d"); err == nil {
		t.Error("expected error for 90d")
	}
	if _, err := ParseTimeframe(""); err == nil {
		t.Error("expected error for empty timeframe")
	}
}

func TestDataTimeframePinning(t *testing.T) {
	if got := TimeframeHistorical.DataTimeframe(); got != Timeframe7d {
		t.Errorf("expected historical to pin to 7d, got %s", got)
	}
	if got := TimeframeTrend.DataTimeframe(); got != Timeframe7d {
		t.Errorf("expected trend to pin to 7d, got %s", got)
	}
	if got := Timeframe30d.DataTimeframe(); got != Timeframe30d {
		t.Errorf("expected 30d to stay 30d, got %s", got)
	}
	if !TimeframeHistorical.NeedsTrend() || !TimeframeTrend.NeedsTrend() {
		t.Error("expected historical and trend to need trend analysis")
	}
	if Timeframe7d.NeedsTrend() {
		t.Error("expected 7d not to need trend analysis")
	}
}

func TestTaskTransitions(t *testing.T) {
	allowed := []struct{ from, to Task }{
		{TaskValidate, TaskRoute},
		{TaskValidate, TaskFailed},
		{TaskRoute, TaskRevenueAnalysis},
		{TaskRoute, TaskTrendAnalysis},
		{TaskRoute, TaskInterpretTrends},
		{TaskRoute, TaskSynthesize},
		{TaskRoute, TaskDone},
		{TaskRevenueAnalysis, TaskRoute},
		{TaskTrendAnalysis, TaskRoute},
		{TaskInterpretTrends, TaskRoute},
		{TaskSynthesize, TaskDone},
		{TaskSynthesize, TaskFailed},
	}
	for _, tc := range allowed {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to Task }{
		{TaskValidate, TaskSynthesize},
		{TaskRevenueAnalysis, TaskSynthesize},
		{TaskDone, TaskRoute},
		{TaskFailed, TaskRoute},
		{TaskSynthesize, TaskRoute},
	}
	for _, tc := range denied {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("expected %s -> %s denied", tc.from, tc.to)
		}
	}

	if !TaskDone.Terminal() || !TaskFailed.Terminal() {
		t.Error("expected done and failed to be terminal")
	}
	if TaskRoute.Terminal() {
		t.Error("expected route not to be terminal")
	}
}

func TestReduceAppendsWithoutMutatingOriginal(t *testing.T) {
	a := New("run-1", []string{"base", "mantle"}, Timeframe7d)
	a.Task = TaskRoute

	next, err := Reduce(a, Delta{
		Task:            TaskRevenueAnalysis,
		CategoryReports: []CategoryReport{{Chain: "base", TopCategory: "defi"}},
		Errors:          nil,
		Messages:        []Message{{Agent: "project_manager", Role: "assistant", Content: "delegating"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if next.Task != TaskRevenueAnalysis {
		t.Errorf("expected task revenue_analysis, got %s", next.Task)
	}
	if len(next.CategoryReports) != 1 || len(next.Messages) != 1 {
		t.Fatal("expected appended reports and messages")
	}
	if len(a.CategoryReports) != 0 || len(a.Messages) != 0 || a.Task != TaskRoute {
		t.Error("original state mutated")
	}

	// Appending to the new state's slices must not leak into the old one.
	next2, err := Reduce(next, Delta{
		Task:            TaskRoute,
		CategoryReports: []CategoryReport{{Chain: "mantle", TopCategory: "nft"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(next2.CategoryReports) != 2 {
		t.Errorf("expected 2 category reports, got %d", len(next2.CategoryReports))
	}
	if len(next.CategoryReports) != 1 {
		t.Error("intermediate state mutated")
	}
}

func TestReduceRejectsIllegalTransition(t *testing.T) {
	a := New("run-1", []string{"base"}, Timeframe7d)

	if _, err := Reduce(a, Delta{Task: TaskSynthesize}); err == nil {
		t.Error("expected illegal transition validate -> synthesize to fail")
	}

	a.Task = TaskDone
	if _, err := Reduce(a, Delta{Task: TaskRoute}); err == nil {
		t.Error("expected transition out of done to fail")
	}
}

func TestReduceRejectsSecondSynthesis(t *testing.T) {
	a := New("run-1", []string{"base"}, Timeframe7d)
	a.Task = TaskSynthesize
	a.Synthesis = &Synthesis{ExecutiveSummary: "first"}

	if _, err := Reduce(a, Delta{Synthesis: &Synthesis{ExecutiveSummary: "second"}}); err == nil {
		t.Error("expected second synthesis to fail")
	}
}

func TestReduceMergesMetadata(t *testing.T) {
	a := New("run-1", []string{"base"}, Timeframe7d)
	a.Metadata = map[string]string{"source": "api"}

	next, err := Reduce(a, Delta{Metadata: map[string]string{"trigger": "schedule"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Metadata["source"] != "api" || next.Metadata["trigger"] != "schedule" {
		t.Errorf("expected merged metadata, got %v", next.Metadata)
	}
	if _, ok := a.Metadata["trigger"]; ok {
		t.Error("original metadata mutated")
	}
}

func TestTerminalOutcomes(t *testing.T) {
	a := New("run-1", []string{"base"}, Timeframe7d)
	if a.Failed() || a.Completed() {
		t.Error("fresh run should be neither failed nor completed")
	}

	a.Errors = []string{"boom"}
	if !a.Failed() {
		t.Error("expected failed with errors present")
	}

	b := New("run-2", []string{"base"}, Timeframe7d)
	b.Synthesis = &Synthesis{ExecutiveSummary: "done"}
	if !b.Completed() {
		t.Error("expected completed with synthesis present")
	}
}
