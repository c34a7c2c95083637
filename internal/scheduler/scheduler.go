package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/mtzanidakis/feescope/internal/config"
	"github.com/mtzanidakis/feescope/internal/natsbus"
	"github.com/mtzanidakis/feescope/internal/schedule"
	"github.com/mtzanidakis/feescope/internal/state"
	"github.com/mtzanidakis/feescope/internal/store"
)

// AnalysisRunner launches one analysis run. Satisfied by workflow.Runner.
type AnalysisRunner interface {
	Run(ctx context.Context, chains []string, timeframe string, source string) (state.Analysis, error)
}

// Scheduler polls the store for due schedules and launches analysis runs.
type Scheduler struct {
	store        *store.Store
	runner       AnalysisRunner
	events       *natsbus.Client
	pollInterval time.Duration
}

func New(s *store.Store, runner AnalysisRunner, events *natsbus.Client, cfg config.SchedulerConfig) *Scheduler {
	return &Scheduler{
		store:        s,
		runner:       runner,
		events:       events,
		pollInterval: cfg.PollInterval,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	if s.pollInterval == 0 {
		s.pollInterval = 30 * time.Second
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	slog.Info("scheduler started", "poll_interval", s.pollInterval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	due, err := s.store.GetDueSchedules(time.Now())
	if err != nil {
		slog.Error("failed to get due schedules", "error", err)
		return
	}

	for _, sch := range due {
		s.execute(ctx, sch)
	}
}

func (s *Scheduler) execute(ctx context.Context, sch store.Schedule) {
	slog.Info("executing schedule", "id", sch.ID, "name", sch.Name, "chains", sch.Chains, "timeframe", sch.Timeframe)

	a, err := s.runner.Run(ctx, sch.Chains, sch.Timeframe, store.RunSourceSchedule)

	var lastStatus, lastError string
	switch {
	case err != nil:
		lastStatus = "error"
		lastError = err.Error()
		slog.Error("scheduled run failed", "id", sch.ID, "error", err)
	case a.Failed():
		lastStatus = "failed"
		if len(a.Errors) > 0 {
			lastError = a.Errors[0]
		}
	default:
		lastStatus = "completed"
	}

	nextRun := schedule.NextRun(sch.Schedule)

	if err := s.store.UpdateScheduleRun(sch.ID, lastStatus, lastError, nextRun); err != nil {
		slog.Error("failed to update schedule run", "id", sch.ID, "error", err)
	}

	s.publishExecutedEvent(sch, a.RunID, lastStatus)

	// One-off schedules with no next run are done.
	if nextRun == nil {
		slog.Info("no next run, marking schedule completed", "id", sch.ID, "name", sch.Name)
		if err := s.store.UpdateScheduleStatus(sch.ID, "completed"); err != nil {
			slog.Error("failed to complete schedule", "id", sch.ID, "error", err)
		}
	}
}

func (s *Scheduler) publishExecutedEvent(sch store.Schedule, runID string, status string) {
	if s.events == nil {
		return
	}

	event := map[string]any{
		"type":      "schedule_executed",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"data": map[string]any{
			"id":     sch.ID,
			"name":   sch.Name,
			"run_id": runID,
			"status": status,
		},
	}

	if err := s.events.PublishJSON("events.schedule.executed", event); err != nil {
		slog.Warn("publish schedule event", "id", sch.ID, "error", err)
	}
}
