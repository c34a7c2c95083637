package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run sources.
const (
	RunSourceAPI      = "api"
	RunSourceCLI      = "cli"
	RunSourceSchedule = "schedule"
	RunSourceTelegram = "telegram"
)

type Run struct {
	ID          string          `json:"id"`
	Chains      []string        `json:"chains"`
	Timeframe   string          `json:"timeframe"`
	Status      string          `json:"status"`
	Source      string          `json:"source"`
	Result      json.RawMessage `json:"result,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

const runColumns = `id, chains, timeframe, status, source, result, errors, started_at, completed_at`

func scanRun(scanner interface {
	Scan(dest ...any) error
}) (*Run, error) {
	r := &Run{}
	var chains string
	var result, errs *string
	err := scanner.Scan(&r.ID, &chains, &r.Timeframe, &r.Status, &r.Source, &result, &errs, &r.StartedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	if chains != "" {
		r.Chains = strings.Split(chains, ",")
	}
	if result != nil && *result != "" {
		r.Result = json.RawMessage(*result)
	}
	if errs != nil && *errs != "" {
		r.Errors = strings.Split(*errs, "\n")
	}
	return r, nil
}

func (s *Store) SaveRun(r *Run) error {
	var result any
	if len(r.Result) > 0 {
		result = string(r.Result)
	}
	_, err := s.db.Exec(`
		INSERT INTO analysis_runs (id, chains, timeframe, status, source, result, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			result = excluded.result,
			errors = excluded.errors,
			completed_at = CASE WHEN excluded.status IN ('completed', 'failed') THEN CURRENT_TIMESTAMP ELSE completed_at END`,
		r.ID, strings.Join(r.Chains, ","), r.Timeframe, r.Status, r.Source,
		result, strings.Join(r.Errors, "\n"))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

func (s *Store) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM analysis_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

func (s *Store) DeleteRun(id string) error {
	_, err := s.db.Exec(`DELETE FROM analysis_runs WHERE id = ?`, id)
	return err
}
