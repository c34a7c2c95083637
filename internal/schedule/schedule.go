// Package schedule parses the recurrence spec stored with each analysis
// schedule. A spec is a small JSON document with a kind discriminator;
// plain cron strings are accepted and wrapped on the way in.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Spec kinds.
const (
	KindCron     = "cron"
	KindInterval = "interval"
	KindOnce     = "once"
)

// Spec is the persisted recurrence description.
type Spec struct {
	Kind       string `json:"kind"`
	CronExpr   string `json:"cron_expr,omitempty"`
	IntervalMs int64  `json:"interval_ms,omitempty"`
	AtMs       int64  `json:"at_ms,omitempty"`
}

// Parse decodes and validates a spec JSON string.
func Parse(raw string) (Spec, error) {
	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Spec{}, fmt.Errorf("parse schedule: %w", err)
	}
	if err := s.validate(); err != nil {
		return Spec{}, err
	}
	return s, nil
}

func (s Spec) validate() error {
	switch s.Kind {
	case KindCron:
		if !gronx.New().IsValid(s.CronExpr) {
			return fmt.Errorf("invalid cron expression: %s", s.CronExpr)
		}
	case KindInterval:
		if s.IntervalMs <= 0 {
			return fmt.Errorf("interval_ms must be positive")
		}
	case KindOnce:
		if s.AtMs <= 0 {
			return fmt.Errorf("at_ms must be positive")
		}
	default:
		return fmt.Errorf("unknown schedule kind: %s", s.Kind)
	}
	return nil
}

// Next returns the first firing time after now. ok is false when the
// spec will never fire again, which ends one-off schedules.
func (s Spec) Next(now time.Time) (time.Time, bool) {
	switch s.Kind {
	case KindCron:
		t, err := gronx.NextTickAfter(s.CronExpr, now, false)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case KindInterval:
		return now.Add(time.Duration(s.IntervalMs) * time.Millisecond), true
	case KindOnce:
		t := time.UnixMilli(s.AtMs)
		if t.After(now) {
			return t, true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

// Describe renders a spec for listings.
func (s Spec) Describe() string {
	switch s.Kind {
	case KindCron:
		return "cron " + s.CronExpr
	case KindInterval:
		d := time.Duration(s.IntervalMs) * time.Millisecond
		switch {
		case d >= time.Hour && d%time.Hour == 0:
			if h := int(d.Hours()); h > 1 {
				return fmt.Sprintf("every %d hours", h)
			}
			return "every hour"
		case d%time.Minute == 0:
			if m := int(d.Minutes()); m > 1 {
				return fmt.Sprintf("every %d minutes", m)
			}
			return "every minute"
		default:
			return fmt.Sprintf("every %d seconds", int(d.Seconds()))
		}
	case KindOnce:
		return "once at " + time.UnixMilli(s.AtMs).Format("Jan 2 15:04")
	}
	return s.Kind
}

// NextRun is the string-level helper used by the scheduler and the API:
// nil means the spec is invalid or will never fire again.
func NextRun(raw string) *time.Time {
	s, err := Parse(raw)
	if err != nil {
		return nil
	}
	t, ok := s.Next(time.Now())
	if !ok {
		return nil
	}
	return &t
}

// Describe renders a stored spec string, falling back to the raw input
// when it does not parse.
func Describe(raw string) string {
	s, err := Parse(raw)
	if err != nil {
		return raw
	}
	return s.Describe()
}

// Normalize accepts either a spec JSON document or a bare cron
// expression and returns the validated JSON form for storage.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)

	var s Spec
	if err := json.Unmarshal([]byte(raw), &s); err == nil && s.Kind != "" {
		if err := s.validate(); err != nil {
			return "", err
		}
		return raw, nil
	}

	if !gronx.New().IsValid(raw) {
		return "", fmt.Errorf("invalid schedule: not valid JSON or cron expression: %s", raw)
	}
	data, err := json.Marshal(Spec{Kind: KindCron, CronExpr: raw})
	if err != nil {
		return "", err
	}
	return string(data), nil
}
