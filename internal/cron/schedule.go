// Package cron drives the background session cleanup sweep: a ticker
// that periodically calls the session store's Cleanup to drop sessions
// that never accumulated any activity (spec.md §5, §9).
package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Schedule is either a fixed interval or a cron expression. Interval
// scheduling is the default the server config produces; the cron
// expression form exists for operators who want sweeps pinned to
// specific times (e.g. "@daily").
type Schedule struct {
	interval time.Duration
	expr     cron.Schedule
}

// Every returns an interval-based Schedule. d must be positive.
func Every(d time.Duration) (Schedule, error) {
	if d <= 0 {
		return Schedule{}, fmt.Errorf("cron: interval must be positive, got %s", d)
	}
	return Schedule{interval: d}, nil
}

// Parse returns a cron-expression Schedule, e.g. "0 */1 * * *" or "@hourly".
func Parse(expr string) (Schedule, error) {
	sched, err := parser.Parse(expr)
	if err != nil {
		return Schedule{}, fmt.Errorf("cron: invalid expression %q: %w", expr, err)
	}
	return Schedule{expr: sched}, nil
}

// Next returns the next run time strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	if s.expr != nil {
		return s.expr.Next(now)
	}
	return now.Add(s.interval)
}
