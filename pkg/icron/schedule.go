// Package icron describes when cron expressions fire.
package icron

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
)

const maxLookback = 366 * 24 * time.Hour

type TriggerInfo struct {
	Next       time.Time `json:"next"`
	Last       time.Time `json:"last,omitempty"`
	Expression string    `json:"expression"`

	TimeSinceLast time.Duration `json:"time_since_last,omitempty"`
	TimeUntilNext time.Duration `json:"time_until_next"`
}

// Describe renders the next run relative to ref, e.g. "in 12 minutes".
func (t TriggerInfo) Describe(ref time.Time) string {
	return humanize.RelTime(t.Next, ref, "ago", "from now")
}

func parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := parse(cronExpr)
	if err != nil {
		return nil, err
	}

	nextTime := schedule.Next(refTime)
	prevTime := lastRun(schedule, refTime)

	info := &TriggerInfo{
		Expression:    cronExpr,
		Next:          nextTime,
		Last:          prevTime,
		TimeUntilNext: nextTime.Sub(refTime),
	}
	if !prevTime.IsZero() {
		info.TimeSinceLast = refTime.Sub(prevTime)
	}
	return info, nil
}

// NextRuns lists the next n activation times after refTime.
func NextRuns(cronExpr string, refTime time.Time, n int) ([]time.Time, error) {
	schedule, err := parse(cronExpr)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	t := refTime
	for range n {
		t = schedule.Next(t)
		if t.IsZero() {
			break
		}
		runs = append(runs, t)
	}
	return runs, nil
}

// lastRun finds the latest activation at or before ref by widening the look-back window.
func lastRun(schedule cron.Schedule, ref time.Time) time.Time {
	for back := time.Hour; back <= maxLookback; back *= 2 {
		t := schedule.Next(ref.Add(-back))
		if t.IsZero() || t.After(ref) {
			continue
		}
		for {
			next := schedule.Next(t)
			if next.IsZero() || next.After(ref) {
				return t
			}
			t = next
		}
	}
	return time.Time{}
}
