package cron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

func msToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

var standardParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ComputeNextRun returns the next epoch-millisecond run time for schedule
// relative to nowMs, or nil if the schedule has no further occurrence: an At
// at or before nowMs, or an Every with a non-positive period. An Every with a
// positive period always yields a time, whatever its anchor. Pure: no I/O, no
// wall-clock reads.
func ComputeNextRun(schedule CronSchedule, nowMs int64) (*int64, error) {
	switch schedule.Kind {
	case ScheduleKindEvery:
		return computeEveryNextRun(schedule, nowMs), nil
	case ScheduleKindAt:
		if schedule.AtMs <= nowMs {
			return nil, nil
		}
		at := schedule.AtMs
		return &at, nil
	case ScheduleKindCron:
		sched, err := standardParser.Parse(schedule.Expr)
		if err != nil {
			return nil, fmt.Errorf("invalid cron expression %q: %w", schedule.Expr, err)
		}
		next := cron.Schedule(sched).Next(msToTime(nowMs)).UnixMilli()
		return &next, nil
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", schedule.Kind)
	}
}

func computeEveryNextRun(schedule CronSchedule, nowMs int64) *int64 {
	if schedule.PeriodMs <= 0 {
		return nil
	}
	anchor := int64(0)
	if schedule.AnchorMs != nil {
		anchor = *schedule.AnchorMs
	}
	elapsed := nowMs - anchor
	if elapsed < 0 {
		next := anchor
		return &next
	}
	periods := elapsed/schedule.PeriodMs + 1
	next := anchor + periods*schedule.PeriodMs
	return &next
}
