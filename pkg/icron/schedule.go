package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

type TriggerInfo struct {
	Next       time.Time
	Last       time.Time
	Expression string

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

// parser accepts the five field expressions and @descriptors understood by
// cron.New() without options.
var parser = cron.NewParser(cron.Minute | cron.Hour |
	cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse validates a standard cron expression.
func Parse(cronExpr string) (cron.Schedule, error) {
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// GetTriggerInfo returns the last and next fire times around refTime. Last
// is zero when the schedule did not fire within the past year.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := Parse(cronExpr)
	if err != nil {
		return nil, err
	}

	nextTime := schedule.Next(refTime)

	var prevTime time.Time
	for window := time.Hour; window <= 366*24*time.Hour; window *= 2 {
		candidate := schedule.Next(refTime.Add(-window))
		if candidate.After(refTime) {
			continue
		}
		// walk forward to the latest fire time not after refTime
		for {
			following := schedule.Next(candidate)
			if following.After(refTime) {
				break
			}
			candidate = following
		}
		prevTime = candidate
		break
	}

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
