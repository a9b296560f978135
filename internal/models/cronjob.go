package models

import (
	"fmt"
	"time"
)

type RepeatInterval string

const (
	RepeatDaily    RepeatInterval = "daily"
	RepeatWeekdays RepeatInterval = "weekdays"
	RepeatWeekly   RepeatInterval = "weekly"
	RepeatMonthly  RepeatInterval = "monthly"
)

func (r RepeatInterval) Valid() bool {
	switch r {
	case RepeatDaily, RepeatWeekdays, RepeatWeekly, RepeatMonthly:
		return true
	}
	return false
}

const TimeOfDayLayout = "15:04:05"

// TimeOfDay is a wall clock time truncated to whole seconds.
type TimeOfDay struct {
	Hour, Minute, Second int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
}

func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Cronjob is a recurring task template.
type Cronjob struct {
	ID          int64
	Description string
	UserID      string
	TimeOfDay   TimeOfDay
	Repeat      RepeatInterval
	Priority    Priority
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DueOn reports whether the template's repeat interval includes now's
// calendar day. The time of day is matched separately.
func (c *Cronjob) DueOn(now time.Time) bool {
	anchor := c.CreatedAt.In(now.Location())
	switch c.Repeat {
	case RepeatDaily:
		return true
	case RepeatWeekdays:
		wd := now.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	case RepeatWeekly:
		return now.Weekday() == anchor.Weekday()
	case RepeatMonthly:
		day := anchor.Day()
		if last := lastDayOfMonth(now); day > last {
			day = last
		}
		return now.Day() == day
	}
	return false
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
