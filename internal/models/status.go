package models

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusToday    Status = "today"
	StatusPast     Status = "past"
)

// StartsAt combines a calendar date and an "HH:MM" clock value in loc.
func StartsAt(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(TimeLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: %w", clock, err)
	}

	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc), nil
}

// StatusAt classifies a start time relative to now. Anything on now's calendar
// day is "today" regardless of the hour.
func StatusAt(start, now time.Time) Status {
	sy, sm, sd := start.Date()
	ny, nm, nd := now.In(start.Location()).Date()
	if sy == ny && sm == nm && sd == nd {
		return StatusToday
	}
	if start.After(now) {
		return StatusUpcoming
	}
	return StatusPast
}
