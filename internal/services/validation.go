package services

import (
	"regexp"
	"time"

	"games_planner/internal/models"
)

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// clock carries the timezone dates are interpreted in and the source of "now".
type clock struct {
	loc *time.Location
	now func() time.Time
}

func newClock(loc *time.Location) clock {
	if loc == nil {
		loc = time.UTC
	}
	return clock{loc: loc, now: time.Now}
}

func (c clock) Now() time.Time {
	return c.now().In(c.loc)
}

// today is the current calendar day in loc, as a UTC midnight like parseDate.
func (c clock) today() time.Time {
	y, m, d := c.Now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// parseDate returns the calendar day as a UTC midnight. The DSN writes DATE
// columns in UTC, so a midnight in loc would be stored as the previous day
// anywhere east of UTC.
func (c clock) parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, invalid(field, "date is required")
	}

	d, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, invalid(field, "date must look like YYYY-MM-DD")
	}

	return d, nil
}

func checkClock(field, value string) error {
	if value == "" {
		return invalid(field, "time is required")
	}
	if !clockPattern.MatchString(value) {
		return invalid(field, "time must look like HH:MM (00:00-23:59)")
	}
	return nil
}

// dedupeIDs drops repeated ids, keeping first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
