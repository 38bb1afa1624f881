// Package listing turns untrusted query-string parameters into safe ORDER BY
// and WHERE clauses for the schedule and event tables.
package listing

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
)

const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"

	FilterAll        = "all"
	FilterUpcoming   = "upcoming"
	FilterPast       = "past"
	FilterTournament = "tournament"
	FilterMeetup     = "meetup"
	FilterShared     = "shared"

	DefaultSort = "date"

	maxSearch = 100
)

type Query struct {
	Sort   string
	Order  string
	Filter string
	Date   string
	Search string
}

// FromValues reads the listing parameters of a request's query string.
func FromValues(v url.Values) Query {
	return Query{
		Sort:   v.Get("sort"),
		Order:  v.Get("order"),
		Filter: v.Get("filter"),
		Date:   v.Get("date"),
		Search: strings.TrimSpace(v.Get("q")),
	}
}

// Values is the inverse of FromValues and is used to build sort links.
func (q Query) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("sort", q.Sort)
	set("order", q.Order)
	set("filter", q.Filter)
	set("date", q.Date)
	set("q", q.Search)
	return v
}

// Columns maps a public sort key to the column expressions it orders by.
type Columns map[string][]string

var ScheduleColumns = Columns{
	"date":       {"schedules.date", "schedules.time"},
	"time":       {"schedules.time"},
	"game_title": {"games.title"},
	"created_at": {"schedules.created_at"},
}

var EventColumns = Columns{
	"date":       {"events.date", "events.time"},
	"time":       {"events.time"},
	"title":      {"events.title"},
	"event_type": {"events.event_type"},
	"created_at": {"events.created_at"},
}

// Filters lists the accepted filter values in display order.
var Filters = []string{FilterAll, FilterUpcoming, FilterPast, FilterTournament, FilterMeetup, FilterShared}

var filterSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Filters))
	for _, f := range Filters {
		m[f] = struct{}{}
	}
	return m
}()

// Normalize replaces anything outside the allow-lists with safe defaults.
func (q Query) Normalize(cols Columns) Query {
	if _, ok := cols[q.Sort]; !ok {
		q.Sort = DefaultSort
	}

	if strings.EqualFold(q.Order, OrderDesc) {
		q.Order = OrderDesc
	} else {
		q.Order = OrderAsc
	}

	q.Filter = strings.ToLower(q.Filter)
	if _, ok := filterSet[q.Filter]; !ok {
		q.Filter = FilterAll
	}

	if q.Date != "" {
		if _, err := time.Parse("2006-01-02", q.Date); err != nil {
			q.Date = ""
		}
	}

	if r := []rune(q.Search); len(r) > maxSearch {
		q.Search = string(r[:maxSearch])
	}

	return q
}

// OrderBy returns the ORDER BY clause for an already normalized query.
func (q Query) OrderBy(cols Columns) string {
	exprs := cols[q.Sort]
	if len(exprs) == 0 {
		exprs = cols[DefaultSort]
	}

	parts := make([]string, 0, len(exprs))
	for _, e := range exprs {
		parts = append(parts, fmt.Sprintf("%s %s", e, q.Order))
	}

	return strings.Join(parts, ", ")
}

// Like escapes s for use inside a LIKE pattern and wraps it in wildcards.
func Like(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// UpcomingSince restricts table rows to those starting at or after now.
func UpcomingSince(db *gorm.DB, table string, now time.Time) *gorm.DB {
	day, clock := now.Format("2006-01-02"), now.Format("15:04")
	return db.Where(
		fmt.Sprintf("(%[1]s.date > ? OR (%[1]s.date = ? AND %[1]s.time >= ?))", table),
		day, day, clock,
	)
}

// PastBefore restricts table rows to those that started before now.
func PastBefore(db *gorm.DB, table string, now time.Time) *gorm.DB {
	day, clock := now.Format("2006-01-02"), now.Format("15:04")
	return db.Where(
		fmt.Sprintf("(%[1]s.date < ? OR (%[1]s.date = ? AND %[1]s.time < ?))", table),
		day, day, clock,
	)
}
