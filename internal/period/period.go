// Package period resolves relative and absolute date tokens ("today",
// "this week", "01-21", ...) to instants and ranges in the ledger's zone.
package period

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/ledger-bot-go/internal/domain"
)

// Period is a named reporting range.
type Period string

const (
	Today     Period = "today"
	Yesterday Period = "yesterday"
	Last7     Period = "7d"
	Last15    Period = "15d"
	Last30    Period = "30d"
	ThisWeek  Period = "week"
	ThisMonth Period = "month"
)

// aliases maps user-facing spellings to periods. Longer aliases are listed
// before their prefixes so prefix scans stay unambiguous.
var aliases = []struct {
	text   string
	period Period
}{
	{"last 7 days", Last7}, {"last 15 days", Last15}, {"last 30 days", Last30},
	{"this week", ThisWeek}, {"this month", ThisMonth},
	{"today", Today}, {"yesterday", Yesterday},
	{"week", ThisWeek}, {"month", ThisMonth},
	{"7d", Last7}, {"15d", Last15}, {"30d", Last30},
	{"今日", Today}, {"今天", Today}, {"昨日", Yesterday}, {"昨天", Yesterday},
	{"本周", ThisWeek}, {"这周", ThisWeek}, {"本月", ThisMonth}, {"这个月", ThisMonth},
	{"近7天", Last7}, {"近15天", Last15}, {"近30天", Last30},
}

var labels = map[Period]string{
	Today:     "Today",
	Yesterday: "Yesterday",
	Last7:     "Last 7 days",
	Last15:    "Last 15 days",
	Last30:    "Last 30 days",
	ThisWeek:  "This week",
	ThisMonth: "This month",
}

var monthDay = regexp.MustCompile(`^(\d{1,2})-(\d{1,2})$`)

// Parse maps an alias (case-insensitive for Latin text) to a Period.
func Parse(token string) (Period, bool) {
	t := strings.ToLower(strings.TrimSpace(token))
	for _, a := range aliases {
		if t == a.text {
			return a.period, true
		}
	}
	return "", false
}

// SplitPrefix returns the period alias text starts with and the remainder.
// The alias must be followed by whitespace or the end of text.
func SplitPrefix(text string) (Period, string, bool) {
	lower := strings.ToLower(text)
	for _, a := range aliases {
		if !strings.HasPrefix(lower, a.text) {
			continue
		}
		rest := text[len(a.text):]
		if rest == "" {
			return a.period, "", true
		}
		if trimmed := strings.TrimLeft(rest, " \t"); len(trimmed) < len(rest) {
			return a.period, trimmed, true
		}
	}
	return "", text, false
}

// Label is the human-readable name of p.
func (p Period) Label() string {
	if l, ok := labels[p]; ok {
		return l
	}
	return string(p)
}

// IsMonthDay reports whether token looks like an MM-DD date.
func IsMonthDay(token string) bool {
	return monthDay.MatchString(strings.TrimSpace(token))
}

// Resolver resolves tokens relative to a clock in a fixed location.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver creates a resolver. A nil now uses time.Now.
func NewResolver(loc *time.Location, now func() time.Time) *Resolver {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Resolver{loc: loc, now: now}
}

// Location is the zone all calendar days are computed in.
func (r *Resolver) Location() *time.Location { return r.loc }

// Now is the resolver's current instant in its location.
func (r *Resolver) Now() time.Time { return r.now().In(r.loc) }

func (r *Resolver) midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}

func (r *Resolver) weekStart(t time.Time) time.Time {
	day := r.midnight(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// ResolveToken resolves a single date token to the start of that day (or
// of the week/month). ok is false for anything unrecognized.
func (r *Resolver) ResolveToken(token string) (time.Time, bool) {
	now := r.Now()
	if p, ok := Parse(token); ok {
		switch p {
		case Today:
			return r.midnight(now), true
		case Yesterday:
			return r.midnight(now).AddDate(0, 0, -1), true
		case ThisWeek:
			return r.weekStart(now), true
		case ThisMonth:
			y, m, _ := now.Date()
			return time.Date(y, m, 1, 0, 0, 0, 0, r.loc), true
		}
		return time.Time{}, false
	}

	match := monthDay.FindStringSubmatch(strings.TrimSpace(token))
	if match == nil {
		return time.Time{}, false
	}
	month, _ := strconv.Atoi(match[1])
	day, _ := strconv.Atoi(match[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}

	year := now.Year()
	if time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc).After(now) {
		year--
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, r.loc)
	if t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false // e.g. 02-30, or 02-29 outside a leap year
	}
	return t, true
}

// ResolveRange returns the inclusive window of a named period.
func (r *Resolver) ResolveRange(p Period) (domain.Window, bool) {
	now := r.Now()
	today := r.midnight(now)

	switch p {
	case Today:
		return domain.Window{Start: today, End: now}, true
	case Yesterday:
		return domain.Window{Start: today.AddDate(0, 0, -1), End: today.Add(-time.Second)}, true
	case Last7:
		return domain.Window{Start: now.AddDate(0, 0, -7), End: now}, true
	case Last15:
		return domain.Window{Start: now.AddDate(0, 0, -15), End: now}, true
	case Last30:
		return domain.Window{Start: now.AddDate(0, 0, -30), End: now}, true
	case ThisWeek:
		return domain.Window{Start: r.weekStart(now), End: now}, true
	case ThisMonth:
		y, m, _ := now.Date()
		return domain.Window{Start: time.Date(y, m, 1, 0, 0, 0, 0, r.loc), End: now}, true
	}
	return domain.Window{}, false
}

// Window resolves a scope token: a named period gives its range, an MM-DD
// token gives that whole calendar day.
func (r *Resolver) Window(token string) (domain.Window, bool) {
	if p, ok := Parse(token); ok {
		return r.ResolveRange(p)
	}
	if !IsMonthDay(token) {
		return domain.Window{}, false
	}
	day, ok := r.ResolveToken(token)
	if !ok {
		return domain.Window{}, false
	}
	return domain.Window{Start: day, End: day.AddDate(0, 0, 1).Add(-time.Second)}, true
}
