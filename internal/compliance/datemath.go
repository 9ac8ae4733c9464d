// Package compliance implements the insurance compliance evaluation engine:
// pure functions that compare extracted COI coverage against a requirement
// profile and reduce the per-field verdicts into one overall status.
package compliance

import (
	"fmt"
	"math"
	"time"
)

const dateLayout = "2006-01-02"

// ParseLocalDate parses a "YYYY-MM-DD" string as local midnight of that
// calendar day in loc. Parsing through a full ISO datetime would shift the
// day for locales behind UTC, which is exactly the bug this avoids.
func ParseLocalDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar date %q: %w", s, err)
	}
	return t, nil
}

// DaysUntil returns the whole days from now's calendar day to the target
// calendar date. Negative means the date is already past. ok is false when
// the target is absent or unparseable.
func DaysUntil(target string, now time.Time) (days int, ok bool) {
	if target == "" {
		return 0, false
	}
	t, err := ParseLocalDate(target, now.Location())
	if err != nil {
		return 0, false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(math.Floor(t.Sub(today).Hours() / 24)), true
}
