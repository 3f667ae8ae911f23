// Package weekkey converts between calendar dates and ISO week keys of the
// form "YYYY-WW". Weeks start on Monday and week 1 is the week containing the
// year's first Thursday.
//
// The server reminder sweep computes keys with the same functions, so client
// and server always agree on week boundaries.
package weekkey

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var pattern = regexp.MustCompile(`^\d{4}-(0[1-9]|[1-4][0-9]|5[0-3])$`)

// FormatError reports a string that is not a zero-padded "YYYY-WW" key, or
// names week 53 of a year that has only 52 weeks.
type FormatError struct {
	Key string
	// WeeksInYear is set when the key is well formed but out of range.
	WeeksInYear int
}

func (e *FormatError) Error() string {
	if e.WeeksInYear > 0 {
		return fmt.Sprintf("invalid week key %q: %s has only %d weeks", e.Key, e.Key[:4], e.WeeksInYear)
	}
	return fmt.Sprintf("invalid week key %q: expected YYYY-WW with week 01-53", e.Key)
}

// Key is a parsed week key.
type Key struct {
	Year int
	Week int
}

func (k Key) String() string {
	return Format(k.Year, k.Week)
}

// Format renders a year and week number as a zero-padded key.
func Format(year, week int) string {
	return fmt.Sprintf("%04d-%02d", year, week)
}

// Validate returns a *FormatError when key does not match the week key
// pattern or names a week its year does not have.
func Validate(key string) error {
	_, err := Parse(key)
	return err
}

// Parse splits a week key into its ISO year and week number.
func Parse(key string) (Key, error) {
	if !pattern.MatchString(key) {
		return Key{}, &FormatError{Key: key}
	}
	year, _ := strconv.Atoi(key[:4])
	week, _ := strconv.Atoi(key[5:])
	if week == 53 {
		if n := WeeksInYear(year); n < 53 {
			return Key{}, &FormatError{Key: key, WeeksInYear: n}
		}
	}
	return Key{Year: year, Week: week}, nil
}

// Of returns the week key for the calendar date of t in t's own location.
func Of(t time.Time) string {
	year, week := isoWeek(t.Year(), t.Month(), t.Day())
	return Format(year, week)
}

// InLocation returns the week key of the instant t as observed in loc. A nil
// loc falls back to UTC.
func InLocation(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return Of(t.In(loc))
}

// isoWeek shifts the date to the Thursday of its week and counts weeks from
// January 1st of that Thursday's year.
func isoWeek(year int, month time.Month, day int) (int, int) {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	dayNum := int(d.Weekday())
	if dayNum == 0 {
		dayNum = 7
	}
	thursday := d.AddDate(0, 0, 4-dayNum)
	yearStart := time.Date(thursday.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(thursday.Sub(yearStart).Hours() / 24)
	return thursday.Year(), days/7 + 1
}

// WeekStart returns midnight on the Monday that starts the given ISO week.
func WeekStart(week, year int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	// January 4th always falls in week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset)
	return monday.AddDate(0, 0, (week-1)*7)
}

// WeekEnd returns the Sunday six days after start.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 6)
}

// WeeksInYear reports 52 or 53. When December 31st belongs to week 1 of the
// following year the year has exactly 52 weeks.
func WeeksInYear(year int) int {
	_, last := isoWeek(year, time.December, 31)
	if last == 1 {
		return 52
	}
	if last > 53 {
		return 53
	}
	return last
}

// Bounds returns the Monday and Sunday of the week named by key.
func Bounds(key string, loc *time.Location) (time.Time, time.Time, error) {
	k, err := Parse(key)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := WeekStart(k.Week, k.Year, loc)
	return start, WeekEnd(start), nil
}
