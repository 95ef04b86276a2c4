// Package timeutil provides calendar helpers for the tutoring scheduler.
// All instants are handled in UTC.
// No external dependencies - uses only standard library.
package timeutil

import (
	"time"
)

// Now returns the current time in UTC.
func Now() time.Time {
	return time.Now().UTC()
}

// StartOfDay returns the start of the day (00:00:00) in UTC.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay checks whether two instants fall on the same UTC calendar day.
func SameDay(a, b time.Time) bool {
	au, bu := a.UTC(), b.UTC()
	return au.Year() == bu.Year() && au.Month() == bu.Month() && au.Day() == bu.Day()
}
