package models

import "time"

// DateOnly truncates t to a calendar day in UTC. All ledger dates are stored
// at day precision so that keys compare equal regardless of the source clock.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsCollectionDay reports whether t falls on a Sunday.
func IsCollectionDay(t time.Time) bool {
	return t.Weekday() == time.Sunday
}
