package domain

import "time"

const dateKeyLayout = "20060102"

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DateKey renders the UTC day of t as YYYYMMDD.
func DateKey(t time.Time) string {
	return t.UTC().Format(dateKeyLayout)
}

// SameDay reports whether a and b fall on the same UTC day.
func SameDay(a, b time.Time) bool {
	return DateKey(a) == DateKey(b)
}
