// Package timeutil provides helpers for formatting countdown values.
package timeutil

import "time"

// Remainder is the time remaining in an active session.
type Remainder struct {
	T int // total seconds
	M int // minutes
	S int // seconds
}

// SecsToRemainder splits a number of seconds into minutes and seconds.
func SecsToRemainder(secs int) Remainder {
	if secs < 0 {
		secs = 0
	}

	return Remainder{
		T: secs,
		M: secs / 60,
		S: secs % 60,
	}
}

// ToDayKey formats a time as a datastore key for its calendar day.
func ToDayKey(t time.Time) []byte {
	return []byte(t.Format(time.DateOnly))
}
