// Package models defines the shared data types for pomo.
package models

import "time"

// Snapshot is the externally published representation of the timer state at
// a point in time. It is rewritten in full on every publish and consumed by
// any process with read access to the state file.
type Snapshot struct {
	AppPID        int     `json:"appPid"`
	Phase         string  `json:"phase"`
	TimeRemaining int     `json:"timeRemaining"`
	SessionCount  int     `json:"sessionCount"`
	IsRunning     bool    `json:"isRunning"`
	LastUpdate    float64 `json:"lastUpdateTimestamp"`
}

// SameState reports whether two snapshots carry the same timer state. The
// publish timestamp is assigned at write time and is deliberately excluded
// from the comparison.
func (s Snapshot) SameState(other Snapshot) bool {
	return s.AppPID == other.AppPID &&
		s.Phase == other.Phase &&
		s.TimeRemaining == other.TimeRemaining &&
		s.SessionCount == other.SessionCount &&
		s.IsRunning == other.IsRunning
}

// Age returns how long ago the snapshot was published.
func (s Snapshot) Age(now time.Time) time.Duration {
	published := time.Unix(0, int64(s.LastUpdate*float64(time.Second)))
	return now.Sub(published)
}
