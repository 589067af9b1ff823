package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Run statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// Run triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Run is the audit record of one settlement execution.
type Run struct {
	ID             string
	AsOf           time.Time
	Trigger        string
	StartedAt      time.Time
	FinishedAt     time.Time
	Status         string
	PassesCredited int
	PassesSkipped  int
	PassesFailed   int
	TotalCredited  int64
	ErrorSummary   string
}

// BuildRunID derives a stable run id for a trigger and day.
// Scheduled runs for the same day share an id; manual runs are salted
// with the start time so repeated triggers stay distinguishable.
func BuildRunID(trigger string, asOf, startedAt time.Time) string {
	subject := trigger + "|" + DateKey(asOf)
	if trigger == TriggerManual {
		subject += "|" + startedAt.UTC().Format(time.RFC3339)
	}
	sum := sha1.Sum([]byte(subject))
	return "run-" + hex.EncodeToString(sum[:8])
}

// Duration returns the wall time the run took.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
