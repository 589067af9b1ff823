package domain

import (
	"context"
	"time"
)

// PassRepository lists passes due for accrual and credits gains.
type PassRepository interface {
	// ListEligible returns active passes without a daily_gain
	// transaction for the given day.
	ListEligible(ctx context.Context, asOf time.Time) ([]EligiblePass, error)

	// CreditGain records the daily_gain transaction and credits the
	// user balance atomically. It returns false when the (pass, day)
	// gain already exists and nothing was written.
	CreditGain(ctx context.Context, pass EligiblePass, asOf time.Time, amount int64) (bool, error)

	// SweepExpired moves passes whose end date is past from active to
	// expired and returns the passes that changed.
	SweepExpired(ctx context.Context, asOf time.Time) ([]ExpiredPass, error)
}

// ExpiredPass identifies a pass the sweep moved to expired.
type ExpiredPass struct {
	UserPassID int64
	UserID     int64
	PassName   string
}

// RunRepository persists settlement run audit rows.
type RunRepository interface {
	RecordRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}
