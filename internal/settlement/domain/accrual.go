package domain

import (
	"errors"
	"time"
)

// Amounts are integer FCFA; rates are basis points (1000 bp = 10.00%/day).
const bpDenominator = 10000

// ErrInvalidPrincipal is returned for non-positive principals.
var ErrInvalidPrincipal = errors.New("settlement: principal must be positive")

// ErrInvalidRate is returned for rates outside (0, 10000] basis points.
var ErrInvalidRate = errors.New("settlement: daily rate out of range")

// DailyAccrual computes one day of gain, rounding half-up.
func DailyAccrual(principal int64, dailyRateBp int64) (int64, error) {
	if principal <= 0 {
		return 0, ErrInvalidPrincipal
	}
	if dailyRateBp <= 0 || dailyRateBp > bpDenominator {
		return 0, ErrInvalidRate
	}
	return (principal*dailyRateBp + bpDenominator/2) / bpDenominator, nil
}

// EligiblePass is an active pass due for a daily accrual.
type EligiblePass struct {
	UserPassID  int64
	UserID      int64
	PassID      int64
	PassName    string
	Principal   int64
	DailyRateBp int64
	StartDate   time.Time
	EndDate     time.Time
}

// Validate checks the pass fields needed to accrue.
func (p EligiblePass) Validate() error {
	if p.UserPassID <= 0 {
		return errors.New("settlement: missing user pass id")
	}
	if p.UserID <= 0 {
		return errors.New("settlement: missing user id")
	}
	if p.Principal <= 0 {
		return ErrInvalidPrincipal
	}
	if p.DailyRateBp <= 0 || p.DailyRateBp > bpDenominator {
		return ErrInvalidRate
	}
	return nil
}

// ActiveOn reports whether the pass accrues on the given day.
// A pass accrues from its start date through its end date inclusive;
// it expires only once the day is past the end date.
func (p EligiblePass) ActiveOn(asOf time.Time) bool {
	day := DayStart(asOf)
	return !day.Before(DayStart(p.StartDate)) && !day.After(DayStart(p.EndDate))
}

// DaysRemaining derives the remaining accrual days; never persisted.
func (p EligiblePass) DaysRemaining(asOf time.Time) int {
	remaining := int(DayStart(p.EndDate).Sub(DayStart(asOf)).Hours() / 24)
	if remaining < 0 {
		return 0
	}
	return remaining
}
