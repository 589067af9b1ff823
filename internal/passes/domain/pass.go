package domain

import (
	"errors"
	"time"
)

// User pass statuses.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Pass is a catalogue investment product. Price is integer FCFA, the
// daily rate is basis points.
type Pass struct {
	ID           int64
	Name         string
	Price        int64
	DailyRateBp  int64
	DurationDays int
	Active       bool
}

// UserPass is a purchased pass instance. Principal snapshots the price
// at purchase time so later catalogue edits do not change accruals.
type UserPass struct {
	ID          int64
	UserID      int64
	PassID      int64
	PassName    string
	Principal   int64
	DailyRateBp int64
	StartDate   time.Time
	EndDate     time.Time
	Status      string
	CreatedAt   time.Time
}

// ErrPassNotFound is returned for unknown or inactive catalogue passes.
var ErrPassNotFound = errors.New("passes: pass not found")

// ErrInsufficientBalance is returned when the buyer cannot cover the price.
var ErrInsufficientBalance = errors.New("passes: insufficient balance")

// AccrualEnd returns the last day a pass bought on startDate accrues:
// the start date plus duration-1, so the term yields exactly
// DurationDays daily gains, end date included.
func (p Pass) AccrualEnd(startDate time.Time) time.Time {
	return dayStart(startDate).AddDate(0, 0, p.DurationDays-1)
}

// DaysRemaining derives the days remaining as end date minus the
// current day, never stored and decremented.
func (p UserPass) DaysRemaining(asOf time.Time) int {
	end := dayStart(p.EndDate)
	day := dayStart(asOf)
	remaining := int(end.Sub(day).Hours() / 24)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ExpiredOn reports whether the pass is past its end date.
func (p UserPass) ExpiredOn(asOf time.Time) bool {
	return dayStart(p.EndDate).Before(dayStart(asOf))
}

// Projection is the simulated return of a pass.
type Projection struct {
	Principal   int64
	DailyGain   int64
	Days        int
	TotalGain   int64
	TotalReturn int64
}

// Project computes the expected daily and total gain of a pass,
// rounding each daily accrual half-up the same way settlement does.
func (p Pass) Project() (Projection, error) {
	if p.Price <= 0 {
		return Projection{}, errors.New("passes: invalid price")
	}
	if p.DailyRateBp <= 0 || p.DailyRateBp > 10000 {
		return Projection{}, errors.New("passes: invalid daily rate")
	}
	if p.DurationDays <= 0 {
		return Projection{}, errors.New("passes: invalid duration")
	}
	daily := (p.Price*p.DailyRateBp + 5000) / 10000
	total := daily * int64(p.DurationDays)
	return Projection{
		Principal:   p.Price,
		DailyGain:   daily,
		Days:        p.DurationDays,
		TotalGain:   total,
		TotalReturn: p.Price + total,
	}, nil
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
