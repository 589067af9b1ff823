package domain

import (
	"errors"
	"time"
)

// CommissionStatusPaid marks a commission credited to the referrer.
const CommissionStatusPaid = "paid"

// Referral links a referrer to a referee account.
type Referral struct {
	ID         int64
	ReferrerID int64
	RefereeID  int64
	CreatedAt  time.Time
}

// Commission is a referral payout for one pass purchase. Amount is
// integer FCFA. UserPassID makes the payout idempotent per purchase.
type Commission struct {
	ID         int64
	ReferrerID int64
	RefereeID  int64
	UserPassID int64
	Amount     int64
	Status     string
	CreatedAt  time.Time
}

// Referee is a referral list row enriched with account details.
type Referee struct {
	UserID          int64
	Name            string
	JoinedAt        time.Time
	TotalCommission int64
}

// Stats summarizes a referrer's activity.
type Stats struct {
	RefereeCount    int
	CommissionCount int
	TotalCommission int64
}

// ErrSelfReferral is returned when an account refers itself.
var ErrSelfReferral = errors.New("referral: self referral")

// CommissionAmount computes the payout for a purchase, rounding
// half-up. rateBp is basis points of the principal.
func CommissionAmount(principal, rateBp int64) (int64, error) {
	if principal <= 0 {
		return 0, errors.New("referral: principal must be positive")
	}
	if rateBp <= 0 || rateBp > 10000 {
		return 0, errors.New("referral: commission rate out of range")
	}
	return (principal*rateBp + 5000) / 10000, nil
}
