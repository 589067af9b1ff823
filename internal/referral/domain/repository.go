package domain

import "context"

// Repository persists referrals and commissions.
type Repository interface {
	RecordSignup(ctx context.Context, referral *Referral) error

	// PayCommission credits the referrer and stores the commission
	// atomically. It returns false when a commission for the same
	// user pass already exists.
	PayCommission(ctx context.Context, commission *Commission) (bool, error)

	ListReferees(ctx context.Context, referrerID int64) ([]Referee, error)
	ListCommissions(ctx context.Context, referrerID int64) ([]Commission, error)
	Stats(ctx context.Context, referrerID int64) (Stats, error)
}
