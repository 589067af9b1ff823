package domain

import (
	"context"
	"time"
)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByReferralCode(ctx context.Context, code string) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
	RecordLogin(ctx context.Context, userID int64, at time.Time) error

	// SetVerificationToken stores the pending email verification token.
	SetVerificationToken(ctx context.Context, userID int64, token string) error
	// VerifyEmail marks the token's account verified, clears the token
	// and returns the account id. ErrTokenInvalid for unknown tokens.
	VerifyEmail(ctx context.Context, token string) (int64, error)
	// SetResetToken stores a password reset token with its expiry.
	SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error
	// ResetPassword swaps the password hash for the account holding an
	// unexpired token and clears the token. ErrTokenInvalid otherwise.
	ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (int64, error)
}
