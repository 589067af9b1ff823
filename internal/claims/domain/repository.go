package domain

import "context"

// Repository persists claims.
type Repository interface {
	Create(ctx context.Context, claim *Claim) error
	GetByID(ctx context.Context, id int64) (*Claim, error)
	GetByReference(ctx context.Context, reference string) (*Claim, error)
	ListByUser(ctx context.Context, userID int64) ([]Claim, error)
	ListOpen(ctx context.Context) ([]Claim, error)
	Update(ctx context.Context, claim *Claim) error
}
