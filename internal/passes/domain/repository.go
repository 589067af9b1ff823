package domain

import (
	"context"
	"time"
)

// CatalogueRepository lists and fetches catalogue passes.
type CatalogueRepository interface {
	ListActive(ctx context.Context) ([]Pass, error)
	GetByID(ctx context.Context, id int64) (*Pass, error)
}

// UserPassRepository persists purchased passes.
type UserPassRepository interface {
	// Purchase debits the buyer and creates the user pass and its
	// purchase transaction atomically.
	Purchase(ctx context.Context, userID int64, pass Pass, startDate time.Time) (*UserPass, error)

	ListByUser(ctx context.Context, userID int64, status string) ([]UserPass, error)
	GetUserPass(ctx context.Context, id int64) (*UserPass, error)
}
