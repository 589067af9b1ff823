package domain

import (
	"context"
	"time"
)

// Repository reads the transaction ledger.
type Repository interface {
	ListByUser(ctx context.Context, userID int64, filter Filter) ([]Transaction, error)

	// ListForMonth returns the user's transactions created within the
	// calendar month starting at monthStart, oldest first.
	ListForMonth(ctx context.Context, userID int64, monthStart time.Time) ([]Transaction, error)
}
