// Package memory provides an in-memory ledger repository for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xhris2006/moninvest/internal/ledger/domain"
)

// Repository implements domain.Repository in memory.
type Repository struct {
	mu           sync.Mutex
	transactions []domain.Transaction
	nextID       int64
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{nextID: 1}
}

// Add stores one transaction.
func (r *Repository) Add(tx domain.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx.ID = r.nextID
	r.nextID++
	r.transactions = append(r.transactions, tx)
}

// ListByUser returns the user's transactions, newest first.
func (r *Repository) ListByUser(_ context.Context, userID int64, filter domain.Filter) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Transaction
	for _, tx := range r.transactions {
		if tx.UserID != userID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// ListForMonth returns the user's transactions for one month, oldest first.
func (r *Repository) ListForMonth(_ context.Context, userID int64, monthStart time.Time) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	monthEnd := monthStart.AddDate(0, 1, 0)
	var out []domain.Transaction
	for _, tx := range r.transactions {
		if tx.UserID != userID {
			continue
		}
		if tx.CreatedAt.Before(monthStart) || !tx.CreatedAt.Before(monthEnd) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
