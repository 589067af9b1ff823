// Package memory provides an in-memory claims repository for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xhris2006/moninvest/internal/claims/domain"
)

// Repository implements domain.Repository in memory.
type Repository struct {
	mu     sync.Mutex
	claims map[int64]*domain.Claim
	nextID int64
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{claims: make(map[int64]*domain.Claim), nextID: 1}
}

// Create stores the claim.
func (r *Repository) Create(_ context.Context, claim *domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	claim.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	claim.CreatedAt = now
	claim.UpdatedAt = now
	clone := *claim
	r.claims[claim.ID] = &clone
	return nil
}

// GetByID returns a copy of the stored claim.
func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim, ok := r.claims[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *claim
	return &clone, nil
}

// GetByReference returns a copy of the claim with the given reference.
func (r *Repository) GetByReference(_ context.Context, reference string) (*domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, claim := range r.claims {
		if claim.Reference == reference {
			clone := *claim
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// ListByUser returns the user's claims, newest first.
func (r *Repository) ListByUser(_ context.Context, userID int64) ([]domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Claim
	for _, claim := range r.claims {
		if claim.UserID == userID {
			out = append(out, *claim)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ListOpen returns unresolved claims.
func (r *Repository) ListOpen(_ context.Context) ([]domain.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []domain.Claim
	for _, claim := range r.claims {
		if claim.Status == domain.StatusOpen || claim.Status == domain.StatusInProgress {
			out = append(out, *claim)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Update persists claim changes.
func (r *Repository) Update(_ context.Context, claim *domain.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.claims[claim.ID]; !ok {
		return domain.ErrNotFound
	}
	claim.UpdatedAt = time.Now().UTC()
	clone := *claim
	r.claims[claim.ID] = &clone
	return nil
}
