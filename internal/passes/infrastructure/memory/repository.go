// Package memory provides in-memory pass repositories for tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xhris2006/moninvest/internal/passes/domain"
)

// Repository implements the catalogue and user pass repositories in
// memory. Balances live here so Purchase can enforce sufficiency.
type Repository struct {
	mu         sync.Mutex
	passes     map[int64]domain.Pass
	userPasses map[int64]*domain.UserPass
	balances   map[int64]int64
	nextID     int64
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		passes:     make(map[int64]domain.Pass),
		userPasses: make(map[int64]*domain.UserPass),
		balances:   make(map[int64]int64),
		nextID:     1,
	}
}

// AddPass seeds a catalogue pass.
func (r *Repository) AddPass(pass domain.Pass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes[pass.ID] = pass
}

// SetBalance seeds a user balance.
func (r *Repository) SetBalance(userID, balance int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] = balance
}

// Balance reads a user balance.
func (r *Repository) Balance(userID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID]
}

// ListActive returns active catalogue passes.
func (r *Repository) ListActive(_ context.Context) ([]domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var passes []domain.Pass
	for _, pass := range r.passes {
		if pass.Active {
			passes = append(passes, pass)
		}
	}
	return passes, nil
}

// GetByID returns one catalogue pass.
func (r *Repository) GetByID(_ context.Context, id int64) (*domain.Pass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pass, ok := r.passes[id]
	if !ok {
		return nil, domain.ErrPassNotFound
	}
	return &pass, nil
}

// Purchase debits the balance and stores the user pass.
func (r *Repository) Purchase(_ context.Context, userID int64, pass domain.Pass, startDate time.Time) (*domain.UserPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.balances[userID] < pass.Price {
		return nil, domain.ErrInsufficientBalance
	}
	r.balances[userID] -= pass.Price

	start := startDate.UTC().Truncate(24 * time.Hour)
	up := &domain.UserPass{
		ID:          r.nextID,
		UserID:      userID,
		PassID:      pass.ID,
		PassName:    pass.Name,
		Principal:   pass.Price,
		DailyRateBp: pass.DailyRateBp,
		StartDate:   start,
		EndDate:     pass.AccrualEnd(start),
		Status:      domain.StatusActive,
		CreatedAt:   time.Now().UTC(),
	}
	r.nextID++
	r.userPasses[up.ID] = up
	clone := *up
	return &clone, nil
}

// ListByUser returns the user's passes, optionally filtered by status.
func (r *Repository) ListByUser(_ context.Context, userID int64, status string) ([]domain.UserPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var passes []domain.UserPass
	for _, up := range r.userPasses {
		if up.UserID != userID {
			continue
		}
		if status != "" && up.Status != status {
			continue
		}
		passes = append(passes, *up)
	}
	return passes, nil
}

// GetUserPass returns one user pass.
func (r *Repository) GetUserPass(_ context.Context, id int64) (*domain.UserPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	up, ok := r.userPasses[id]
	if !ok {
		return nil, domain.ErrPassNotFound
	}
	clone := *up
	return &clone, nil
}
