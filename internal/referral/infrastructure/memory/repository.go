// Package memory provides an in-memory referral repository for tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xhris2006/moninvest/internal/referral/domain"
)

// Repository implements domain.Repository in memory.
type Repository struct {
	mu          sync.Mutex
	referrals   []domain.Referral
	commissions []domain.Commission
	balances    map[int64]int64
	names       map[int64]string
	nextID      int64
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		balances: make(map[int64]int64),
		names:    make(map[int64]string),
		nextID:   1,
	}
}

// SetName seeds a display name for referee listings.
func (r *Repository) SetName(userID int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names[userID] = name
}

// Balance reads the credited balance for a user.
func (r *Repository) Balance(userID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID]
}

// RecordSignup stores the referral; an account keeps its first referrer.
func (r *Repository) RecordSignup(_ context.Context, referral *domain.Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.referrals {
		if existing.RefereeID == referral.RefereeID {
			return nil
		}
	}
	referral.ID = r.nextID
	r.nextID++
	referral.CreatedAt = time.Now().UTC()
	r.referrals = append(r.referrals, *referral)
	return nil
}

// PayCommission credits once per user pass.
func (r *Repository) PayCommission(_ context.Context, commission *domain.Commission) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.commissions {
		if existing.UserPassID == commission.UserPassID {
			return false, nil
		}
	}
	commission.ID = r.nextID
	r.nextID++
	commission.CreatedAt = time.Now().UTC()
	r.commissions = append(r.commissions, *commission)
	r.balances[commission.ReferrerID] += commission.Amount
	return true, nil
}

// ListReferees returns referees with commission totals.
func (r *Repository) ListReferees(_ context.Context, referrerID int64) ([]domain.Referee, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var referees []domain.Referee
	for _, referral := range r.referrals {
		if referral.ReferrerID != referrerID {
			continue
		}
		var total int64
		for _, c := range r.commissions {
			if c.ReferrerID == referrerID && c.RefereeID == referral.RefereeID {
				total += c.Amount
			}
		}
		referees = append(referees, domain.Referee{
			UserID:          referral.RefereeID,
			Name:            r.names[referral.RefereeID],
			JoinedAt:        referral.CreatedAt,
			TotalCommission: total,
		})
	}
	return referees, nil
}

// ListCommissions returns the referrer's payouts.
func (r *Repository) ListCommissions(_ context.Context, referrerID int64) ([]domain.Commission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var commissions []domain.Commission
	for _, c := range r.commissions {
		if c.ReferrerID == referrerID {
			commissions = append(commissions, c)
		}
	}
	return commissions, nil
}

// Stats aggregates referral activity.
func (r *Repository) Stats(_ context.Context, referrerID int64) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stats domain.Stats
	for _, referral := range r.referrals {
		if referral.ReferrerID == referrerID {
			stats.RefereeCount++
		}
	}
	for _, c := range r.commissions {
		if c.ReferrerID == referrerID {
			stats.CommissionCount++
			stats.TotalCommission += c.Amount
		}
	}
	return stats, nil
}
