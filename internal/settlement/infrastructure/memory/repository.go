// Package memory provides in-memory settlement repositories for tests
// and local development.
package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

// Repository implements the settlement repositories in memory.
type Repository struct {
	mu       sync.Mutex
	passes   []domain.EligiblePass
	gains    map[string]int64 // "userPassID|dateKey" -> amount
	balances map[int64]int64  // userID -> balance
	runs     []domain.Run

	// CreditErr, when set, fails CreditGain for matching pass ids.
	CreditErr map[int64]error
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		gains:    make(map[string]int64),
		balances: make(map[int64]int64),
	}
}

// AddPass registers a pass as eligible input.
func (r *Repository) AddPass(pass domain.EligiblePass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, pass)
}

// ListEligible returns active passes without a gain for the day.
func (r *Repository) ListEligible(_ context.Context, asOf time.Time) ([]domain.EligiblePass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := domain.DateKey(asOf)
	var eligible []domain.EligiblePass
	for _, pass := range r.passes {
		if !pass.ActiveOn(asOf) {
			continue
		}
		if _, done := r.gains[gainKey(pass.UserPassID, day)]; done {
			continue
		}
		eligible = append(eligible, pass)
	}
	return eligible, nil
}

// CreditGain records the gain and credits the balance once per day.
func (r *Repository) CreditGain(_ context.Context, pass domain.EligiblePass, asOf time.Time, amount int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err, ok := r.CreditErr[pass.UserPassID]; ok && err != nil {
		return false, err
	}

	key := gainKey(pass.UserPassID, domain.DateKey(asOf))
	if _, exists := r.gains[key]; exists {
		return false, nil
	}
	r.gains[key] = amount
	r.balances[pass.UserID] += amount
	return true, nil
}

// SweepExpired drops passes whose end date is past and returns them.
func (r *Repository) SweepExpired(_ context.Context, asOf time.Time) ([]domain.ExpiredPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := domain.DayStart(asOf)
	var kept []domain.EligiblePass
	var expired []domain.ExpiredPass
	for _, pass := range r.passes {
		if domain.DayStart(pass.EndDate).Before(day) {
			expired = append(expired, domain.ExpiredPass{
				UserPassID: pass.UserPassID,
				UserID:     pass.UserID,
				PassName:   pass.PassName,
			})
			continue
		}
		kept = append(kept, pass)
	}
	r.passes = kept
	return expired, nil
}

// RecordRun stores a run row.
func (r *Repository) RecordRun(_ context.Context, run domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	return nil
}

// ListRuns returns recorded runs newest first.
func (r *Repository) ListRuns(_ context.Context, limit int) ([]domain.Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make([]domain.Run, len(r.runs))
	copy(runs, r.runs)
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Balance returns the in-memory balance for a user.
func (r *Repository) Balance(userID int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID]
}

// GainAmount returns the recorded gain for a pass and day, if any.
func (r *Repository) GainAmount(userPassID int64, day time.Time) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	amount, ok := r.gains[gainKey(userPassID, domain.DateKey(day))]
	return amount, ok
}

// Runs returns all recorded runs oldest first.
func (r *Repository) Runs() []domain.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	runs := make([]domain.Run, len(r.runs))
	copy(runs, r.runs)
	return runs
}

func gainKey(userPassID int64, day string) string {
	return strconv.FormatInt(userPassID, 10) + "|" + day
}
