// Package memory provides an in-memory user repository for tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xhris2006/moninvest/internal/users/domain"
)

type resetEntry struct {
	userID    int64
	expiresAt time.Time
}

// Repository implements domain.Repository in memory.
type Repository struct {
	mu                 sync.Mutex
	nextID             int64
	users              map[int64]*domain.User
	verificationTokens map[string]int64
	resetTokens        map[string]resetEntry
}

// NewRepository constructs an empty repository.
func NewRepository() *Repository {
	return &Repository{
		nextID:             1,
		users:              make(map[int64]*domain.User),
		verificationTokens: make(map[string]int64),
		resetTokens:        make(map[string]resetEntry),
	}
}

// Create stores the user, enforcing unique email, phone and referral code.
func (r *Repository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
		if user.Phone != "" && existing.Phone == user.Phone {
			return domain.ErrPhoneTaken
		}
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

// GetByID returns a copy of the stored user.
func (r *Repository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// GetByEmail returns the user with the given email.
func (r *Repository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetByReferralCode returns the owner of the code.
func (r *Repository) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ReferralCode == code {
			clone := *user
			return &clone, nil
		}
	}
	return nil, domain.ErrNotFound
}

// UpdateProfile persists name and phone changes.
func (r *Repository) UpdateProfile(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for _, existing := range r.users {
		if existing.ID != user.ID && user.Phone != "" && existing.Phone == user.Phone {
			return domain.ErrPhoneTaken
		}
	}
	stored.Name = user.Name
	stored.Phone = user.Phone
	stored.UpdatedAt = time.Now().UTC()
	user.UpdatedAt = stored.UpdatedAt
	return nil
}

// RecordLogin stamps the last successful login.
func (r *Repository) RecordLogin(_ context.Context, userID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	user.LastLoginAt = at.UTC()
	return nil
}

// SetVerificationToken stores the pending email verification token.
func (r *Repository) SetVerificationToken(_ context.Context, userID int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return domain.ErrNotFound
	}
	r.verificationTokens[token] = userID
	return nil
}

// VerifyEmail marks the token's account verified and clears the token.
func (r *Repository) VerifyEmail(_ context.Context, token string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userID, ok := r.verificationTokens[token]
	if !ok {
		return 0, domain.ErrTokenInvalid
	}
	delete(r.verificationTokens, token)
	if user, exists := r.users[userID]; exists {
		user.Verified = true
		user.UpdatedAt = time.Now().UTC()
	}
	return userID, nil
}

// SetResetToken stores a password reset token with its expiry.
func (r *Repository) SetResetToken(_ context.Context, userID int64, token string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[userID]; !ok {
		return domain.ErrNotFound
	}
	r.resetTokens[token] = resetEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

// ResetPassword swaps the password hash for an unexpired token.
func (r *Repository) ResetPassword(_ context.Context, token, passwordHash string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.resetTokens[token]
	if !ok || !entry.expiresAt.After(now) {
		return 0, domain.ErrTokenInvalid
	}
	delete(r.resetTokens, token)
	user, exists := r.users[entry.userID]
	if !exists {
		return 0, domain.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = now.UTC()
	return entry.userID, nil
}

// VerificationToken returns the user's pending token; used by tests.
func (r *Repository) VerificationToken(userID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, id := range r.verificationTokens {
		if id == userID {
			return token
		}
	}
	return ""
}

// ResetToken returns the user's pending reset token; used by tests.
func (r *Repository) ResetToken(userID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for token, entry := range r.resetTokens {
		if entry.userID == userID {
			return token
		}
	}
	return ""
}

// Credit adds to a user's balance; used by tests.
func (r *Repository) Credit(id int64, amount int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		user.Balance += amount
	}
}

// Suspend marks the account suspended; used by tests.
func (r *Repository) Suspend(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		user.Status = domain.StatusSuspended
	}
}
