package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Claim statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
	StatusClosed     = "closed"
)

// Claim categories.
const (
	CategoryPayment  = "payment"
	CategoryAccount  = "account"
	CategoryPass     = "pass"
	CategoryReferral = "referral"
	CategoryOther    = "other"
)

// Claim priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Claim is a user support request.
type Claim struct {
	ID            int64
	Reference     string
	UserID        int64
	Category      string
	Priority      string
	Subject       string
	Body          string
	Status        string
	AdminResponse string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ErrNotFound is returned when no claim matches.
var ErrNotFound = errors.New("claims: not found")

// ErrInvalidTransition is returned for disallowed status changes.
var ErrInvalidTransition = errors.New("claims: invalid status transition")

// NewReference builds a human-facing claim reference, e.g. RECL-3FA29C.
func NewReference() (string, error) {
	raw := make([]byte, 3)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return "RECL-" + strings.ToUpper(hex.EncodeToString(raw)), nil
}

// ValidCategory reports whether the category is known.
func ValidCategory(category string) bool {
	switch category {
	case CategoryPayment, CategoryAccount, CategoryPass, CategoryReferral, CategoryOther:
		return true
	}
	return false
}

// ValidPriority reports whether the priority is known.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus reports whether the status is known.
func ValidStatus(status string) bool {
	switch status {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// CanTransition reports whether a claim may move between two statuses.
// Closed claims stay closed.
func CanTransition(from, to string) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from == StatusClosed {
		return false
	}
	if from == to {
		return false
	}
	return true
}

// Validate checks the user-supplied claim fields.
func (c Claim) Validate() error {
	if c.UserID <= 0 {
		return errors.New("claims: missing user id")
	}
	if strings.TrimSpace(c.Subject) == "" {
		return errors.New("claims: subject is required")
	}
	if strings.TrimSpace(c.Body) == "" {
		return errors.New("claims: body is required")
	}
	if !ValidCategory(c.Category) {
		return errors.New("claims: unknown category")
	}
	if !ValidPriority(c.Priority) {
		return errors.New("claims: unknown priority")
	}
	return nil
}
