package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/claims/domain"
)

// Notifier delivers user notifications.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

// Service implements the claims workflow.
type Service struct {
	claims   domain.Repository
	notifier Notifier
	logger   *zap.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithNotifier attaches the notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// NewService constructs a claims service.
func NewService(claims domain.Repository, logger *zap.Logger, opts ...Option) (*Service, error) {
	if claims == nil {
		return nil, errors.New("claims: nil repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{claims: claims, logger: logger}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateInput carries a new claim.
type CreateInput struct {
	UserID   int64
	Category string
	Priority string
	Subject  string
	Body     string
}

// Create files a claim and assigns its reference.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Claim, error) {
	if input.Priority == "" {
		input.Priority = domain.PriorityNormal
	}
	claim := &domain.Claim{
		UserID:   input.UserID,
		Category: input.Category,
		Priority: input.Priority,
		Subject:  strings.TrimSpace(input.Subject),
		Body:     strings.TrimSpace(input.Body),
		Status:   domain.StatusOpen,
	}
	if err := claim.Validate(); err != nil {
		return nil, err
	}

	reference, err := domain.NewReference()
	if err != nil {
		return nil, fmt.Errorf("claim reference: %w", err)
	}
	claim.Reference = reference

	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.logger.Info("claim filed",
		zap.String("reference", claim.Reference),
		zap.Int64("user_id", claim.UserID),
		zap.String("category", claim.Category),
		zap.String("priority", claim.Priority),
	)
	s.notify(ctx, claim.UserID, "Réclamation enregistrée",
		fmt.Sprintf("Votre réclamation %s a bien été enregistrée.", claim.Reference))
	return claim, nil
}

// ListByUser returns the user's claims, newest first.
func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Claim, error) {
	return s.claims.ListByUser(ctx, userID)
}

// GetByReference returns the claim with the given public reference.
// Only the claimant sees their claim; admins see all.
func (s *Service) GetByReference(ctx context.Context, reference string, userID int64, admin bool) (*domain.Claim, error) {
	claim, err := s.claims.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !admin && claim.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return claim, nil
}

// ListOpen returns unresolved claims for the admin queue.
func (s *Service) ListOpen(ctx context.Context) ([]domain.Claim, error) {
	return s.claims.ListOpen(ctx)
}

// UpdateStatus moves a claim through its workflow and notifies the
// claimant when a response is attached.
func (s *Service) UpdateStatus(ctx context.Context, claimID int64, status, response string) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(claim.Status, status) {
		return nil, domain.ErrInvalidTransition
	}

	claim.Status = status
	if response != "" {
		claim.AdminResponse = response
	}
	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, fmt.Errorf("update claim: %w", err)
	}

	s.logger.Info("claim updated",
		zap.String("reference", claim.Reference),
		zap.String("status", claim.Status),
	)
	if response != "" {
		s.notify(ctx, claim.UserID, "Réponse à votre réclamation",
			fmt.Sprintf("Réclamation %s : %s", claim.Reference, response))
	}
	return claim, nil
}

func (s *Service) notify(ctx context.Context, userID int64, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body); err != nil {
		s.logger.Warn("notification failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
