package application

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/observability/metrics"
	passdomain "github.com/xhris2006/moninvest/internal/passes/domain"
	"github.com/xhris2006/moninvest/internal/referral/domain"
	userdomain "github.com/xhris2006/moninvest/internal/users/domain"
)

// UserLookup resolves accounts; satisfied by the users repository.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*userdomain.User, error)
}

// Notifier delivers user notifications.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

// Service implements referral recording and commission payout.
type Service struct {
	referrals    domain.Repository
	users        UserLookup
	notifier     Notifier
	commissionBp int64
	logger       *zap.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithNotifier attaches the notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// NewService constructs a referral service. commissionBp is the payout
// rate in basis points of the purchase principal.
func NewService(referrals domain.Repository, users UserLookup, commissionBp int64, logger *zap.Logger, opts ...Option) (*Service, error) {
	if referrals == nil {
		return nil, errors.New("referral: nil repository")
	}
	if users == nil {
		return nil, errors.New("referral: nil user lookup")
	}
	if commissionBp <= 0 || commissionBp > 10000 {
		return nil, errors.New("referral: commission rate out of range")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		referrals:    referrals,
		users:        users,
		commissionBp: commissionBp,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RecordSignup links a referee to its referrer.
func (s *Service) RecordSignup(ctx context.Context, referrerID, refereeID int64) error {
	if referrerID == refereeID {
		return domain.ErrSelfReferral
	}
	referral := &domain.Referral{ReferrerID: referrerID, RefereeID: refereeID}
	if err := s.referrals.RecordSignup(ctx, referral); err != nil {
		return fmt.Errorf("record signup: %w", err)
	}
	return nil
}

// PayPurchaseCommission pays the buyer's referrer for one purchase.
// Buyers without a referrer are a no-op. The unique constraint on the
// user pass makes retries safe.
func (s *Service) PayPurchaseCommission(ctx context.Context, buyerID int64, userPass passdomain.UserPass) error {
	buyer, err := s.users.GetByID(ctx, buyerID)
	if err != nil {
		return fmt.Errorf("resolve buyer: %w", err)
	}
	if buyer.ReferredBy == 0 {
		return nil
	}

	amount, err := domain.CommissionAmount(userPass.Principal, s.commissionBp)
	if err != nil {
		return err
	}

	commission := &domain.Commission{
		ReferrerID: buyer.ReferredBy,
		RefereeID:  buyerID,
		UserPassID: userPass.ID,
		Amount:     amount,
		Status:     domain.CommissionStatusPaid,
	}
	paid, err := s.referrals.PayCommission(ctx, commission)
	if err != nil {
		return fmt.Errorf("pay commission: %w", err)
	}
	if !paid {
		// already paid for this purchase
		return nil
	}

	metrics.ObserveCommission(amount)
	s.logger.Info("referral commission paid",
		zap.Int64("referrer_id", buyer.ReferredBy),
		zap.Int64("referee_id", buyerID),
		zap.Int64("user_pass_id", userPass.ID),
		zap.Int64("amount", amount),
	)

	if s.notifier != nil {
		body := fmt.Sprintf("Vous avez reçu %d FCFA de commission sur l'achat de %s.", amount, buyer.Name)
		if err := s.notifier.Notify(ctx, buyer.ReferredBy, "Commission reçue", body); err != nil {
			s.logger.Warn("commission notification failed", zap.Error(err))
		}
	}
	return nil
}

// Stats summarizes the user's referral activity.
func (s *Service) Stats(ctx context.Context, referrerID int64) (domain.Stats, error) {
	return s.referrals.Stats(ctx, referrerID)
}

// Referees lists the accounts the user referred.
func (s *Service) Referees(ctx context.Context, referrerID int64) ([]domain.Referee, error) {
	return s.referrals.ListReferees(ctx, referrerID)
}

// Commissions lists the user's commission payouts, newest first.
func (s *Service) Commissions(ctx context.Context, referrerID int64) ([]domain.Commission, error) {
	return s.referrals.ListCommissions(ctx, referrerID)
}
