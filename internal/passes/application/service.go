package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/passes/domain"
)

// CommissionPayer pays the referral commission after a purchase has
// been committed. A payment failure never unwinds the purchase.
type CommissionPayer interface {
	PayPurchaseCommission(ctx context.Context, buyerID int64, userPass domain.UserPass) error
}

// Notifier delivers user notifications.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

// Publisher emits pass lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

// PassPurchased is published after a successful purchase.
type PassPurchased struct {
	UserID     int64     `json:"user_id"`
	UserPassID int64     `json:"user_pass_id"`
	PassID     int64     `json:"pass_id"`
	PassName   string    `json:"pass_name"`
	Principal  int64     `json:"principal"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Service implements the pass catalogue and purchase operations.
type Service struct {
	catalogue  domain.CatalogueRepository
	userPasses domain.UserPassRepository
	commission CommissionPayer
	notifier   Notifier
	publisher  Publisher
	clock      Clock
	logger     *zap.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithCommissionPayer attaches referral commission payment.
func WithCommissionPayer(payer CommissionPayer) Option {
	return func(s *Service) { s.commission = payer }
}

// WithNotifier attaches the notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithPublisher attaches the event publisher.
func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a pass service.
func NewService(catalogue domain.CatalogueRepository, userPasses domain.UserPassRepository, logger *zap.Logger, opts ...Option) (*Service, error) {
	if catalogue == nil {
		return nil, errors.New("passes: nil catalogue repository")
	}
	if userPasses == nil {
		return nil, errors.New("passes: nil user pass repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		catalogue:  catalogue,
		userPasses: userPasses,
		clock:      systemClock{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Catalogue lists purchasable passes.
func (s *Service) Catalogue(ctx context.Context) ([]domain.Pass, error) {
	return s.catalogue.ListActive(ctx)
}

// Details returns one catalogue pass.
func (s *Service) Details(ctx context.Context, passID int64) (*domain.Pass, error) {
	return s.catalogue.GetByID(ctx, passID)
}

// Calculate projects the return of a catalogue pass.
func (s *Service) Calculate(ctx context.Context, passID int64) (domain.Projection, error) {
	pass, err := s.catalogue.GetByID(ctx, passID)
	if err != nil {
		return domain.Projection{}, err
	}
	return pass.Project()
}

// Purchase buys a pass with the user's balance. The commission and
// notification run after the purchase is committed.
func (s *Service) Purchase(ctx context.Context, userID, passID int64) (*domain.UserPass, error) {
	if userID <= 0 {
		return nil, errors.New("passes: invalid user id")
	}
	pass, err := s.catalogue.GetByID(ctx, passID)
	if err != nil {
		return nil, err
	}
	if !pass.Active {
		return nil, domain.ErrPassNotFound
	}

	startDate := s.clock.Now()
	userPass, err := s.userPasses.Purchase(ctx, userID, *pass, startDate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("pass purchased",
		zap.Int64("user_id", userID),
		zap.Int64("user_pass_id", userPass.ID),
		zap.String("pass", pass.Name),
		zap.Int64("principal", userPass.Principal),
	)

	if s.commission != nil {
		if err := s.commission.PayPurchaseCommission(ctx, userID, *userPass); err != nil {
			// the purchase stands; the commission can be replayed
			s.logger.Error("paying referral commission failed",
				zap.Int64("user_pass_id", userPass.ID),
				zap.Error(err),
			)
		}
	}

	if s.publisher != nil {
		event := PassPurchased{
			UserID:     userID,
			UserPassID: userPass.ID,
			PassID:     pass.ID,
			PassName:   pass.Name,
			Principal:  userPass.Principal,
			OccurredAt: s.clock.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("publishing purchase event failed", zap.Error(err))
		}
	}

	s.notify(ctx, userID, "Achat confirmé",
		fmt.Sprintf("Votre %s est actif jusqu'au %s.", pass.Name, userPass.EndDate.Format("02/01/2006")))
	return userPass, nil
}

// Active lists the user's active passes.
func (s *Service) Active(ctx context.Context, userID int64) ([]domain.UserPass, error) {
	return s.userPasses.ListByUser(ctx, userID, domain.StatusActive)
}

// History lists every pass the user has bought, newest first.
func (s *Service) History(ctx context.Context, userID int64) ([]domain.UserPass, error) {
	return s.userPasses.ListByUser(ctx, userID, "")
}

// Now exposes the service clock for presentation (days remaining).
func (s *Service) Now() time.Time {
	return s.clock.Now()
}

func (s *Service) notify(ctx context.Context, userID int64, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body); err != nil {
		s.logger.Warn("notification failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
