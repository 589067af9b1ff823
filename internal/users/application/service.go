package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/users/domain"
)

// SignupRecorder links a new account to its referrer.
type SignupRecorder interface {
	RecordSignup(ctx context.Context, referrerID, refereeID int64) error
}

// Notifier delivers user notifications. Failures never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

const (
	referralCodeAttempts = 5
	resetTokenTTL        = time.Hour
)

// Service implements registration, login and profile access.
type Service struct {
	users     domain.Repository
	referrals SignupRecorder
	notifier  Notifier
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

// Option customizes the service.
type Option func(*Service)

// WithSignupRecorder attaches referral recording.
func WithSignupRecorder(recorder SignupRecorder) Option {
	return func(s *Service) { s.referrals = recorder }
}

// WithNotifier attaches the notifier.
func WithNotifier(notifier Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// NewService constructs a user service.
func NewService(users domain.Repository, jwtSecret []byte, tokenTTL time.Duration, logger *zap.Logger, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("users: nil repository")
	}
	if len(jwtSecret) == 0 {
		return nil, errors.New("users: empty jwt secret")
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	service := &Service{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// RegisterInput carries the signup form.
type RegisterInput struct {
	Name         string
	Email        string
	Phone        string
	Password     string
	ReferralCode string
}

// AuthResult is a signed token plus the account it belongs to.
type AuthResult struct {
	Token string
	User  *domain.User
}

// Register creates an account, links the referrer when a valid code is
// given, and returns a signed token. An unknown referral code is
// ignored rather than rejected.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("users: name is required")
	}
	email := domain.NormalizeEmail(input.Email)
	if err := domain.ValidateEmail(email); err != nil {
		return nil, err
	}
	phone := domain.NormalizePhone(input.Phone)
	if err := domain.ValidatePhone(phone); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	var referrer *domain.User
	if code := strings.ToUpper(strings.TrimSpace(input.ReferralCode)); code != "" {
		referrer, err = s.users.GetByReferralCode(ctx, code)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("resolve referral code: %w", err)
		}
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
		Role:         string(auth.RoleUser),
		Status:       domain.StatusActive,
	}
	if referrer != nil {
		user.ReferredBy = referrer.ID
	}

	if err := s.createWithUniqueCode(ctx, user); err != nil {
		return nil, err
	}

	if referrer != nil && s.referrals != nil {
		if err := s.referrals.RecordSignup(ctx, referrer.ID, user.ID); err != nil {
			s.logger.Error("recording referral signup failed",
				zap.Int64("referrer_id", referrer.ID),
				zap.Int64("referee_id", user.ID),
				zap.Error(err),
			)
		}
	}

	s.issueVerificationToken(ctx, user.ID)

	s.notify(ctx, user.ID, "Bienvenue sur Mon Invest",
		fmt.Sprintf("Bienvenue %s ! Votre code de parrainage est %s.", user.Name, user.ReferralCode))
	if referrer != nil {
		s.notify(ctx, referrer.ID, "Nouveau filleul",
			fmt.Sprintf("%s vient de s'inscrire avec votre code.", user.Name))
	}

	token, err := auth.IssueJWT(user.ID, user.Email, auth.Role(user.Role), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.Int64("user_id", user.ID), zap.Bool("referred", referrer != nil))
	return &AuthResult{Token: token, User: user}, nil
}

// createWithUniqueCode retries code generation on collisions.
func (s *Service) createWithUniqueCode(ctx context.Context, user *domain.User) error {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := domain.GenerateReferralCode(user.Name)
		if err != nil {
			return err
		}
		user.ReferralCode = code
		err = s.users.Create(ctx, user)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrEmailTaken) || errors.Is(err, domain.ErrPhoneTaken) {
			return err
		}
		if attempt == referralCodeAttempts-1 {
			return fmt.Errorf("create user: %w", err)
		}
	}
	return errors.New("users: referral code generation exhausted")
}

// Login verifies credentials, rejects suspended accounts and returns a
// signed token. The last-login stamp is best effort.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}
	if user.Status == domain.StatusSuspended {
		return nil, domain.ErrAccountSuspended
	}
	token, err := auth.IssueJWT(user.ID, user.Email, auth.Role(user.Role), s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("recording last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = now
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Profile returns the account for the given id.
func (s *Service) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	return s.users.GetByID(ctx, userID)
}

// issueVerificationToken stores and sends the email verification token.
// A failure leaves the account usable but unverified.
func (s *Service) issueVerificationToken(ctx context.Context, userID int64) {
	token, err := domain.NewSecurityToken()
	if err != nil {
		s.logger.Warn("generating verification token failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if err := s.users.SetVerificationToken(ctx, userID, token); err != nil {
		s.logger.Warn("storing verification token failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	s.notify(ctx, userID, "Vérifiez votre email",
		fmt.Sprintf("Votre code de vérification est %s.", token))
}

// VerifyEmail confirms the account behind a verification token.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrTokenInvalid
	}
	userID, err := s.users.VerifyEmail(ctx, token)
	if err != nil {
		return err
	}
	s.logger.Info("email verified", zap.Int64("user_id", userID))
	return nil
}

// RequestPasswordReset issues a one-hour reset token and sends it to
// the account holder.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return err
	}
	token, err := domain.NewSecurityToken()
	if err != nil {
		return fmt.Errorf("reset token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, time.Now().UTC().Add(resetTokenTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	s.logger.Info("password reset requested", zap.Int64("user_id", user.ID))
	s.notify(ctx, user.ID, "Réinitialisation du mot de passe",
		fmt.Sprintf("Votre code de réinitialisation est %s. Il expire dans une heure.", token))
	return nil
}

// ResetPassword spends a reset token and installs the new password.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" {
		return domain.ErrTokenInvalid
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	userID, err := s.users.ResetPassword(ctx, token, hash, time.Now().UTC())
	if err != nil {
		return err
	}
	s.logger.Info("password reset", zap.Int64("user_id", userID))
	return nil
}

// UpdateProfileInput carries profile changes. Empty fields keep their
// current value.
type UpdateProfileInput struct {
	Name  string
	Phone string
}

// UpdateProfile changes the account's name and phone.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		user.Name = name
	}
	if input.Phone != "" {
		phone := domain.NormalizePhone(input.Phone)
		if err := domain.ValidatePhone(phone); err != nil {
			return nil, err
		}
		user.Phone = phone
	}
	if err := s.users.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("profile updated", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *Service) notify(ctx context.Context, userID int64, title, body string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, body); err != nil {
		s.logger.Warn("notification failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}
