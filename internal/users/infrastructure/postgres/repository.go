package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xhris2006/moninvest/internal/users/domain"
)

const defaultTable = "users"

// Repository implements domain.Repository on postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// Option customizes the repository.
type Option func(*Repository)

// WithTable overrides the users table name.
func WithTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewRepository constructs a users repository.
func NewRepository(db *sql.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	repo := &Repository{db: db, table: defaultTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// Create inserts the user and fills in its id and timestamps.
func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (name, email, phone, password_hash, role, status, referral_code, referred_by, balance, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $9)
RETURNING id`, r.table)

	referredBy := sql.NullInt64{Int64: user.ReferredBy, Valid: user.ReferredBy > 0}
	err := r.db.QueryRowContext(ctx, query,
		user.Name,
		user.Email,
		user.Phone,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.ReferralCode,
		referredBy,
		now,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "users_email_key":
				return domain.ErrEmailTaken
			case "users_phone_key":
				return domain.ErrPhoneTaken
			}
			// referral code collision; caller regenerates
			return fmt.Errorf("create user: %w", err)
		}
		return fmt.Errorf("create user: %w", err)
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetByID fetches one user by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail fetches one user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, "email = $1", email)
}

// GetByReferralCode fetches the owner of a referral code.
func (r *Repository) GetByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return r.getBy(ctx, "referral_code = $1", code)
}

// UpdateProfile persists name and phone changes.
func (r *Repository) UpdateProfile(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE %s SET name = $1, phone = $2, updated_at = $3 WHERE id = $4`, r.table)

	result, err := r.db.ExecContext(ctx, query, user.Name, user.Phone, now, user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "users_phone_key" {
			return domain.ErrPhoneTaken
		}
		return fmt.Errorf("update profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update profile rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	user.UpdatedAt = now
	return nil
}

// RecordLogin stamps the last successful login.
func (r *Repository) RecordLogin(ctx context.Context, userID int64, at time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET last_login_at = $1 WHERE id = $2`, r.table)
	if _, err := r.db.ExecContext(ctx, query, at.UTC(), userID); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// SetVerificationToken stores the pending email verification token.
func (r *Repository) SetVerificationToken(ctx context.Context, userID int64, token string) error {
	query := fmt.Sprintf(`UPDATE %s SET verification_token = $1 WHERE id = $2`, r.table)
	if _, err := r.db.ExecContext(ctx, query, token, userID); err != nil {
		return fmt.Errorf("set verification token: %w", err)
	}
	return nil
}

// VerifyEmail marks the token's account verified and clears the token.
func (r *Repository) VerifyEmail(ctx context.Context, token string) (int64, error) {
	query := fmt.Sprintf(`
UPDATE %s SET verified = TRUE, verification_token = NULL, updated_at = $2
WHERE verification_token = $1
RETURNING id`, r.table)

	var userID int64
	err := r.db.QueryRowContext(ctx, query, token, time.Now().UTC()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("verify email: %w", err)
	}
	return userID, nil
}

// SetResetToken stores a password reset token with its expiry.
func (r *Repository) SetResetToken(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	query := fmt.Sprintf(`UPDATE %s SET reset_token = $1, reset_token_expires_at = $2 WHERE id = $3`, r.table)
	if _, err := r.db.ExecContext(ctx, query, token, expiresAt.UTC(), userID); err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	return nil
}

// ResetPassword swaps the password hash for an unexpired token in one
// statement, so a token can only be spent once.
func (r *Repository) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	query := fmt.Sprintf(`
UPDATE %s SET password_hash = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = $3
WHERE reset_token = $1 AND reset_token_expires_at > $3
RETURNING id`, r.table)

	var userID int64
	err := r.db.QueryRowContext(ctx, query, token, passwordHash, now.UTC()).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrTokenInvalid
	}
	if err != nil {
		return 0, fmt.Errorf("reset password: %w", err)
	}
	return userID, nil
}

func (r *Repository) getBy(ctx context.Context, where string, arg any) (*domain.User, error) {
	query := fmt.Sprintf(`
SELECT id, name, email, phone, password_hash, role, status, referral_code, COALESCE(referred_by, 0), balance, verified, last_login_at, created_at, updated_at
FROM %s WHERE %s`, r.table, where)

	var (
		user      domain.User
		lastLogin sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Phone,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.ReferralCode,
		&user.ReferredBy,
		&user.Balance,
		&user.Verified,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if lastLogin.Valid {
		user.LastLoginAt = lastLogin.Time
	}
	return &user, nil
}
