// Package postgres implements the claims repository on database/sql
// with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/claims/domain"
)

const defaultTable = "claims"

// Repository implements domain.Repository on postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// Option customizes the repository.
type Option func(*Repository)

// WithTable overrides the claims table name.
func WithTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewRepository constructs a claims repository.
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

const claimColumns = "id, reference, user_id, category, priority, subject, body, status, COALESCE(admin_response, ''), created_at, updated_at"

// Create inserts the claim and fills in its id and timestamps.
func (r *Repository) Create(ctx context.Context, claim *domain.Claim) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (reference, user_id, category, priority, subject, body, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
RETURNING id`, r.table)

	err := r.db.QueryRowContext(ctx, query,
		claim.Reference,
		claim.UserID,
		claim.Category,
		claim.Priority,
		claim.Subject,
		claim.Body,
		claim.Status,
		now,
	).Scan(&claim.ID)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	claim.CreatedAt = now
	claim.UpdatedAt = now
	return nil
}

// GetByID fetches one claim.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, claimColumns, r.table)
	claim, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// GetByReference fetches one claim by its public reference.
func (r *Repository) GetByReference(ctx context.Context, reference string) (*domain.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE reference = $1`, claimColumns, r.table)
	claim, err := r.scanOne(r.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// ListByUser returns the user's claims, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]domain.Claim, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC`, claimColumns, r.table)
	return r.list(ctx, query, userID)
}

// ListOpen returns unresolved claims, high priority first.
func (r *Repository) ListOpen(ctx context.Context) ([]domain.Claim, error) {
	query := fmt.Sprintf(`
SELECT %s FROM %s
WHERE status IN ('open', 'in_progress')
ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END, created_at ASC`, claimColumns, r.table)
	return r.list(ctx, query)
}

// Update persists status and admin response changes.
func (r *Repository) Update(ctx context.Context, claim *domain.Claim) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
UPDATE %s SET status = $1, admin_response = $2, updated_at = $3 WHERE id = $4`, r.table)

	result, err := r.db.ExecContext(ctx, query, claim.Status, claim.AdminResponse, now, claim.ID)
	if err != nil {
		return fmt.Errorf("update claim: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update claim rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	claim.UpdatedAt = now
	return nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var claim domain.Claim
		if err := rows.Scan(
			&claim.ID, &claim.Reference, &claim.UserID, &claim.Category, &claim.Priority,
			&claim.Subject, &claim.Body, &claim.Status, &claim.AdminResponse,
			&claim.CreatedAt, &claim.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func (r *Repository) scanOne(row *sql.Row) (*domain.Claim, error) {
	var claim domain.Claim
	err := row.Scan(
		&claim.ID, &claim.Reference, &claim.UserID, &claim.Category, &claim.Priority,
		&claim.Subject, &claim.Body, &claim.Status, &claim.AdminResponse,
		&claim.CreatedAt, &claim.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	return &claim, nil
}
