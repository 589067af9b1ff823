// Package postgres implements the ledger repository on database/sql
// with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/ledger/domain"
)

const defaultTable = "transactions"

// Repository implements domain.Repository on postgres.
type Repository struct {
	db    *sql.DB
	table string
}

// Option customizes the repository.
type Option func(*Repository)

// WithTable overrides the transactions table name.
func WithTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewRepository constructs a ledger repository.
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

// ListByUser returns the user's transactions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID int64, filter domain.Filter) ([]domain.Transaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`
SELECT id, user_id, COALESCE(user_pass_id, 0), type, amount, description, gain_date, created_at
FROM %s
WHERE user_id = $1`, r.table)
	args := []any{userID}
	if filter.Type != "" {
		query += " AND type = $2"
		args = append(args, filter.Type)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", limit)

	return r.query(ctx, query, args...)
}

// ListForMonth returns the user's transactions for one calendar month,
// oldest first.
func (r *Repository) ListForMonth(ctx context.Context, userID int64, monthStart time.Time) ([]domain.Transaction, error) {
	monthEnd := monthStart.AddDate(0, 1, 0)
	query := fmt.Sprintf(`
SELECT id, user_id, COALESCE(user_pass_id, 0), type, amount, description, gain_date, created_at
FROM %s
WHERE user_id = $1 AND created_at >= $2 AND created_at < $3
ORDER BY created_at ASC`, r.table)

	return r.query(ctx, query, userID, monthStart, monthEnd)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []domain.Transaction
	for rows.Next() {
		var tx domain.Transaction
		var gainDate sql.NullTime
		if err := rows.Scan(
			&tx.ID,
			&tx.UserID,
			&tx.UserPassID,
			&tx.Type,
			&tx.Amount,
			&tx.Description,
			&gainDate,
			&tx.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if gainDate.Valid {
			tx.GainDate = gainDate.Time
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}
