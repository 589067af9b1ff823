// Package postgres implements the referral repository on database/sql
// with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/referral/domain"
)

const (
	defaultReferralTable    = "referrals"
	defaultCommissionTable  = "commissions"
	defaultUserTable        = "users"
	defaultTransactionTable = "transactions"
)

// Repository implements domain.Repository on postgres.
type Repository struct {
	db               *sql.DB
	referralTable    string
	commissionTable  string
	userTable        string
	transactionTable string
}

// Option customizes the repository.
type Option func(*Repository)

// WithReferralTable overrides the referral table name.
func WithReferralTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.referralTable = table
		}
	}
}

// WithCommissionTable overrides the commission table name.
func WithCommissionTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.commissionTable = table
		}
	}
}

// NewRepository constructs a referral repository.
func NewRepository(db *sql.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	repo := &Repository{
		db:               db,
		referralTable:    defaultReferralTable,
		commissionTable:  defaultCommissionTable,
		userTable:        defaultUserTable,
		transactionTable: defaultTransactionTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// RecordSignup stores the referral link. Duplicate referees are
// ignored: an account keeps its first referrer.
func (r *Repository) RecordSignup(ctx context.Context, referral *domain.Referral) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`
INSERT INTO %s (referrer_id, referee_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (referee_id) DO NOTHING`, r.referralTable)

	_, err := r.db.ExecContext(ctx, query, referral.ReferrerID, referral.RefereeID, now)
	if err != nil {
		return fmt.Errorf("record referral: %w", err)
	}
	referral.CreatedAt = now
	return nil
}

// PayCommission inserts the commission, credits the referrer balance
// and records the ledger row in one transaction. The unique index on
// user_pass_id turns replays into no-ops.
func (r *Repository) PayCommission(ctx context.Context, commission *domain.Commission) (paid bool, err error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin commission tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertQuery := fmt.Sprintf(`
INSERT INTO %s (referrer_id, referee_id, user_pass_id, amount, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_pass_id) DO NOTHING
RETURNING id`, r.commissionTable)

	err = tx.QueryRowContext(ctx, insertQuery,
		commission.ReferrerID,
		commission.RefereeID,
		commission.UserPassID,
		commission.Amount,
		commission.Status,
		now,
	).Scan(&commission.ID)
	if errors.Is(err, sql.ErrNoRows) {
		// already paid for this purchase
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("commit noop commission: %w", err)
		}
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("insert commission: %w", err)
	}

	creditQuery := fmt.Sprintf(`UPDATE %s SET balance = balance + $1, updated_at = $2 WHERE id = $3`, r.userTable)
	if _, err = tx.ExecContext(ctx, creditQuery, commission.Amount, now, commission.ReferrerID); err != nil {
		return false, fmt.Errorf("credit referrer: %w", err)
	}

	txQuery := fmt.Sprintf(`
INSERT INTO %s (user_id, user_pass_id, type, amount, description, created_at)
VALUES ($1, $2, 'commission', $3, $4, $5)`, r.transactionTable)
	description := fmt.Sprintf("Commission de parrainage (achat #%d)", commission.UserPassID)
	if _, err = tx.ExecContext(ctx, txQuery, commission.ReferrerID, commission.UserPassID, commission.Amount, description, now); err != nil {
		return false, fmt.Errorf("insert commission transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit commission tx: %w", err)
	}
	commission.CreatedAt = now
	return true, nil
}

// ListReferees returns the referrer's referees with their totals.
func (r *Repository) ListReferees(ctx context.Context, referrerID int64) ([]domain.Referee, error) {
	query := fmt.Sprintf(`
SELECT u.id, u.name, r.created_at, COALESCE(SUM(c.amount), 0)
FROM %s r
JOIN %s u ON u.id = r.referee_id
LEFT JOIN %s c ON c.referee_id = r.referee_id AND c.referrer_id = r.referrer_id
WHERE r.referrer_id = $1
GROUP BY u.id, u.name, r.created_at
ORDER BY r.created_at DESC`, r.referralTable, r.userTable, r.commissionTable)

	rows, err := r.db.QueryContext(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("list referees: %w", err)
	}
	defer rows.Close()

	var referees []domain.Referee
	for rows.Next() {
		var referee domain.Referee
		if err := rows.Scan(&referee.UserID, &referee.Name, &referee.JoinedAt, &referee.TotalCommission); err != nil {
			return nil, fmt.Errorf("scan referee: %w", err)
		}
		referees = append(referees, referee)
	}
	return referees, rows.Err()
}

// ListCommissions returns the referrer's payouts, newest first.
func (r *Repository) ListCommissions(ctx context.Context, referrerID int64) ([]domain.Commission, error) {
	query := fmt.Sprintf(`
SELECT id, referrer_id, referee_id, user_pass_id, amount, status, created_at
FROM %s
WHERE referrer_id = $1
ORDER BY created_at DESC`, r.commissionTable)

	rows, err := r.db.QueryContext(ctx, query, referrerID)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	defer rows.Close()

	var commissions []domain.Commission
	for rows.Next() {
		var c domain.Commission
		if err := rows.Scan(&c.ID, &c.ReferrerID, &c.RefereeID, &c.UserPassID, &c.Amount, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		commissions = append(commissions, c)
	}
	return commissions, rows.Err()
}

// Stats aggregates the referrer's activity.
func (r *Repository) Stats(ctx context.Context, referrerID int64) (domain.Stats, error) {
	query := fmt.Sprintf(`
SELECT
  (SELECT COUNT(*) FROM %s WHERE referrer_id = $1),
  (SELECT COUNT(*) FROM %s WHERE referrer_id = $1),
  (SELECT COALESCE(SUM(amount), 0) FROM %s WHERE referrer_id = $1)`,
		r.referralTable, r.commissionTable, r.commissionTable)

	var stats domain.Stats
	if err := r.db.QueryRowContext(ctx, query, referrerID).Scan(
		&stats.RefereeCount,
		&stats.CommissionCount,
		&stats.TotalCommission,
	); err != nil {
		return domain.Stats{}, fmt.Errorf("referral stats: %w", err)
	}
	return stats, nil
}
