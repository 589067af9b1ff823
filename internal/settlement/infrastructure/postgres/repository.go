// Package postgres implements the settlement repositories on
// database/sql with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

const (
	defaultUserPassTable    = "user_passes"
	defaultPassTable        = "passes"
	defaultTransactionTable = "transactions"
	defaultUserTable        = "users"
	defaultRunTable         = "settlement_runs"
)

// Repository implements domain.PassRepository and domain.RunRepository.
type Repository struct {
	db               *sql.DB
	userPassTable    string
	passTable        string
	transactionTable string
	userTable        string
	runTable         string
}

// Option customizes the repository.
type Option func(*Repository)

// WithUserPassTable overrides the user pass table name.
func WithUserPassTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.userPassTable = table
		}
	}
}

// WithTransactionTable overrides the transaction table name.
func WithTransactionTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.transactionTable = table
		}
	}
}

// WithRunTable overrides the settlement run table name.
func WithRunTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.runTable = table
		}
	}
}

// NewRepository constructs a settlement repository.
func NewRepository(db *sql.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	repo := &Repository{
		db:               db,
		userPassTable:    defaultUserPassTable,
		passTable:        defaultPassTable,
		transactionTable: defaultTransactionTable,
		userTable:        defaultUserTable,
		runTable:         defaultRunTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// ListEligible returns active passes without a daily_gain transaction
// for the given day. Day boundaries are UTC.
func (r *Repository) ListEligible(ctx context.Context, asOf time.Time) ([]domain.EligiblePass, error) {
	day := domain.DayStart(asOf)
	query := fmt.Sprintf(`
SELECT up.id, up.user_id, up.pass_id, p.name, up.principal, p.daily_rate_bp, up.start_date, up.end_date
FROM %s up
JOIN %s p ON p.id = up.pass_id
WHERE up.status = 'active'
  AND up.start_date <= $1
  AND up.end_date >= $1
  AND NOT EXISTS (
    SELECT 1 FROM %s t
    WHERE t.user_pass_id = up.id
      AND t.type = 'daily_gain'
      AND t.gain_date = $1
  )
ORDER BY up.id`, r.userPassTable, r.passTable, r.transactionTable)

	rows, err := r.db.QueryContext(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("list eligible passes: %w", err)
	}
	defer rows.Close()

	var passes []domain.EligiblePass
	for rows.Next() {
		var pass domain.EligiblePass
		if err := rows.Scan(
			&pass.UserPassID,
			&pass.UserID,
			&pass.PassID,
			&pass.PassName,
			&pass.Principal,
			&pass.DailyRateBp,
			&pass.StartDate,
			&pass.EndDate,
		); err != nil {
			return nil, fmt.Errorf("scan eligible pass: %w", err)
		}
		passes = append(passes, pass)
	}
	return passes, rows.Err()
}

// CreditGain inserts the daily_gain transaction and credits the user
// balance in one transaction. The partial unique index on
// (user_pass_id, gain_date) makes retries no-ops: when the insert hits
// the conflict the balance is left untouched and false is returned.
func (r *Repository) CreditGain(ctx context.Context, pass domain.EligiblePass, asOf time.Time, amount int64) (credited bool, err error) {
	day := domain.DayStart(asOf)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin credit tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	insertQuery := fmt.Sprintf(`
INSERT INTO %s (user_id, user_pass_id, type, amount, description, gain_date, created_at)
VALUES ($1, $2, 'daily_gain', $3, $4, $5, $6)
ON CONFLICT (user_pass_id, gain_date) WHERE type = 'daily_gain' DO NOTHING`, r.transactionTable)

	description := fmt.Sprintf("Gain journalier %s", pass.PassName)
	result, err := tx.ExecContext(ctx, insertQuery,
		pass.UserID,
		pass.UserPassID,
		amount,
		description,
		day,
		time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert daily gain: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("daily gain rows affected: %w", err)
	}
	if inserted == 0 {
		// gain already settled for this pass and day
		if err = tx.Commit(); err != nil {
			return false, fmt.Errorf("commit noop credit: %w", err)
		}
		return false, nil
	}

	creditQuery := fmt.Sprintf(`UPDATE %s SET balance = balance + $1, updated_at = $2 WHERE id = $3`, r.userTable)
	updated, err := tx.ExecContext(ctx, creditQuery, amount, time.Now().UTC(), pass.UserID)
	if err != nil {
		return false, fmt.Errorf("credit balance: %w", err)
	}
	affected, err := updated.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("credit rows affected: %w", err)
	}
	if affected == 0 {
		err = fmt.Errorf("credit balance: user %d not found", pass.UserID)
		return false, err
	}

	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("commit credit tx: %w", err)
	}
	return true, nil
}

// SweepExpired moves passes whose end date is past to expired and
// returns them so the caller can notify the owners.
func (r *Repository) SweepExpired(ctx context.Context, asOf time.Time) ([]domain.ExpiredPass, error) {
	day := domain.DayStart(asOf)
	query := fmt.Sprintf(`
UPDATE %s AS up SET status = 'expired', updated_at = $1
FROM %s AS p
WHERE p.id = up.pass_id AND up.status = 'active' AND up.end_date < $2
RETURNING up.id, up.user_id, p.name`, r.userPassTable, r.passTable)

	rows, err := r.db.QueryContext(ctx, query, time.Now().UTC(), day)
	if err != nil {
		return nil, fmt.Errorf("sweep expired passes: %w", err)
	}
	defer rows.Close()

	var expired []domain.ExpiredPass
	for rows.Next() {
		var pass domain.ExpiredPass
		if err := rows.Scan(&pass.UserPassID, &pass.UserID, &pass.PassName); err != nil {
			return nil, fmt.Errorf("scan expired pass: %w", err)
		}
		expired = append(expired, pass)
	}
	return expired, rows.Err()
}

// RecordRun upserts a settlement run audit row.
func (r *Repository) RecordRun(ctx context.Context, run domain.Run) error {
	query := fmt.Sprintf(`
INSERT INTO %s (id, as_of, trigger, started_at, finished_at, status, passes_credited, passes_skipped, passes_failed, total_credited, error_summary)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  finished_at = EXCLUDED.finished_at,
  status = EXCLUDED.status,
  passes_credited = EXCLUDED.passes_credited,
  passes_skipped = EXCLUDED.passes_skipped,
  passes_failed = EXCLUDED.passes_failed,
  total_credited = EXCLUDED.total_credited,
  error_summary = EXCLUDED.error_summary`, r.runTable)

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.AsOf,
		run.Trigger,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
		run.Status,
		run.PassesCredited,
		run.PassesSkipped,
		run.PassesFailed,
		run.TotalCredited,
		run.ErrorSummary,
	)
	if err != nil {
		return fmt.Errorf("record settlement run: %w", err)
	}
	return nil
}

// ListRuns returns recent runs newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
SELECT id, as_of, trigger, started_at, finished_at, status, passes_credited, passes_skipped, passes_failed, total_credited, COALESCE(error_summary, '')
FROM %s
ORDER BY started_at DESC
LIMIT $1`, r.runTable)

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list settlement runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(
			&run.ID,
			&run.AsOf,
			&run.Trigger,
			&run.StartedAt,
			&run.FinishedAt,
			&run.Status,
			&run.PassesCredited,
			&run.PassesSkipped,
			&run.PassesFailed,
			&run.TotalCredited,
			&run.ErrorSummary,
		); err != nil {
			return nil, fmt.Errorf("scan settlement run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
