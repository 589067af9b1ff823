// Package postgres implements the pass repositories on database/sql
// with the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xhris2006/moninvest/internal/passes/domain"
)

const (
	defaultPassTable        = "passes"
	defaultUserPassTable    = "user_passes"
	defaultUserTable        = "users"
	defaultTransactionTable = "transactions"
)

// Repository implements the catalogue and user pass repositories.
type Repository struct {
	db               *sql.DB
	passTable        string
	userPassTable    string
	userTable        string
	transactionTable string
}

// Option customizes the repository.
type Option func(*Repository)

// WithPassTable overrides the catalogue table name.
func WithPassTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.passTable = table
		}
	}
}

// WithUserPassTable overrides the user pass table name.
func WithUserPassTable(table string) Option {
	return func(r *Repository) {
		if table != "" {
			r.userPassTable = table
		}
	}
}

// NewRepository constructs a pass repository.
func NewRepository(db *sql.DB, opts ...Option) (*Repository, error) {
	if db == nil {
		return nil, errors.New("postgres: nil db")
	}
	repo := &Repository{
		db:               db,
		passTable:        defaultPassTable,
		userPassTable:    defaultUserPassTable,
		userTable:        defaultUserTable,
		transactionTable: defaultTransactionTable,
	}
	for _, opt := range opts {
		opt(repo)
	}
	return repo, nil
}

// ListActive returns the purchasable catalogue ordered by price.
func (r *Repository) ListActive(ctx context.Context) ([]domain.Pass, error) {
	query := fmt.Sprintf(`
SELECT id, name, price, daily_rate_bp, duration_days, active
FROM %s
WHERE active
ORDER BY price ASC`, r.passTable)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list passes: %w", err)
	}
	defer rows.Close()

	var passes []domain.Pass
	for rows.Next() {
		var pass domain.Pass
		if err := rows.Scan(&pass.ID, &pass.Name, &pass.Price, &pass.DailyRateBp, &pass.DurationDays, &pass.Active); err != nil {
			return nil, fmt.Errorf("scan pass: %w", err)
		}
		passes = append(passes, pass)
	}
	return passes, rows.Err()
}

// GetByID fetches one catalogue pass.
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Pass, error) {
	query := fmt.Sprintf(`
SELECT id, name, price, daily_rate_bp, duration_days, active
FROM %s WHERE id = $1`, r.passTable)

	var pass domain.Pass
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&pass.ID, &pass.Name, &pass.Price, &pass.DailyRateBp, &pass.DurationDays, &pass.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pass: %w", err)
	}
	return &pass, nil
}

// Purchase debits the buyer, creates the user pass and records the
// purchase transaction in one database transaction. The conditional
// balance update doubles as the sufficiency check.
func (r *Repository) Purchase(ctx context.Context, userID int64, pass domain.Pass, startDate time.Time) (userPass *domain.UserPass, err error) {
	start := dayStart(startDate)
	end := pass.AccrualEnd(start)
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin purchase tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	debitQuery := fmt.Sprintf(`
UPDATE %s SET balance = balance - $1, updated_at = $2
WHERE id = $3 AND balance >= $1`, r.userTable)
	result, err := tx.ExecContext(ctx, debitQuery, pass.Price, now, userID)
	if err != nil {
		return nil, fmt.Errorf("debit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("debit rows affected: %w", err)
	}
	if affected == 0 {
		err = domain.ErrInsufficientBalance
		return nil, err
	}

	insertQuery := fmt.Sprintf(`
INSERT INTO %s (user_id, pass_id, principal, start_date, end_date, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, 'active', $6, $6)
RETURNING id`, r.userPassTable)
	var userPassID int64
	if err = tx.QueryRowContext(ctx, insertQuery, userID, pass.ID, pass.Price, start, end, now).Scan(&userPassID); err != nil {
		return nil, fmt.Errorf("insert user pass: %w", err)
	}

	txQuery := fmt.Sprintf(`
INSERT INTO %s (user_id, user_pass_id, type, amount, description, created_at)
VALUES ($1, $2, 'purchase', $3, $4, $5)`, r.transactionTable)
	description := fmt.Sprintf("Achat %s", pass.Name)
	if _, err = tx.ExecContext(ctx, txQuery, userID, userPassID, -pass.Price, description, now); err != nil {
		return nil, fmt.Errorf("insert purchase transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit purchase tx: %w", err)
	}

	return &domain.UserPass{
		ID:          userPassID,
		UserID:      userID,
		PassID:      pass.ID,
		PassName:    pass.Name,
		Principal:   pass.Price,
		DailyRateBp: pass.DailyRateBp,
		StartDate:   start,
		EndDate:     end,
		Status:      domain.StatusActive,
		CreatedAt:   now,
	}, nil
}

// ListByUser returns the user's passes, optionally filtered by status.
func (r *Repository) ListByUser(ctx context.Context, userID int64, status string) ([]domain.UserPass, error) {
	query := fmt.Sprintf(`
SELECT up.id, up.user_id, up.pass_id, p.name, up.principal, p.daily_rate_bp, up.start_date, up.end_date, up.status, up.created_at
FROM %s up
JOIN %s p ON p.id = up.pass_id
WHERE up.user_id = $1`, r.userPassTable, r.passTable)

	args := []any{userID}
	if status != "" {
		query += " AND up.status = $2"
		args = append(args, status)
	}
	query += " ORDER BY up.created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list user passes: %w", err)
	}
	defer rows.Close()

	var passes []domain.UserPass
	for rows.Next() {
		var up domain.UserPass
		if err := rows.Scan(
			&up.ID, &up.UserID, &up.PassID, &up.PassName, &up.Principal,
			&up.DailyRateBp, &up.StartDate, &up.EndDate, &up.Status, &up.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan user pass: %w", err)
		}
		passes = append(passes, up)
	}
	return passes, rows.Err()
}

// GetUserPass fetches one user pass.
func (r *Repository) GetUserPass(ctx context.Context, id int64) (*domain.UserPass, error) {
	query := fmt.Sprintf(`
SELECT up.id, up.user_id, up.pass_id, p.name, up.principal, p.daily_rate_bp, up.start_date, up.end_date, up.status, up.created_at
FROM %s up
JOIN %s p ON p.id = up.pass_id
WHERE up.id = $1`, r.userPassTable, r.passTable)

	var up domain.UserPass
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&up.ID, &up.UserID, &up.PassID, &up.PassName, &up.Principal,
		&up.DailyRateBp, &up.StartDate, &up.EndDate, &up.Status, &up.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user pass: %w", err)
	}
	return &up, nil
}

func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
