package integration_test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhris2006/moninvest/internal/settlement/domain"
	settlementrepo "github.com/xhris2006/moninvest/internal/settlement/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}
	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range []string{"users", "passes", "user_passes", "transactions"} {
		if !tableExists(db, table) {
			t.Skipf("missing table %s; run migrations", table)
		}
	}
	return db
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`, name).Scan(&exists)
	return err == nil && exists
}

// seedPass inserts a user, a catalogue pass and an active user pass,
// and returns the eligible pass the engine would settle.
func seedPass(t *testing.T, ctx context.Context, db *sql.DB, email, phone string, day time.Time) domain.EligiblePass {
	t.Helper()

	var userID int64
	require.NoError(t, db.QueryRowContext(ctx, `
INSERT INTO users (name, email, phone, password_hash, referral_code, balance)
VALUES ('Test Holder', $1, $2, 'x', $3, 0)
RETURNING id`, email, phone, "IT"+phone).Scan(&userID))
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM transactions WHERE user_id = $1`, userID)
		_, _ = db.ExecContext(context.Background(), `DELETE FROM user_passes WHERE user_id = $1`, userID)
		_, _ = db.ExecContext(context.Background(), `DELETE FROM users WHERE id = $1`, userID)
	})

	var passID int64
	require.NoError(t, db.QueryRowContext(ctx, `
INSERT INTO passes (name, price, daily_rate_bp, duration_days, active)
VALUES ('Pass Integration', 4000, 1000, 60, false)
RETURNING id`).Scan(&passID))
	t.Cleanup(func() {
		_, _ = db.ExecContext(context.Background(), `DELETE FROM passes WHERE id = $1`, passID)
	})

	var userPassID int64
	require.NoError(t, db.QueryRowContext(ctx, `
INSERT INTO user_passes (user_id, pass_id, principal, status, start_date, end_date)
VALUES ($1, $2, 4000, 'active', $3, $4)
RETURNING id`, userID, passID, day.AddDate(0, 0, -10), day.AddDate(0, 0, 49)).Scan(&userPassID))

	return domain.EligiblePass{
		UserPassID:  userPassID,
		UserID:      userID,
		PassID:      passID,
		PassName:    "Pass Integration",
		Principal:   4000,
		DailyRateBp: 1000,
		StartDate:   day.AddDate(0, 0, -10),
		EndDate:     day.AddDate(0, 0, 49),
	}
}

func balanceOf(t *testing.T, ctx context.Context, db *sql.DB, userID int64) int64 {
	t.Helper()
	var balance int64
	require.NoError(t, db.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&balance))
	return balance
}

func TestCreditGainIsIdempotentPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	pass := seedPass(t, ctx, db, "idempotent@integration.test", "+22500000101", day)

	repo, err := settlementrepo.NewRepository(db)
	require.NoError(t, err)

	credited, err := repo.CreditGain(ctx, pass, day, 400)
	require.NoError(t, err)
	assert.True(t, credited)

	// the second run hits the partial unique index and must not touch
	// the balance
	credited, err = repo.CreditGain(ctx, pass, day, 400)
	require.NoError(t, err)
	assert.False(t, credited)

	assert.Equal(t, int64(400), balanceOf(t, ctx, db, pass.UserID))

	var gains int
	require.NoError(t, db.QueryRowContext(ctx, `
SELECT count(*) FROM transactions
WHERE user_pass_id = $1 AND type = 'daily_gain'`, pass.UserPassID).Scan(&gains))
	assert.Equal(t, 1, gains)

	// a new day credits again
	credited, err = repo.CreditGain(ctx, pass, day.AddDate(0, 0, 1), 400)
	require.NoError(t, err)
	assert.True(t, credited)
	assert.Equal(t, int64(800), balanceOf(t, ctx, db, pass.UserID))
}

func TestCreditGainConcurrentRunsPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	pass := seedPass(t, ctx, db, "concurrent@integration.test", "+22500000102", day)

	repo, err := settlementrepo.NewRepository(db)
	require.NoError(t, err)

	const attempts = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		credits int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			credited, err := repo.CreditGain(ctx, pass, day, 400)
			assert.NoError(t, err)
			if credited {
				mu.Lock()
				credits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, credits)
	assert.Equal(t, int64(400), balanceOf(t, ctx, db, pass.UserID))
}

func TestSweepExpiredReturnsPassesPostgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	day := time.Date(2026, 4, 3, 0, 0, 0, 0, time.UTC)
	pass := seedPass(t, ctx, db, "sweep@integration.test", "+22500000103", day)

	_, err := db.ExecContext(ctx, `UPDATE user_passes SET end_date = $1 WHERE id = $2`,
		day.AddDate(0, 0, -1), pass.UserPassID)
	require.NoError(t, err)

	repo, err := settlementrepo.NewRepository(db)
	require.NoError(t, err)

	expired, err := repo.SweepExpired(ctx, day)
	require.NoError(t, err)
	found := false
	for _, p := range expired {
		if p.UserPassID == pass.UserPassID {
			found = true
			assert.Equal(t, pass.UserID, p.UserID)
			assert.Equal(t, "Pass Integration", p.PassName)
		}
	}
	assert.True(t, found, "seeded pass missing from sweep result")

	// already expired passes are not swept twice
	expired, err = repo.SweepExpired(ctx, day)
	require.NoError(t, err)
	for _, p := range expired {
		assert.NotEqual(t, pass.UserPassID, p.UserPassID)
	}
}
