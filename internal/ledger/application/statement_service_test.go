package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/ledger/domain"
	"github.com/xhris2006/moninvest/internal/ledger/infrastructure/memory"
)

func seedLedger(repo *memory.Repository) {
	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.Add(domain.Transaction{
		UserID: 7, UserPassID: 1, Type: domain.TypePurchase,
		Amount: -4000, Description: "Achat Pass Bronze",
		CreatedAt: march.Add(9 * time.Hour),
	})
	repo.Add(domain.Transaction{
		UserID: 7, UserPassID: 1, Type: domain.TypeDailyGain,
		Amount: 400, Description: "Gain journalier Pass Bronze",
		GainDate: march.AddDate(0, 0, 1), CreatedAt: march.AddDate(0, 0, 1),
	})
	repo.Add(domain.Transaction{
		UserID: 7, Type: domain.TypeCommission,
		Amount: 200, Description: "Commission de parrainage",
		CreatedAt: march.AddDate(0, 0, 2),
	})
	// another user and another month must stay out
	repo.Add(domain.Transaction{
		UserID: 8, Type: domain.TypeDailyGain, Amount: 700,
		CreatedAt: march.AddDate(0, 0, 1),
	})
	repo.Add(domain.Transaction{
		UserID: 7, Type: domain.TypeDailyGain, Amount: 400,
		CreatedAt: march.AddDate(0, 1, 0),
	})
}

func TestStatementTotals(t *testing.T) {
	repo := memory.NewRepository()
	seedLedger(repo)
	service, err := NewStatementService(repo, "XOF", zap.NewNop())
	require.NoError(t, err)

	stmt, items, err := service.Statement(context.Background(), 7, "2026-03")
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int64(600), stmt.TotalCredits)
	assert.Equal(t, int64(4000), stmt.TotalDebits)
	assert.Equal(t, int64(-3400), stmt.NetChange)
	assert.Equal(t, "XOF", stmt.Currency)

	// oldest first
	assert.Equal(t, domain.TypePurchase, items[0].Type)
}

func TestStatementRejectsBadMonth(t *testing.T) {
	service, err := NewStatementService(memory.NewRepository(), "XOF", zap.NewNop())
	require.NoError(t, err)

	_, _, err = service.Statement(context.Background(), 7, "03-2026")
	assert.ErrorIs(t, err, domain.ErrInvalidMonth)
}

func TestTransactionsFilterByType(t *testing.T) {
	repo := memory.NewRepository()
	seedLedger(repo)
	service, err := NewStatementService(repo, "XOF", zap.NewNop())
	require.NoError(t, err)

	gains, err := service.Transactions(context.Background(), 7, domain.Filter{Type: domain.TypeDailyGain})
	require.NoError(t, err)
	assert.Len(t, gains, 2)
	for _, tx := range gains {
		assert.Equal(t, domain.TypeDailyGain, tx.Type)
	}

	all, err := service.Transactions(context.Background(), 7, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	// newest first
	assert.True(t, all[0].CreatedAt.After(all[len(all)-1].CreatedAt))
}
