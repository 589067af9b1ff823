package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/passes/domain"
	"github.com/xhris2006/moninvest/internal/passes/infrastructure/memory"
)

type stubPayer struct {
	calls []domain.UserPass
	err   error
}

func (s *stubPayer) PayPurchaseCommission(_ context.Context, _ int64, up domain.UserPass) error {
	s.calls = append(s.calls, up)
	return s.err
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var purchaseDay = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func bronze() domain.Pass {
	return domain.Pass{ID: 1, Name: "Pass Bronze", Price: 4000, DailyRateBp: 1000, DurationDays: 60, Active: true}
}

func newTestService(t *testing.T, repo *memory.Repository, opts ...Option) *Service {
	t.Helper()
	base := []Option{WithClock(fixedClock{now: purchaseDay})}
	service, err := NewService(repo, repo, zap.NewNop(), append(base, opts...)...)
	require.NoError(t, err)
	return service
}

func TestPurchaseDebitsAndActivates(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddPass(bronze())
	repo.SetBalance(7, 10000)
	service := newTestService(t, repo)

	up, err := service.Purchase(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, up.Status)
	assert.Equal(t, int64(4000), up.Principal)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), up.StartDate)
	// 60 accrual days, end date included: Mar 1 + 59 = Apr 29
	assert.Equal(t, time.Date(2026, 4, 29, 0, 0, 0, 0, time.UTC), up.EndDate)
	assert.Equal(t, int64(6000), repo.Balance(7))
	assert.Equal(t, 59, up.DaysRemaining(purchaseDay))
	assert.False(t, up.ExpiredOn(up.EndDate))
	assert.True(t, up.ExpiredOn(up.EndDate.AddDate(0, 0, 1)))
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddPass(bronze())
	repo.SetBalance(7, 3999)
	service := newTestService(t, repo)

	_, err := service.Purchase(context.Background(), 7, 1)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, int64(3999), repo.Balance(7))
}

func TestPurchaseUnknownPass(t *testing.T) {
	repo := memory.NewRepository()
	repo.SetBalance(7, 10000)
	service := newTestService(t, repo)

	_, err := service.Purchase(context.Background(), 7, 42)
	assert.ErrorIs(t, err, domain.ErrPassNotFound)
}

func TestPurchaseInactivePassRejected(t *testing.T) {
	repo := memory.NewRepository()
	retired := bronze()
	retired.Active = false
	repo.AddPass(retired)
	repo.SetBalance(7, 10000)
	service := newTestService(t, repo)

	_, err := service.Purchase(context.Background(), 7, 1)
	assert.ErrorIs(t, err, domain.ErrPassNotFound)
}

func TestPurchasePaysCommission(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddPass(bronze())
	repo.SetBalance(7, 10000)
	payer := &stubPayer{}
	service := newTestService(t, repo, WithCommissionPayer(payer))

	up, err := service.Purchase(context.Background(), 7, 1)
	require.NoError(t, err)
	require.Len(t, payer.calls, 1)
	assert.Equal(t, up.ID, payer.calls[0].ID)
}

func TestPurchaseSurvivesCommissionFailure(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddPass(bronze())
	repo.SetBalance(7, 10000)
	payer := &stubPayer{err: errors.New("commission storage down")}
	service := newTestService(t, repo, WithCommissionPayer(payer))

	up, err := service.Purchase(context.Background(), 7, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, up.Status)
	assert.Equal(t, int64(6000), repo.Balance(7))
}

func TestCalculate(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddPass(bronze())
	service := newTestService(t, repo)

	projection, err := service.Calculate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(400), projection.DailyGain)
	assert.Equal(t, int64(24000), projection.TotalGain)
	assert.Equal(t, int64(28000), projection.TotalReturn)
}

func TestActiveAndHistory(t *testing.T) {
	repo := memory.NewRepository()
	repo.AddPass(bronze())
	repo.SetBalance(7, 20000)
	service := newTestService(t, repo)

	_, err := service.Purchase(context.Background(), 7, 1)
	require.NoError(t, err)
	_, err = service.Purchase(context.Background(), 7, 1)
	require.NoError(t, err)

	active, err := service.Active(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	history, err := service.History(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}
