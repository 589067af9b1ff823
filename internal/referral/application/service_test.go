package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	passdomain "github.com/xhris2006/moninvest/internal/passes/domain"
	"github.com/xhris2006/moninvest/internal/referral/domain"
	"github.com/xhris2006/moninvest/internal/referral/infrastructure/memory"
	userdomain "github.com/xhris2006/moninvest/internal/users/domain"
	usermemory "github.com/xhris2006/moninvest/internal/users/infrastructure/memory"
)

func seedUsers(t *testing.T) (*usermemory.Repository, *userdomain.User, *userdomain.User) {
	t.Helper()
	repo := usermemory.NewRepository()
	sponsor := &userdomain.User{Name: "Awa Kone", Email: "awa@example.com", ReferralCode: "AWA123456", Role: "user"}
	require.NoError(t, repo.Create(context.Background(), sponsor))
	buyer := &userdomain.User{Name: "Moussa Traore", Email: "moussa@example.com", ReferralCode: "MOU123456", Role: "user", ReferredBy: sponsor.ID}
	require.NoError(t, repo.Create(context.Background(), buyer))
	return repo, sponsor, buyer
}

func bronzePass(id int64) passdomain.UserPass {
	return passdomain.UserPass{
		ID:        id,
		PassID:    1,
		PassName:  "Pass Bronze",
		Principal: 4000,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestPayPurchaseCommission(t *testing.T) {
	users, sponsor, buyer := seedUsers(t)
	referrals := memory.NewRepository()
	service, err := NewService(referrals, users, 500, zap.NewNop())
	require.NoError(t, err)

	up := bronzePass(10)
	up.UserID = buyer.ID
	require.NoError(t, service.PayPurchaseCommission(context.Background(), buyer.ID, up))

	// 5% of 4000
	assert.Equal(t, int64(200), referrals.Balance(sponsor.ID))

	commissions, err := service.Commissions(context.Background(), sponsor.ID)
	require.NoError(t, err)
	require.Len(t, commissions, 1)
	assert.Equal(t, domain.CommissionStatusPaid, commissions[0].Status)
	assert.Equal(t, up.ID, commissions[0].UserPassID)
}

func TestPayPurchaseCommissionIdempotent(t *testing.T) {
	users, sponsor, buyer := seedUsers(t)
	referrals := memory.NewRepository()
	service, err := NewService(referrals, users, 500, zap.NewNop())
	require.NoError(t, err)

	up := bronzePass(10)
	require.NoError(t, service.PayPurchaseCommission(context.Background(), buyer.ID, up))
	require.NoError(t, service.PayPurchaseCommission(context.Background(), buyer.ID, up))

	assert.Equal(t, int64(200), referrals.Balance(sponsor.ID))
	stats, err := service.Stats(context.Background(), sponsor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CommissionCount)
}

func TestPayPurchaseCommissionNoReferrer(t *testing.T) {
	users := usermemory.NewRepository()
	solo := &userdomain.User{Name: "Solo", Email: "solo@example.com", ReferralCode: "SOL123456", Role: "user"}
	require.NoError(t, users.Create(context.Background(), solo))
	referrals := memory.NewRepository()
	service, err := NewService(referrals, users, 500, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, service.PayPurchaseCommission(context.Background(), solo.ID, bronzePass(11)))
	stats, err := service.Stats(context.Background(), solo.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.CommissionCount)
}

func TestRecordSignupRejectsSelfReferral(t *testing.T) {
	users, _, _ := seedUsers(t)
	service, err := NewService(memory.NewRepository(), users, 500, zap.NewNop())
	require.NoError(t, err)

	assert.ErrorIs(t, service.RecordSignup(context.Background(), 3, 3), domain.ErrSelfReferral)
}

func TestStatsAndReferees(t *testing.T) {
	users, sponsor, buyer := seedUsers(t)
	referrals := memory.NewRepository()
	referrals.SetName(buyer.ID, buyer.Name)
	service, err := NewService(referrals, users, 500, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, service.RecordSignup(context.Background(), sponsor.ID, buyer.ID))
	require.NoError(t, service.PayPurchaseCommission(context.Background(), buyer.ID, bronzePass(10)))

	stats, err := service.Stats(context.Background(), sponsor.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RefereeCount)
	assert.Equal(t, int64(200), stats.TotalCommission)

	referees, err := service.Referees(context.Background(), sponsor.ID)
	require.NoError(t, err)
	require.Len(t, referees, 1)
	assert.Equal(t, "Moussa Traore", referees[0].Name)
	assert.Equal(t, int64(200), referees[0].TotalCommission)
}

func TestCommissionAmountRounding(t *testing.T) {
	// 5% of 4000 = 200
	amount, err := domain.CommissionAmount(4000, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(200), amount)

	// 5% of 15 = 0.75, rounds up to 1
	amount, err = domain.CommissionAmount(15, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(1), amount)

	_, err = domain.CommissionAmount(0, 500)
	assert.Error(t, err)
	_, err = domain.CommissionAmount(4000, 0)
	assert.Error(t, err)
}
