package application

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/claims/domain"
	"github.com/xhris2006/moninvest/internal/claims/infrastructure/memory"
)

type stubNotifier struct {
	notices []string
}

func (s *stubNotifier) Notify(_ context.Context, _ int64, title, _ string) error {
	s.notices = append(s.notices, title)
	return nil
}

func TestCreateAssignsReference(t *testing.T) {
	notifier := &stubNotifier{}
	service, err := NewService(memory.NewRepository(), zap.NewNop(), WithNotifier(notifier))
	require.NoError(t, err)

	claim, err := service.Create(context.Background(), CreateInput{
		UserID:   7,
		Category: domain.CategoryPayment,
		Subject:  "Dépôt non crédité",
		Body:     "Mon dépôt de 5000 FCFA n'apparaît pas.",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(claim.Reference, "RECL-"))
	assert.Len(t, claim.Reference, 11)
	assert.Equal(t, domain.StatusOpen, claim.Status)
	assert.Equal(t, domain.PriorityNormal, claim.Priority)
	assert.Len(t, notifier.notices, 1)
}

func TestCreateValidatesInput(t *testing.T) {
	service, err := NewService(memory.NewRepository(), zap.NewNop())
	require.NoError(t, err)

	_, err = service.Create(context.Background(), CreateInput{
		UserID: 7, Category: "bogus", Subject: "x", Body: "y",
	})
	assert.Error(t, err)

	_, err = service.Create(context.Background(), CreateInput{
		UserID: 7, Category: domain.CategoryOther, Subject: "  ", Body: "y",
	})
	assert.Error(t, err)
}

func TestUpdateStatusNotifiesOnResponse(t *testing.T) {
	notifier := &stubNotifier{}
	service, err := NewService(memory.NewRepository(), zap.NewNop(), WithNotifier(notifier))
	require.NoError(t, err)

	claim, err := service.Create(context.Background(), CreateInput{
		UserID: 7, Category: domain.CategoryPass, Subject: "Pass inactif", Body: "Mon pass ne produit pas de gains.",
	})
	require.NoError(t, err)

	updated, err := service.UpdateStatus(context.Background(), claim.ID, domain.StatusResolved, "Le pass a été réactivé.")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, updated.Status)
	assert.Equal(t, "Le pass a été réactivé.", updated.AdminResponse)
	// creation notice + response notice
	assert.Len(t, notifier.notices, 2)
}

func TestUpdateStatusRejectsClosedTransition(t *testing.T) {
	service, err := NewService(memory.NewRepository(), zap.NewNop())
	require.NoError(t, err)

	claim, err := service.Create(context.Background(), CreateInput{
		UserID: 7, Category: domain.CategoryOther, Subject: "s", Body: "b",
	})
	require.NoError(t, err)

	_, err = service.UpdateStatus(context.Background(), claim.ID, domain.StatusClosed, "")
	require.NoError(t, err)

	_, err = service.UpdateStatus(context.Background(), claim.ID, domain.StatusOpen, "")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatusUnknownClaim(t *testing.T) {
	service, err := NewService(memory.NewRepository(), zap.NewNop())
	require.NoError(t, err)

	_, err = service.UpdateStatus(context.Background(), 99, domain.StatusResolved, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByReferenceOwnership(t *testing.T) {
	service, err := NewService(memory.NewRepository(), zap.NewNop())
	require.NoError(t, err)

	claim, err := service.Create(context.Background(), CreateInput{
		UserID:   7,
		Category: domain.CategoryAccount,
		Subject:  "Accès au compte",
		Body:     "Je ne reçois plus mes notifications.",
	})
	require.NoError(t, err)

	got, err := service.GetByReference(context.Background(), claim.Reference, 7, false)
	require.NoError(t, err)
	assert.Equal(t, claim.ID, got.ID)

	// another user cannot read it, an admin can
	_, err = service.GetByReference(context.Background(), claim.Reference, 8, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = service.GetByReference(context.Background(), claim.Reference, 8, true)
	assert.NoError(t, err)

	_, err = service.GetByReference(context.Background(), "RECL-FFFFFF", 7, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
