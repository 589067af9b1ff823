package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/auth"
	"github.com/xhris2006/moninvest/internal/users/domain"
	"github.com/xhris2006/moninvest/internal/users/infrastructure/memory"
)

type recordedSignup struct {
	referrerID int64
	refereeID  int64
}

type stubRecorder struct {
	signups []recordedSignup
}

func (s *stubRecorder) RecordSignup(_ context.Context, referrerID, refereeID int64) error {
	s.signups = append(s.signups, recordedSignup{referrerID, refereeID})
	return nil
}

type stubNotifier struct {
	notices []string
}

func (s *stubNotifier) Notify(_ context.Context, _ int64, title, _ string) error {
	s.notices = append(s.notices, title)
	return nil
}

var testSecret = []byte("test-secret")

func newTestService(t *testing.T, repo domain.Repository, opts ...Option) *Service {
	t.Helper()
	service, err := NewService(repo, testSecret, time.Hour, zap.NewNop(), opts...)
	require.NoError(t, err)
	return service
}

func TestRegisterIssuesTokenAndCode(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name:     "Amadou Diallo",
		Email:    "Amadou@Example.com",
		Phone:    "+225 07 01 02 03 04",
		Password: "secret1",
	})
	require.NoError(t, err)
	require.NotNil(t, result.User)
	assert.Equal(t, "amadou@example.com", result.User.Email)
	assert.Equal(t, "+2250701020304", result.User.Phone)
	assert.Equal(t, domain.StatusActive, result.User.Status)
	assert.Len(t, result.User.ReferralCode, 9)
	assert.Equal(t, "AMA", result.User.ReferralCode[:3])

	claims, err := auth.ParseJWT(result.Token, testSecret)
	require.NoError(t, err)
	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)
	assert.Equal(t, string(auth.RoleUser), claims.Role)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	input := RegisterInput{Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1"}
	_, err := service.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = service.Register(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestRegisterRejectsDuplicatePhone(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	_, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = service.Register(context.Background(), RegisterInput{
		Name: "Moussa", Email: "moussa@example.com", Phone: "07 01 02 03 04", Password: "secret1",
	})
	assert.ErrorIs(t, err, domain.ErrPhoneTaken)
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	service := newTestService(t, memory.NewRepository())
	for _, phone := range []string{"", "12345", "07-01-ABCD-04"} {
		_, err := service.Register(context.Background(), RegisterInput{
			Name: "Awa", Email: "awa@example.com", Phone: phone, Password: "secret1",
		})
		assert.Error(t, err, "phone %q", phone)
	}
}

func TestRegisterRecordsReferral(t *testing.T) {
	repo := memory.NewRepository()
	recorder := &stubRecorder{}
	notifier := &stubNotifier{}
	service := newTestService(t, repo, WithSignupRecorder(recorder), WithNotifier(notifier))

	sponsor, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa Kone", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	referee, err := service.Register(context.Background(), RegisterInput{
		Name:         "Moussa Traore",
		Email:        "moussa@example.com",
		Phone:        "0705060708",
		Password:     "secret1",
		ReferralCode: sponsor.User.ReferralCode,
	})
	require.NoError(t, err)

	require.Len(t, recorder.signups, 1)
	assert.Equal(t, sponsor.User.ID, recorder.signups[0].referrerID)
	assert.Equal(t, referee.User.ID, recorder.signups[0].refereeID)
	assert.Equal(t, sponsor.User.ID, referee.User.ReferredBy)

	// each signup sends a verification code and a welcome, plus the
	// sponsor's new-referee notice
	assert.Len(t, notifier.notices, 5)
}

func TestRegisterIgnoresUnknownReferralCode(t *testing.T) {
	repo := memory.NewRepository()
	recorder := &stubRecorder{}
	service := newTestService(t, repo, WithSignupRecorder(recorder))

	result, err := service.Register(context.Background(), RegisterInput{
		Name:         "Fatou Sow",
		Email:        "fatou@example.com",
		Phone:        "0709080706",
		Password:     "secret1",
		ReferralCode: "NOPE00XXX",
	})
	require.NoError(t, err)
	assert.Zero(t, result.User.ReferredBy)
	assert.Empty(t, recorder.signups)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	service := newTestService(t, memory.NewRepository())
	_, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "abc",
	})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestLogin(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	_, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	result, err := service.Login(context.Background(), "AWA@example.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.False(t, result.User.LastLoginAt.IsZero())

	_, err = service.Login(context.Background(), "awa@example.com", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = service.Login(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	repo.Suspend(result.User.ID)

	_, err = service.Login(context.Background(), "awa@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrAccountSuspended)
}

func TestVerifyEmail(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)
	assert.False(t, result.User.Verified)

	token := repo.VerificationToken(result.User.ID)
	require.NotEmpty(t, token)

	require.NoError(t, service.VerifyEmail(context.Background(), token))
	user, err := service.Profile(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.True(t, user.Verified)

	// a token is single use
	assert.ErrorIs(t, service.VerifyEmail(context.Background(), token), domain.ErrTokenInvalid)
	assert.ErrorIs(t, service.VerifyEmail(context.Background(), "bogus"), domain.ErrTokenInvalid)
}

func TestPasswordResetFlow(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, service.RequestPasswordReset(context.Background(), "AWA@example.com"))
	token := repo.ResetToken(result.User.ID)
	require.NotEmpty(t, token)

	require.NoError(t, service.ResetPassword(context.Background(), token, "newsecret"))

	_, err = service.Login(context.Background(), "awa@example.com", "newsecret")
	require.NoError(t, err)
	_, err = service.Login(context.Background(), "awa@example.com", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// spent tokens are rejected
	assert.ErrorIs(t, service.ResetPassword(context.Background(), token, "another1"), domain.ErrTokenInvalid)
}

func TestPasswordResetUnknownEmail(t *testing.T) {
	service := newTestService(t, memory.NewRepository())
	err := service.RequestPasswordReset(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPasswordResetExpiredToken(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, repo.SetResetToken(context.Background(), result.User.ID, "stale-token", time.Now().Add(-time.Minute)))
	err = service.ResetPassword(context.Background(), "stale-token", "newsecret")
	assert.ErrorIs(t, err, domain.ErrTokenInvalid)
}

func TestPasswordResetRejectsShortPassword(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	require.NoError(t, service.RequestPasswordReset(context.Background(), "awa@example.com"))
	token := repo.ResetToken(result.User.ID)
	require.NotEmpty(t, token)

	assert.ErrorIs(t, service.ResetPassword(context.Background(), token, "abc"), auth.ErrPasswordTooShort)

	// the failed attempt must not spend the token
	require.NoError(t, service.ResetPassword(context.Background(), token, "newsecret"))
}

func TestUpdateProfile(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	result, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa Kone", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)

	updated, err := service.UpdateProfile(context.Background(), result.User.ID, UpdateProfileInput{
		Name:  "Awa Kone Diabate",
		Phone: "07 05 06 07 08",
	})
	require.NoError(t, err)
	assert.Equal(t, "Awa Kone Diabate", updated.Name)
	assert.Equal(t, "0705060708", updated.Phone)

	// empty fields keep their value
	kept, err := service.UpdateProfile(context.Background(), result.User.ID, UpdateProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "Awa Kone Diabate", kept.Name)
	assert.Equal(t, "0705060708", kept.Phone)
}

func TestUpdateProfileRejectsTakenPhone(t *testing.T) {
	repo := memory.NewRepository()
	service := newTestService(t, repo)

	_, err := service.Register(context.Background(), RegisterInput{
		Name: "Awa", Email: "awa@example.com", Phone: "0701020304", Password: "secret1",
	})
	require.NoError(t, err)
	other, err := service.Register(context.Background(), RegisterInput{
		Name: "Moussa", Email: "moussa@example.com", Phone: "0705060708", Password: "secret1",
	})
	require.NoError(t, err)

	_, err = service.UpdateProfile(context.Background(), other.User.ID, UpdateProfileInput{Phone: "0701020304"})
	assert.ErrorIs(t, err, domain.ErrPhoneTaken)
}
