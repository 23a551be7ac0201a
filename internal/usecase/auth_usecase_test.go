package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lotmarket/internal/config"
	"lotmarket/internal/domain/model"
	"lotmarket/internal/repository"
	"lotmarket/internal/repository/mocks"
)

// 入力は常に通すvalidator
type passValidator struct{ err error }

func (v passValidator) ValidateRegister(context.Context, string, string) error { return v.err }
func (v passValidator) ValidateLogin(context.Context, string, string) error { return v.err }
func (v passValidator) ValidateResetRequest(context.Context, string) error { return v.err }
func (v passValidator) ValidateResetConfirm(context.Context, string, string, string) error {
	return v.err
}

type resetNotifierMock struct{ mock.Mock }

func (m *resetNotifierMock) SendResetCode(ctx context.Context, email, code string) error {
	return m.Called(ctx, email, code).Error(0)
}

type authFixture struct {
	uc       *AuthUsecase
	users    *mocks.UserRepoMock
	codes    *mocks.ResetCodeStoreMock
	notifier *resetNotifierMock
	tx       *mocks.TxManagerMock
}

const testSecret = "unit-test-secret"

func newAuthFixture(t *testing.T, v AuthValidator) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    new(mocks.UserRepoMock),
		codes:    new(mocks.ResetCodeStoreMock),
		notifier: new(resetNotifierMock),
	}
	r := mocks.NewTxRepos()
	r.UserRepo = f.users
	f.tx = &mocks.TxManagerMock{Repos: r}
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	cfg := config.Config{JWTSecret: testSecret, AccessTokenTTL: 15 * time.Minute, ResetCodeTTL: 10 * time.Minute}
	f.uc = NewAuthUsecase(cfg, f.tx, f.users, f.codes, f.notifier, v, nil)
	return f
}

func hashed(t *testing.T, s string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestRegister_CreatesBuyer(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "new@example.com" && u.Role == model.RoleBuyer && u.PasswordHash != "password123"
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.User).ID = 11
	}).Return(nil)

	out, err := f.uc.Register(context.Background(), AuthRegisterRequest{Email: " New@Example.com ", Password: "password123", CompanyName: "Acme"})

	require.NoError(t, err)
	assert.Equal(t, int64(11), out.User.ID)
	assert.Equal(t, "buyer", out.User.Role)
	assert.Equal(t, "Acme", out.User.CompanyName)
}

func TestRegister_Errors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		f := newAuthFixture(t, passValidator{err: ErrValidation})
		_, err := f.uc.Register(context.Background(), AuthRegisterRequest{Email: "x", Password: "y"})
		assert.ErrorIs(t, err, ErrValidation)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate email", func(t *testing.T) {
		f := newAuthFixture(t, passValidator{})
		f.users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict)
		_, err := f.uc.Register(context.Background(), AuthRegisterRequest{Email: "a@b.co", Password: "password123"})
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestLogin_IssuesToken(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	user := model.User{ID: 5, Email: "s@example.com", PasswordHash: hashed(t, "password123"), Role: model.RoleSeller, TokenVersion: 3, IsActive: true}
	f.users.On("FindByEmail", mock.Anything, "s@example.com").Return(user, nil)
	f.users.On("TouchLastLogin", mock.Anything, int64(5)).Return(nil)

	out, err := f.uc.Login(context.Background(), AuthLoginRequest{Email: "s@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, 900, out.Token.ExpiresIn)
	assert.Equal(t, 3, out.Token.TokenVersion)
	assert.NotNil(t, out.User.LastLoginAt)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(out.Token.AccessToken, claims, func(*jwt.Token) (any, error) { return []byte(testSecret), nil })
	require.NoError(t, err)
	assert.Equal(t, float64(5), claims["sub"])
	assert.Equal(t, "seller", claims["role"])
	assert.Equal(t, float64(3), claims["tv"])
}

func TestLogin_Rejections(t *testing.T) {
	pw := hashed(t, "password123")

	cases := []struct {
		name    string
		user    model.User
		findErr error
		pass    string
		want    error
	}{
		{"unknown email", model.User{}, repository.ErrNotFound, "password123", ErrUnauthorized},
		{"wrong password", model.User{ID: 1, PasswordHash: pw, IsActive: true}, nil, "nope-nope", ErrUnauthorized},
		{"deactivated", model.User{ID: 1, PasswordHash: pw, IsActive: false}, nil, "password123", ErrForbidden},
		{"db down", model.User{}, errors.New("boom"), "password123", ErrInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAuthFixture(t, passValidator{})
			f.users.On("FindByEmail", mock.Anything, "u@example.com").Return(tc.user, tc.findErr)

			_, err := f.uc.Login(context.Background(), AuthLoginRequest{Email: "u@example.com", Password: tc.pass})
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestPasswordReset_RoundTrip(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	user := model.User{ID: 8, Email: "r@example.com", IsActive: true}
	f.users.On("FindByEmail", mock.Anything, "r@example.com").Return(user, nil)

	var savedHash, sentCode string
	f.codes.On("Save", mock.Anything, "r@example.com", mock.Anything, 10*time.Minute).
		Run(func(args mock.Arguments) { savedHash = args.String(2) }).Return(nil)
	f.notifier.On("SendResetCode", mock.Anything, "r@example.com", mock.Anything).
		Run(func(args mock.Arguments) { sentCode = args.String(2) }).Return(nil)

	require.NoError(t, f.uc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "r@example.com"}))
	require.Len(t, sentCode, 6)
	assert.NotEqual(t, sentCode, savedHash)

	f.codes.On("Peek", mock.Anything, "r@example.com").Return(savedHash, nil)
	f.codes.On("Consume", mock.Anything, "r@example.com").Return(savedHash, nil)
	f.users.On("UpdatePassword", mock.Anything, int64(8), mock.Anything).Return(nil)
	f.users.On("IncrementTokenVersion", mock.Anything, int64(8)).Return(nil)

	err := f.uc.ConfirmPasswordReset(context.Background(), PasswordResetConfirm{Email: "R@example.com", Code: sentCode, NewPassword: "brand-new-pass"})

	require.NoError(t, err)
	f.users.AssertCalled(t, "IncrementTokenVersion", mock.Anything, int64(8))
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, repository.ErrNotFound)

	err := f.uc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "ghost@example.com"})

	require.NoError(t, err)
	f.codes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "SendResetCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordReset_NotifierFailureIsSilent(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	f.users.On("FindByEmail", mock.Anything, "r@example.com").Return(model.User{ID: 8, Email: "r@example.com", IsActive: true}, nil)
	f.users.On("FindByEmail", mock.Anything, "ghost@example.com").Return(model.User{}, repository.ErrNotFound)
	f.codes.On("Save", mock.Anything, "r@example.com", mock.Anything, 10*time.Minute).Return(nil)
	f.notifier.On("SendResetCode", mock.Anything, "r@example.com", mock.Anything).Return(errors.New("broker down"))

	known := f.uc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "r@example.com"})
	unknown := f.uc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "ghost@example.com"})

	assert.NoError(t, known)
	assert.NoError(t, unknown)
	f.notifier.AssertNumberOfCalls(t, "SendResetCode", 1)
}

func TestPasswordReset_StoreFailureIsSilent(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	f.users.On("FindByEmail", mock.Anything, "r@example.com").Return(model.User{ID: 8, Email: "r@example.com", IsActive: true}, nil)
	f.codes.On("Save", mock.Anything, "r@example.com", mock.Anything, 10*time.Minute).Return(errors.New("redis down"))

	err := f.uc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "r@example.com"})

	assert.NoError(t, err)
	f.notifier.AssertNotCalled(t, "SendResetCode", mock.Anything, mock.Anything, mock.Anything)
}

func TestPasswordReset_BadCode(t *testing.T) {
	t.Run("no code stored", func(t *testing.T) {
		f := newAuthFixture(t, passValidator{})
		f.codes.On("Peek", mock.Anything, "r@example.com").Return("", repository.ErrNotFound)

		err := f.uc.ConfirmPasswordReset(context.Background(), PasswordResetConfirm{Email: "r@example.com", Code: "123456", NewPassword: "brand-new-pass"})
		assert.ErrorIs(t, err, ErrValidation)
		f.codes.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	})

	t.Run("wrong code keeps it usable", func(t *testing.T) {
		f := newAuthFixture(t, passValidator{})
		f.codes.On("Peek", mock.Anything, "r@example.com").Return(hashed(t, "111111"), nil)
		f.codes.On("RecordFailure", mock.Anything, "r@example.com", maxResetAttempts).Return(false, nil)

		err := f.uc.ConfirmPasswordReset(context.Background(), PasswordResetConfirm{Email: "r@example.com", Code: "222222", NewPassword: "brand-new-pass"})
		assert.ErrorIs(t, err, ErrValidation)
		f.codes.AssertCalled(t, "RecordFailure", mock.Anything, "r@example.com", maxResetAttempts)
		f.codes.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
		f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	})

	t.Run("last attempt locks", func(t *testing.T) {
		f := newAuthFixture(t, passValidator{})
		f.codes.On("Peek", mock.Anything, "r@example.com").Return(hashed(t, "111111"), nil)
		f.codes.On("RecordFailure", mock.Anything, "r@example.com", maxResetAttempts).Return(true, nil)

		err := f.uc.ConfirmPasswordReset(context.Background(), PasswordResetConfirm{Email: "r@example.com", Code: "222222", NewPassword: "brand-new-pass"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("used concurrently", func(t *testing.T) {
		f := newAuthFixture(t, passValidator{})
		h := hashed(t, "111111")
		f.codes.On("Peek", mock.Anything, "r@example.com").Return(h, nil)
		f.codes.On("Consume", mock.Anything, "r@example.com").Return("", repository.ErrNotFound)

		err := f.uc.ConfirmPasswordReset(context.Background(), PasswordResetConfirm{Email: "r@example.com", Code: "111111", NewPassword: "brand-new-pass"})
		assert.ErrorIs(t, err, ErrValidation)
		f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	})
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t, passValidator{})
	f.users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3, Email: "m@example.com", Role: model.RoleAdmin, IsActive: true}, nil)
	f.users.On("FindByID", mock.Anything, int64(4)).Return(model.User{ID: 4, IsActive: false}, nil)

	me, err := f.uc.Me(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "admin", me.Role)

	_, err = f.uc.Me(context.Background(), 4)
	assert.ErrorIs(t, err, ErrForbidden)
}
