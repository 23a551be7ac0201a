package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
	"lotmarket/internal/repository/mocks"
)

type sellerAppFixture struct {
	uc    *SellerApplicationUsecase
	apps  *mocks.SellerApplicationRepoMock
	users *mocks.UserRepoMock
	r     *mocks.TxRepos
}

func newSellerAppFixture(t *testing.T) *sellerAppFixture {
	t.Helper()
	f := &sellerAppFixture{
		apps:  new(mocks.SellerApplicationRepoMock),
		users: new(mocks.UserRepoMock),
		r:     mocks.NewTxRepos(),
	}
	tx := &mocks.TxManagerMock{Repos: f.r}
	tx.On("WithinTx", mock.Anything).Return(nil)
	f.uc = NewSellerApplicationUsecase(tx, f.apps, f.users)
	return f
}

func TestApply_CreatesPending(t *testing.T) {
	f := newSellerAppFixture(t)
	f.users.On("FindByID", mock.Anything, int64(5)).Return(model.User{ID: 5, Role: model.RoleBuyer}, nil)
	f.apps.On("FindLatestByUserID", mock.Anything, int64(5)).Return(model.SellerApplication{}, repo.ErrNotFound)
	f.apps.On("Create", mock.Anything, mock.AnythingOfType("*model.SellerApplication")).Return(nil)

	app, err := f.uc.Apply(context.Background(), 5, ApplySellerInput{BusinessName: " Surplus Co ", TaxID: "T-1"})

	require.NoError(t, err)
	assert.Equal(t, model.SellerApplicationPending, app.Status)
	assert.Equal(t, "Surplus Co", app.BusinessName)
}

func TestApply_Conflicts(t *testing.T) {
	t.Run("already seller", func(t *testing.T) {
		f := newSellerAppFixture(t)
		f.users.On("FindByID", mock.Anything, int64(5)).Return(model.User{ID: 5, Role: model.RoleSeller}, nil)

		_, err := f.uc.Apply(context.Background(), 5, ApplySellerInput{BusinessName: "a", TaxID: "b"})
		assertStatus(t, err, http.StatusConflict)
	})
	t.Run("pending exists", func(t *testing.T) {
		f := newSellerAppFixture(t)
		f.users.On("FindByID", mock.Anything, int64(5)).Return(model.User{ID: 5, Role: model.RoleBuyer}, nil)
		f.apps.On("FindLatestByUserID", mock.Anything, int64(5)).Return(model.SellerApplication{Status: model.SellerApplicationPending}, nil)

		_, err := f.uc.Apply(context.Background(), 5, ApplySellerInput{BusinessName: "a", TaxID: "b"})
		assertStatus(t, err, http.StatusConflict)
		f.apps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
	t.Run("rejected can reapply", func(t *testing.T) {
		f := newSellerAppFixture(t)
		f.users.On("FindByID", mock.Anything, int64(5)).Return(model.User{ID: 5, Role: model.RoleBuyer}, nil)
		f.apps.On("FindLatestByUserID", mock.Anything, int64(5)).Return(model.SellerApplication{Status: model.SellerApplicationRejected}, nil)
		f.apps.On("Create", mock.Anything, mock.Anything).Return(nil)

		_, err := f.uc.Apply(context.Background(), 5, ApplySellerInput{BusinessName: "a", TaxID: "b"})
		require.NoError(t, err)
	})
}

func TestApprove_PromotesUser(t *testing.T) {
	f := newSellerAppFixture(t)
	f.r.SellerApplicationRepo.On("FindByID", mock.Anything, int64(11)).
		Return(model.SellerApplication{ID: 11, UserID: 5, Status: model.SellerApplicationPending}, nil)
	f.r.SellerApplicationRepo.On("Review", mock.Anything, mock.MatchedBy(func(a model.SellerApplication) bool {
		return a.Status == model.SellerApplicationApproved && a.ReviewedBy != nil && *a.ReviewedBy == 1
	})).Return(nil)
	f.r.UserRepo.On("UpdateRole", mock.Anything, int64(5), model.RoleSeller).Return(nil)
	f.r.UserRepo.On("IncrementTokenVersion", mock.Anything, int64(5)).Return(nil)
	f.r.AuditLogRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionReviewSellerApplication && l.BeforeJSON == `{"status":"pending"}`
	})).Return(nil)

	out, err := f.uc.Approve(context.Background(), 1, 11, ReviewSellerApplicationInput{Note: "ok"})

	require.NoError(t, err)
	assert.Equal(t, model.SellerApplicationApproved, out.Status)
	assert.Equal(t, "ok", out.ReviewNote)
	f.r.UserRepo.AssertExpectations(t)
}

func TestReject_KeepsRole(t *testing.T) {
	f := newSellerAppFixture(t)
	f.r.SellerApplicationRepo.On("FindByID", mock.Anything, int64(11)).
		Return(model.SellerApplication{ID: 11, UserID: 5, Status: model.SellerApplicationPending}, nil)
	f.r.SellerApplicationRepo.On("Review", mock.Anything, mock.Anything).Return(nil)
	f.r.AuditLogRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.Reject(context.Background(), 1, 11, ReviewSellerApplicationInput{})

	require.NoError(t, err)
	assert.Equal(t, model.SellerApplicationRejected, out.Status)
	f.r.UserRepo.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestReview_AlreadyReviewed(t *testing.T) {
	f := newSellerAppFixture(t)
	f.r.SellerApplicationRepo.On("FindByID", mock.Anything, int64(11)).
		Return(model.SellerApplication{ID: 11, Status: model.SellerApplicationApproved}, nil)

	_, err := f.uc.Reject(context.Background(), 1, 11, ReviewSellerApplicationInput{})
	assertStatus(t, err, http.StatusConflict)
}

func TestListSellerApplications_InvalidStatus(t *testing.T) {
	f := newSellerAppFixture(t)
	_, err := f.uc.List(context.Background(), "archived", 1, 20)
	assertStatus(t, err, http.StatusBadRequest)
}

func TestMine_NotFound(t *testing.T) {
	f := newSellerAppFixture(t)
	f.apps.On("FindLatestByUserID", mock.Anything, int64(5)).Return(model.SellerApplication{}, repo.ErrNotFound)

	_, err := f.uc.Mine(context.Background(), 5)
	assertStatus(t, err, http.StatusNotFound)
}
