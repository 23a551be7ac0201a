package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
	"lotmarket/internal/repository/mocks"
)

func validAddress() AddressRequest {
	return AddressRequest{Name: "Dock 4", Line1: "1 Harbor Rd", City: "Osaka", PostalCode: "550-0001", Country: "jp"}
}

func TestAddressCreate_Normalizes(t *testing.T) {
	addrs := new(mocks.AddressRepoMock)
	uc := NewAddressUsecase(addrs)
	addrs.On("Create", mock.Anything, mock.MatchedBy(func(a model.Address) bool {
		return a.UserID == 5 && a.Country == "JP"
	})).Return(model.Address{ID: 1, UserID: 5, Country: "JP"}, nil)

	out, err := uc.Create(context.Background(), 5, validAddress())

	require.NoError(t, err)
	assert.Equal(t, int64(1), out.ID)
	assert.NotNil(t, out.UpdatedAt)
}

func TestAddressCreate_Invalid(t *testing.T) {
	uc := NewAddressUsecase(new(mocks.AddressRepoMock))

	req := validAddress()
	req.Country = "JPN"
	_, err := uc.Create(context.Background(), 5, req)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = uc.Create(context.Background(), 0, validAddress())
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAddressOwnership(t *testing.T) {
	addrs := new(mocks.AddressRepoMock)
	uc := NewAddressUsecase(addrs)
	addrs.On("FindByID", mock.Anything, int64(1)).Return(model.Address{ID: 1, UserID: 9}, nil)
	addrs.On("FindByID", mock.Anything, int64(2)).Return(model.Address{}, repo.ErrNotFound)

	assert.ErrorIs(t, uc.Update(context.Background(), 5, 1, validAddress()), ErrForbidden)
	assert.ErrorIs(t, uc.Delete(context.Background(), 5, 1), ErrForbidden)
	assert.ErrorIs(t, uc.SetDefault(context.Background(), 5, 2), ErrNotFound)
	addrs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestAddressSetDefault(t *testing.T) {
	addrs := new(mocks.AddressRepoMock)
	uc := NewAddressUsecase(addrs)
	addrs.On("FindByID", mock.Anything, int64(1)).Return(model.Address{ID: 1, UserID: 5}, nil)
	addrs.On("SetDefault", mock.Anything, int64(5), int64(1)).Return(nil)

	require.NoError(t, uc.SetDefault(context.Background(), 5, 1))
	addrs.AssertExpectations(t)
}

func TestAddressList_DBError(t *testing.T) {
	addrs := new(mocks.AddressRepoMock)
	uc := NewAddressUsecase(addrs)
	addrs.On("ListByUserID", mock.Anything, int64(5)).Return(nil, errors.New("boom"))

	_, err := uc.List(context.Background(), 5)
	assert.ErrorIs(t, err, ErrInternal)
}
