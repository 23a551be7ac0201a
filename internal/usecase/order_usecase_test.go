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
)

func TestSellerPayout(t *testing.T) {
	f := newOrderFixture(t)

	assert.Equal(t, "90.00", f.uc.SellerPayout(dec("100")).StringFixed(2))
	assert.Equal(t, "8.99", f.uc.SellerPayout(dec("9.99")).StringFixed(2))
	assert.Equal(t, "0.00", f.uc.SellerPayout(dec("0")).StringFixed(2))
}

func TestGetOrder_Visibility(t *testing.T) {
	o := model.Order{ID: 5, BuyerID: testBuyerID, SellerID: 3, TotalAmount: dec("50"), Status: model.OrderStatusOrdered}

	cases := []struct {
		name       string
		actor      int64
		role       model.Role
		wantStatus int
		payout     string
	}{
		{"buyer", testBuyerID, model.RoleBuyer, http.StatusOK, ""},
		{"owning seller", 3, model.RoleSeller, http.StatusOK, "45.00"},
		{"admin", 99, model.RoleAdmin, http.StatusOK, "45.00"},
		{"other buyer", 2, model.RoleBuyer, http.StatusNotFound, ""},
		{"other seller", 4, model.RoleSeller, http.StatusNotFound, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOrderFixture(t)
			f.orders.On("FindByID", mock.Anything, int64(5)).Return(o, nil)
			f.items.On("ListByOrderID", mock.Anything, int64(5)).Return(nil, nil)

			out, err := f.uc.GetOrder(context.Background(), tc.actor, tc.role, 5)

			if tc.wantStatus != http.StatusOK {
				he, ok := AsHTTPError(err)
				require.True(t, ok)
				assert.Equal(t, tc.wantStatus, he.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.payout, out.SellerPayout)
		})
	}
}

func TestListSellerOrders_FiltersBySeller(t *testing.T) {
	f := newOrderFixture(t)
	f.orders.On("List", mock.Anything, mock.MatchedBy(func(fl repo.OrderListFilter) bool {
		return fl.SellerID != nil && *fl.SellerID == 3 && fl.BuyerID == nil && fl.Page == 1 && fl.Limit == 20
	})).Return([]model.Order{{ID: 1, SellerID: 3, TotalAmount: dec("10")}}, 1, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(1)).Return(nil, nil)

	out, err := f.uc.ListSellerOrders(context.Background(), 3, ListOrdersInput{})

	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(1), out.Total)
	assert.Equal(t, "9.00", out.Items[0].SellerPayout)
}

func TestListMyOrders_InvalidLimit(t *testing.T) {
	f := newOrderFixture(t)

	_, err := f.uc.ListMyOrders(context.Background(), testBuyerID, ListOrdersInput{Limit: 1000})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
}
