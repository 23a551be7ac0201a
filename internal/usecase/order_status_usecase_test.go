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

func orderWithStatus(status model.OrderStatus) model.Order {
	return model.Order{ID: 10, BuyerID: testBuyerID, SellerID: 3, TotalAmount: dec("100"), Status: status}
}

func TestUpdateStatus_SellerShips(t *testing.T) {
	f := newOrderFixture(t)
	f.r.OrderRepo.On("FindByID", mock.Anything, int64(10)).Return(orderWithStatus(model.OrderStatusOrdered), nil)
	f.r.OrderRepo.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusOrdered, model.OrderStatusShipped).Return(nil)
	f.r.OrderItemRepo.On("ListByOrderID", mock.Anything, int64(10)).Return(nil, nil)
	f.r.AuditLogRepo.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateOrderStatus &&
			l.ActorUserID == 3 &&
			l.BeforeJSON == `{"status":"ordered"}` &&
			l.AfterJSON == `{"status":"shipped"}`
	})).Return(nil)

	out, err := f.uc.UpdateStatus(context.Background(), 3, model.RoleSeller, 10, UpdateOrderStatusInput{Status: "shipped"})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, out.Status)
	assert.Equal(t, "90.00", out.SellerPayout)
	f.r.AuditLogRepo.AssertExpectations(t)
}

func TestUpdateStatus_CancelRestoresStock(t *testing.T) {
	f := newOrderFixture(t)
	f.r.OrderRepo.On("FindByID", mock.Anything, int64(10)).Return(orderWithStatus(model.OrderStatusShipped), nil)
	f.r.OrderRepo.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusShipped, model.OrderStatusCancelled).Return(nil)
	f.r.OrderItemRepo.On("ListByOrderID", mock.Anything, int64(10)).Return([]model.OrderItem{
		{ProductID: 1, Quantity: 4},
		{ProductID: 2, Quantity: 3, VariantKey: "color=red"},
		{ProductID: 3, Quantity: 1, VariantKey: "size=s"},
	}, nil)
	f.r.InventoryRepo.On("IncreaseStock", mock.Anything, int64(1), int64(4)).Return(nil)
	f.r.InventoryRepo.On("IncreaseStock", mock.Anything, int64(2), int64(3)).Return(nil)
	f.r.InventoryRepo.On("IncreaseStock", mock.Anything, int64(3), int64(1)).Return(nil)
	f.r.InventoryRepo.On("IncreaseVariantStock", mock.Anything, int64(2), "color=red", int64(3)).Return(nil)
	//削除済みバリエーション
	f.r.InventoryRepo.On("IncreaseVariantStock", mock.Anything, int64(3), "size=s", int64(1)).Return(repo.ErrNotFound)
	f.r.AuditLogRepo.On("Create", mock.Anything, mock.Anything).Return(nil)

	out, err := f.uc.UpdateStatus(context.Background(), 99, model.RoleAdmin, 10, UpdateOrderStatusInput{Status: "cancelled"})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, out.Status)
	f.r.InventoryRepo.AssertExpectations(t)
}

func TestUpdateStatus_SameStatusIsNoop(t *testing.T) {
	f := newOrderFixture(t)
	f.r.OrderRepo.On("FindByID", mock.Anything, int64(10)).Return(orderWithStatus(model.OrderStatusShipped), nil)
	f.r.OrderItemRepo.On("ListByOrderID", mock.Anything, int64(10)).Return(nil, nil)

	out, err := f.uc.UpdateStatus(context.Background(), 3, model.RoleSeller, 10, UpdateOrderStatusInput{Status: "shipped"})

	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, out.Status)
	f.r.OrderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.r.AuditLogRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		actor   int64
		role    model.Role
		current model.OrderStatus
		next    string
		status  int
	}{
		{"buyer cannot change", testBuyerID, model.RoleBuyer, model.OrderStatusOrdered, "shipped", http.StatusForbidden},
		{"other seller", 4, model.RoleSeller, model.OrderStatusOrdered, "shipped", http.StatusForbidden},
		{"unknown status", 3, model.RoleSeller, model.OrderStatusOrdered, "lost", http.StatusBadRequest},
		{"backwards", 3, model.RoleSeller, model.OrderStatusShipped, "ordered", http.StatusConflict},
		{"from terminal", 3, model.RoleSeller, model.OrderStatusDelivered, "cancelled", http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newOrderFixture(t)
			f.r.OrderRepo.On("FindByID", mock.Anything, int64(10)).Return(orderWithStatus(tc.current), nil)

			_, err := f.uc.UpdateStatus(context.Background(), tc.actor, tc.role, 10, UpdateOrderStatusInput{Status: tc.next})

			he, ok := AsHTTPError(err)
			require.True(t, ok)
			assert.Equal(t, tc.status, he.Status)
			f.r.OrderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateStatus_ConcurrentChange(t *testing.T) {
	f := newOrderFixture(t)
	f.r.OrderRepo.On("FindByID", mock.Anything, int64(10)).Return(orderWithStatus(model.OrderStatusOrdered), nil)
	f.r.OrderRepo.On("UpdateStatus", mock.Anything, int64(10), model.OrderStatusOrdered, model.OrderStatusShipped).Return(repo.ErrConflict)

	_, err := f.uc.UpdateStatus(context.Background(), 3, model.RoleSeller, 10, UpdateOrderStatusInput{Status: "shipped"})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, he.Status)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	f := newOrderFixture(t)
	f.r.OrderRepo.On("FindByID", mock.Anything, int64(10)).Return(model.Order{}, repo.ErrNotFound)

	_, err := f.uc.UpdateStatus(context.Background(), 3, model.RoleSeller, 10, UpdateOrderStatusInput{Status: "shipped"})

	he, ok := AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}
