package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type UpdateOrderStatusInput struct {
	Status string `json:"status"`
}

// UpdateStatus は出品者本人か管理者だけが呼べる。
// cancelledへの遷移では全明細の在庫を戻す。
func (u *OrderUsecase) UpdateStatus(ctx context.Context, actorID int64, role model.Role, orderID int64, in UpdateOrderStatusInput) (OrderOutput, error) {
	if actorID <= 0 {
		return OrderOutput{}, errUnauthorized()
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if role != model.RoleSeller && role != model.RoleAdmin {
		return OrderOutput{}, errForbidden()
	}

	next := model.OrderStatus(strings.TrimSpace(in.Status))
	if !next.Valid() {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 注文取得
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return errNotFound()
		}
		if err != nil {
			return errDB()
		}
		if role == model.RoleSeller && o.SellerID != actorID {
			return errForbidden()
		}

		// すでに同じなら何もしない（200）
		if o.Status == next {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return errDB()
			}
			out = u.toOrderOutput(o, items, true)
			return nil
		}

		if !model.CanTransition(o.Status, next) {
			return NewHTTPError(http.StatusConflict, fmt.Sprintf("cannot change status from %s to %s", o.Status, next))
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, o.Status, next); err != nil {
			if errors.Is(err, repo.ErrConflict) {
				return NewHTTPError(http.StatusConflict, "order was updated concurrently")
			}
			if errors.Is(err, repo.ErrNotFound) {
				return errNotFound()
			}
			return errDB()
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errDB()
		}

		// キャンセルなら在庫戻し
		if next == model.OrderStatusCancelled {
			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return errDB()
				}
				if it.VariantKey == "" {
					continue
				}
				err := r.Inventory().IncreaseVariantStock(ctx, it.ProductID, it.VariantKey, it.Quantity)
				//バリエーションが削除済みなら商品側だけ戻す
				if err != nil && !errors.Is(err, repo.ErrNotFound) {
					return errDB()
				}
			}
		}

		//監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    fmt.Sprintf(`{"status":%q}`, next),
			CreatedAt:    u.now(),
		}); err != nil {
			return errDB()
		}

		o.Status = next
		out = u.toOrderOutput(o, items, true)
		return nil
	})
	if err != nil {
		return OrderOutput{}, passHTTPError(err)
	}
	return out, nil
}
