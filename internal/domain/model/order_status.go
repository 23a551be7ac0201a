package model

type OrderStatus string

const (
	OrderStatusAwaitingWire   OrderStatus = "awaiting_wire"
	OrderStatusOrdered        OrderStatus = "ordered"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// 前進方向の順位。cancelledは順位なし
var statusRank = map[OrderStatus]int{
	OrderStatusAwaitingWire:   0,
	OrderStatusOrdered:        1,
	OrderStatusShipped:        2,
	OrderStatusOutForDelivery: 3,
	OrderStatusDelivered:      4,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// 終端（これ以上変更できない）
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// 注文作成時に指定できるステータス
func (s OrderStatus) Initial() bool {
	return s == OrderStatusOrdered || s == OrderStatusAwaitingWire
}

// CanTransition は from -> to が許可されているかを返す。
// 非終端からのみ遷移でき、cancelledへはいつでも、それ以外は前進のみ。
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	return statusRank[to] > statusRank[from]
}

// すべての状態（テストや入力チェック用）
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusAwaitingWire,
		OrderStatusOrdered,
		OrderStatusShipped,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCancelled,
	}
}
