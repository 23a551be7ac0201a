package model

import "github.com/shopspring/decimal"

// 請求書の明細
type InvoiceItem struct {
	Title      string          `json:"title"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
}

// メール送信側へ渡す請求書の依頼（1注文に1件）
type InvoiceRequest struct {
	BuyerEmail string        `json:"buyerEmail"`
	Order      Order         `json:"order"`
	Items      []InvoiceItem `json:"items"`
}
