package messaging

import (
	"context"
	"log/slog"

	"lotmarket/internal/domain/model"
)

// ブローカー未設定のときはログに出すだけ
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

func (n *LogNotifier) RequestInvoice(ctx context.Context, req model.InvoiceRequest) error {
	n.logger.InfoContext(ctx, "invoice requested",
		slog.String("order_code", req.Order.Code),
		slog.String("buyer_email", req.BuyerEmail),
		slog.Int("items", len(req.Items)),
		slog.String("total", req.Order.TotalAmount.StringFixed(2)),
	)
	return nil
}

// コードはdebugのときだけ出す
func (n *LogNotifier) SendResetCode(ctx context.Context, email, code string) error {
	n.logger.InfoContext(ctx, "password reset code issued", slog.String("email", email))
	n.logger.DebugContext(ctx, "password reset code", slog.String("email", email), slog.String("code", code))
	return nil
}

func (n *LogNotifier) Close() error { return nil }
