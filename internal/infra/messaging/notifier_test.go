package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotmarket/internal/domain/model"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func sampleInvoice() model.InvoiceRequest {
	return model.InvoiceRequest{
		BuyerEmail: "buyer@example.com",
		Order: model.Order{
			ID:          1,
			Code:        "LQ-20260101-ABCDEF",
			TotalAmount: decimal.RequireFromString("20.00"),
		},
		Items: []model.InvoiceItem{
			{Title: "Pallet", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00"), TotalPrice: decimal.RequireFromString("20.00")},
		},
	}
}

func TestKafkaNotifier_RequestInvoice(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{w: w, invoiceTopic: "invoice.requested", resetTopic: "password-reset.requested"}

	require.NoError(t, n.RequestInvoice(context.Background(), sampleInvoice()))
	require.Len(t, w.msgs, 1)

	assert.Equal(t, "invoice.requested", w.msgs[0].Topic)
	assert.Equal(t, "LQ-20260101-ABCDEF", string(w.msgs[0].Key))

	var got model.InvoiceRequest
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "buyer@example.com", got.BuyerEmail)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].TotalPrice.Equal(decimal.NewFromInt(20)))
}

func TestKafkaNotifier_SendResetCode(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{w: w, invoiceTopic: "invoice.requested", resetTopic: "password-reset.requested"}

	require.NoError(t, n.SendResetCode(context.Background(), "a@example.com", "123456"))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "password-reset.requested", w.msgs[0].Topic)
	assert.JSONEq(t, `{"email":"a@example.com","code":"123456"}`, string(w.msgs[0].Value))
}

func TestKafkaNotifier_WrapsError(t *testing.T) {
	boom := errors.New("broker down")
	n := &KafkaNotifier{w: &fakeWriter{err: boom}, invoiceTopic: "invoice.requested"}

	err := n.RequestInvoice(context.Background(), sampleInvoice())
	assert.ErrorIs(t, err, boom)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, n.RequestInvoice(context.Background(), sampleInvoice()))
	assert.Contains(t, buf.String(), `"order_code":"LQ-20260101-ABCDEF"`)
	assert.Contains(t, buf.String(), `"total":"20.00"`)

	buf.Reset()
	require.NoError(t, n.SendResetCode(context.Background(), "a@example.com", "123456"))
	//infoレベルではコードを出さない
	assert.NotContains(t, buf.String(), "123456")
}
