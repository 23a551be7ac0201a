package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"lotmarket/internal/domain/model"
)

// kafka.Writerのうち使う部分だけ
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// メール送信サービスへのイベントをKafkaへ送る
type KafkaNotifier struct {
	w            messageWriter
	invoiceTopic string
	resetTopic   string
}

// topicはメッセージごとに指定する
func NewKafkaNotifier(brokers []string, invoiceTopic, resetTopic string) *KafkaNotifier {
	return &KafkaNotifier{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		invoiceTopic: invoiceTopic,
		resetTopic:   resetTopic,
	}
}

// 請求書の依頼。キーは注文コード
func (n *KafkaNotifier) RequestInvoice(ctx context.Context, req model.InvoiceRequest) error {
	return n.publish(ctx, n.invoiceTopic, req.Order.Code, req)
}

type resetCodeEvent struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// リセットコードの送信依頼。キーはemail
func (n *KafkaNotifier) SendResetCode(ctx context.Context, email, code string) error {
	return n.publish(ctx, n.resetTopic, email, resetCodeEvent{Email: email, Code: code})
}

func (n *KafkaNotifier) publish(ctx context.Context, topic, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s marshal: %w", topic, err)
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}
	if err := n.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("%s publish %s: %w", topic, key, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.w.Close()
}
