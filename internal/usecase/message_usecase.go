package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

const maxMessageLength = 4000

type MessageUsecase struct {
	messages repo.MessageRepository
	users    repo.UserRepository
	orders   repo.OrderRepository
}

func NewMessageUsecase(messages repo.MessageRepository, users repo.UserRepository, orders repo.OrderRepository) *MessageUsecase {
	return &MessageUsecase{messages: messages, users: users, orders: orders}
}

type SendMessageInput struct {
	RecipientID int64  `json:"recipientId"`
	OrderID     *int64 `json:"orderId"`
	Body        string `json:"body"`
}

type MessageListOutput struct {
	Items []model.Message `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *MessageUsecase) Send(ctx context.Context, senderID int64, in SendMessageInput) (model.Message, error) {
	if senderID <= 0 {
		return model.Message{}, errUnauthorized()
	}
	if in.RecipientID <= 0 {
		return model.Message{}, NewHTTPError(http.StatusBadRequest, "invalid recipientId")
	}
	if in.RecipientID == senderID {
		return model.Message{}, NewHTTPError(http.StatusBadRequest, "cannot message yourself")
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return model.Message{}, NewHTTPError(http.StatusBadRequest, "body required")
	}
	if utf8.RuneCountInString(body) > maxMessageLength {
		return model.Message{}, NewHTTPError(http.StatusBadRequest, "body too long")
	}

	recipient, err := u.users.FindByID(ctx, in.RecipientID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Message{}, NewHTTPError(http.StatusNotFound, "recipient not found")
	}
	if err != nil {
		return model.Message{}, errDB()
	}
	if !recipient.IsActive {
		return model.Message{}, NewHTTPError(http.StatusNotFound, "recipient not found")
	}

	//注文に紐づける場合は当事者同士のみ
	if in.OrderID != nil {
		o, err := u.orders.FindByID(ctx, *in.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Message{}, NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return model.Message{}, errDB()
		}
		if !orderParties(o, senderID, in.RecipientID) {
			return model.Message{}, errForbidden()
		}
	}

	msg := model.Message{
		SenderID:    senderID,
		RecipientID: in.RecipientID,
		OrderID:     in.OrderID,
		Body:        body,
	}
	if err := u.messages.Create(ctx, &msg); err != nil {
		return model.Message{}, errDB()
	}
	return msg, nil
}

func orderParties(o model.Order, a, b int64) bool {
	return (o.BuyerID == a && o.SellerID == b) || (o.BuyerID == b && o.SellerID == a)
}

func (u *MessageUsecase) Inbox(ctx context.Context, userID int64, unreadOnly bool, page, limit int) (MessageListOutput, error) {
	if userID <= 0 {
		return MessageListOutput{}, errUnauthorized()
	}
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return MessageListOutput{}, err
	}

	items, total, err := u.messages.ListInbox(ctx, userID, unreadOnly, page, limit)
	if err != nil {
		return MessageListOutput{}, errDB()
	}
	return MessageListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (u *MessageUsecase) Thread(ctx context.Context, userID, otherUserID int64, page, limit int) ([]model.Message, error) {
	if userID <= 0 {
		return nil, errUnauthorized()
	}
	if otherUserID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid userId")
	}
	page, limit, err := normalizePage(page, limit)
	if err != nil {
		return nil, err
	}

	items, err := u.messages.ListThread(ctx, userID, otherUserID, page, limit)
	if err != nil {
		return nil, errDB()
	}
	return items, nil
}

// 受信者本人だけが既読にできる
func (u *MessageUsecase) MarkRead(ctx context.Context, userID, messageID int64) error {
	if userID <= 0 {
		return errUnauthorized()
	}
	if messageID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	err := u.messages.MarkRead(ctx, messageID, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return errNotFound()
	}
	if err != nil {
		return errDB()
	}
	return nil
}
