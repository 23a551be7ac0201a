package repository

import (
	"context"

	"lotmarket/internal/domain/model"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	FindByID(ctx context.Context, id int64) (model.Message, error)
	ListInbox(ctx context.Context, recipientID int64, unreadOnly bool, page, limit int) ([]model.Message, int64, error)
	//2人の間のやり取りを古い順に返す
	ListThread(ctx context.Context, userID, otherUserID int64, page, limit int) ([]model.Message, error)
	MarkRead(ctx context.Context, id int64, recipientID int64) error
}
