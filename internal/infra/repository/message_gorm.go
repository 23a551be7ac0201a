package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type MessageGormRepository struct {
	db *gorm.DB
}

func NewMessageGormRepository(db *gorm.DB) *MessageGormRepository {
	return &MessageGormRepository{db: db}
}

func (r *MessageGormRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *MessageGormRepository) FindByID(ctx context.Context, id int64) (model.Message, error) {
	var m model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return model.Message{}, translate(err)
	}
	return m, nil
}

// 受信箱（新しい順）
func (r *MessageGormRepository) ListInbox(ctx context.Context, recipientID int64, unreadOnly bool, page, limit int) ([]model.Message, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Message{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.Message{}, 0, err
	}

	offset, limit := pageOffset(page, limit)
	var list []model.Message
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.Message{}, 0, err
	}
	return list, total, nil
}

func (r *MessageGormRepository) ListThread(ctx context.Context, userID, otherUserID int64, page, limit int) ([]model.Message, error) {
	offset, limit := pageOffset(page, limit)
	var list []model.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, otherUserID, otherUserID, userID).
		Order("id asc").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return []model.Message{}, err
	}
	return list, nil
}

// 受信者本人のときだけ既読にする。既読済みはそのまま
func (r *MessageGormRepository) MarkRead(ctx context.Context, id int64, recipientID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", time.Now())
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&model.Message{}).
			Where("id = ? AND recipient_id = ?", id, recipientID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repo.ErrNotFound
		}
	}
	return nil
}
