package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

// Redisを使わない環境用のリセットコード保存先
type ResetCodeGormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewResetCodeGormStore(db *gorm.DB) *ResetCodeGormStore {
	return &ResetCodeGormStore{db: db, now: time.Now}
}

// 未使用のコードは無効化してから新しいコードを保存
func (s *ResetCodeGormStore) Save(ctx context.Context, email string, codeHash string, ttl time.Duration) error {
	email = strings.ToLower(strings.TrimSpace(email))
	now := s.now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.PasswordResetCode{}).
			Where("email = ? AND used_at IS NULL", email).
			Update("used_at", now).Error; err != nil {
			return err
		}
		code := model.PasswordResetCode{
			Email:     email,
			CodeHash:  codeHash,
			ExpiresAt: now.Add(ttl),
		}
		return tx.Create(&code).Error
	})
}

// 未使用で期限内の最新コード
func (s *ResetCodeGormStore) current(ctx context.Context, email string, now time.Time) (model.PasswordResetCode, error) {
	var code model.PasswordResetCode
	err := s.db.WithContext(ctx).
		Where("email = ? AND used_at IS NULL AND expires_at > ?", strings.ToLower(strings.TrimSpace(email)), now).
		Order("id desc").
		First(&code).Error
	if err != nil {
		return model.PasswordResetCode{}, translate(err)
	}
	return code, nil
}

func (s *ResetCodeGormStore) Peek(ctx context.Context, email string) (string, error) {
	code, err := s.current(ctx, email, s.now())
	if err != nil {
		return "", err
	}
	return code.CodeHash, nil
}

// 上限に達したコードはused_atを立てて無効化
func (s *ResetCodeGormStore) RecordFailure(ctx context.Context, email string, maxAttempts int) (bool, error) {
	now := s.now()
	code, err := s.current(ctx, email, now)
	if err != nil {
		return false, err
	}

	if err := s.db.WithContext(ctx).
		Model(&model.PasswordResetCode{}).
		Where("id = ? AND used_at IS NULL", code.ID).
		Update("failed_attempts", gorm.Expr("failed_attempts + 1")).Error; err != nil {
		return false, err
	}

	res := s.db.WithContext(ctx).
		Model(&model.PasswordResetCode{}).
		Where("id = ? AND used_at IS NULL AND failed_attempts >= ?", code.ID, maxAttempts).
		Update("used_at", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// 有効なコードを1回だけ取り出す
func (s *ResetCodeGormStore) Consume(ctx context.Context, email string) (string, error) {
	now := s.now()
	code, err := s.current(ctx, email, now)
	if err != nil {
		return "", err
	}

	//同時に使われた場合は片方だけ成功
	res := s.db.WithContext(ctx).
		Model(&model.PasswordResetCode{}).
		Where("id = ? AND used_at IS NULL", code.ID).
		Update("used_at", now)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", repo.ErrNotFound
	}
	return code.CodeHash, nil
}
