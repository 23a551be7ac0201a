package repository

import (
	"context"

	"lotmarket/internal/domain/model"
)

type StrikeRepository interface {
	Create(ctx context.Context, strike *model.Strike) error
	ListByUserID(ctx context.Context, userID int64) ([]model.Strike, error)
}
