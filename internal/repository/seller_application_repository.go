package repository

import (
	"context"

	"lotmarket/internal/domain/model"
)

type SellerApplicationRepository interface {
	Create(ctx context.Context, app *model.SellerApplication) error
	FindByID(ctx context.Context, id int64) (model.SellerApplication, error)
	//ユーザーの最新の申請
	FindLatestByUserID(ctx context.Context, userID int64) (model.SellerApplication, error)
	List(ctx context.Context, status *model.SellerApplicationStatus, page, limit int) ([]model.SellerApplication, int64, error)
	//pendingのときだけ審査結果を書き込む
	Review(ctx context.Context, app model.SellerApplication) error
}
