package repository

import (
	"context"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type SellerApplicationGormRepository struct {
	db *gorm.DB
}

func NewSellerApplicationGormRepository(db *gorm.DB) *SellerApplicationGormRepository {
	return &SellerApplicationGormRepository{db: db}
}

func (r *SellerApplicationGormRepository) Create(ctx context.Context, app *model.SellerApplication) error {
	return translate(r.db.WithContext(ctx).Create(app).Error)
}

func (r *SellerApplicationGormRepository) FindByID(ctx context.Context, id int64) (model.SellerApplication, error) {
	var a model.SellerApplication
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return model.SellerApplication{}, translate(err)
	}
	return a, nil
}

func (r *SellerApplicationGormRepository) FindLatestByUserID(ctx context.Context, userID int64) (model.SellerApplication, error) {
	var a model.SellerApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id desc").
		First(&a).Error
	if err != nil {
		return model.SellerApplication{}, translate(err)
	}
	return a, nil
}

func (r *SellerApplicationGormRepository) List(ctx context.Context, status *model.SellerApplicationStatus, page, limit int) ([]model.SellerApplication, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.SellerApplication{})
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.SellerApplication{}, 0, err
	}

	offset, limit := pageOffset(page, limit)
	var list []model.SellerApplication
	if err := q.Order("id asc").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return []model.SellerApplication{}, 0, err
	}
	return list, total, nil
}

// pendingのものだけ更新。審査済みならErrConflict
func (r *SellerApplicationGormRepository) Review(ctx context.Context, app model.SellerApplication) error {
	res := r.db.WithContext(ctx).
		Model(&model.SellerApplication{}).
		Where("id = ? AND status = ?", app.ID, model.SellerApplicationPending).
		Updates(map[string]any{
			"status":      app.Status,
			"reviewed_by": app.ReviewedBy,
			"reviewed_at": app.ReviewedAt,
			"review_note": app.ReviewNote,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrConflict
	}
	return nil
}
