package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

type UserGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *UserGormRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

// IDでユーザーを1件取得
func (r *UserGormRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

// emailでユーザーを1件取得
func (r *UserGormRepository) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return model.User{}, translate(err)
	}
	return u, nil
}

func (r *UserGormRepository) List(ctx context.Context, f repo.UserListFilter) ([]model.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})

	if f.Role != nil {
		q = q.Where("role = ?", *f.Role)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if s := strings.TrimSpace(f.Q); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(email) LIKE ? OR LOWER(company_name) LIKE ?", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return []model.User{}, 0, err
	}

	offset, limit := pageOffset(f.Page, f.Limit)
	var users []model.User
	if err := q.Order("id desc").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		return []model.User{}, 0, err
	}
	return users, total, nil
}

func (r *UserGormRepository) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	return r.updateColumns(ctx, userID, map[string]any{"role": role})
}

func (r *UserGormRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return r.updateColumns(ctx, userID, map[string]any{"password_hash": passwordHash})
}

func (r *UserGormRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	return r.updateColumns(ctx, userID, map[string]any{"last_login_at": time.Now()})
}

func (r *UserGormRepository) Deactivate(ctx context.Context, userID int64) error {
	return r.updateColumns(ctx, userID, map[string]any{"is_active": false})
}

// token_versionを+1 します。
func (r *UserGormRepository) IncrementTokenVersion(ctx context.Context, userID int64) error {
	return r.updateColumns(ctx, userID, map[string]any{"token_version": gorm.Expr("token_version + ?", 1)})
}

// strike_countを+1して更新後の値を返す
func (r *UserGormRepository) IncrementStrikeCount(ctx context.Context, userID int64) (int, error) {
	if err := r.updateColumns(ctx, userID, map[string]any{"strike_count": gorm.Expr("strike_count + ?", 1)}); err != nil {
		return 0, err
	}
	var u model.User
	if err := r.db.WithContext(ctx).Select("strike_count").Where("id = ?", userID).First(&u).Error; err != nil {
		return 0, translate(err)
	}
	return u.StrikeCount, nil
}

func (r *UserGormRepository) updateColumns(ctx context.Context, userID int64, cols map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", userID).
		Updates(cols)

	if res.Error != nil {
		return res.Error
	}
	// 0件更新は「対象がない」
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
