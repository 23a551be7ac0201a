package repository

import (
	"context"

	"lotmarket/internal/domain/model"
)

type UserListFilter struct {
	Role     *model.Role
	IsActive *bool
	Q        string
	Page     int
	Limit    int
}

// 保存・取得を約束
type UserRepository interface {
	//新規ユーザー作成（email重複はErrConflict）
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (model.User, error)
	//メールからユーザーを一件取得する。
	FindByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context, f UserListFilter) ([]model.User, int64, error)
	UpdateRole(ctx context.Context, userID int64, role model.Role) error
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, userID int64) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, userID int64) error
	//ストライク数を+1して更新後の値を返す
	IncrementStrikeCount(ctx context.Context, userID int64) (int, error)
	Deactivate(ctx context.Context, userID int64) error
}
