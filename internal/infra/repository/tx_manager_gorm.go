package repository

import (
	"context"

	"gorm.io/gorm"

	repo "lotmarket/internal/repository"
)

type txReposGorm struct {
	users              repo.UserRepository
	orders             repo.OrderRepository
	orderItems         repo.OrderItemRepository
	inventory          repo.InventoryRepository
	products           repo.ProductRepository
	auditLogs          repo.AuditLogRepository
	sellerApplications repo.SellerApplicationRepository
	strikes            repo.StrikeRepository
}

func (r *txReposGorm) Users() repo.UserRepository           { return r.users }
func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository     { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }
func (r *txReposGorm) SellerApplications() repo.SellerApplicationRepository {
	return r.sellerApplications
}
func (r *txReposGorm) Strikes() repo.StrikeRepository { return r.strikes }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			users:              NewUserGormRepository(tx),
			orders:             NewOrderGormRepository(tx),
			orderItems:         NewOrderItemGormRepository(tx),
			inventory:          NewInventoryGormRepository(tx),
			products:           NewProductGormRepository(tx),
			auditLogs:          NewAuditLogGormRepository(tx),
			sellerApplications: NewSellerApplicationGormRepository(tx),
			strikes:            NewStrikeGormRepository(tx),
		}
		return fn(r)
	})
}
