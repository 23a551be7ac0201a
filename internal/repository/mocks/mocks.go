// Package mocks はテスト用のtestifyモック。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"lotmarket/internal/domain/model"
	repo "lotmarket/internal/repository"
)

// =====================
// UserRepository
// =====================

type UserRepoMock struct{ mock.Mock }

var _ repo.UserRepository = (*UserRepoMock)(nil)

func (m *UserRepoMock) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) List(ctx context.Context, f repo.UserListFilter) ([]model.User, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.User)
	return list, int64(args.Int(1)), args.Error(2)
}

func (m *UserRepoMock) UpdateRole(ctx context.Context, userID int64, role model.Role) error {
	return m.Called(ctx, userID, role).Error(0)
}

func (m *UserRepoMock) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

func (m *UserRepoMock) TouchLastLogin(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *UserRepoMock) IncrementTokenVersion(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *UserRepoMock) IncrementStrikeCount(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *UserRepoMock) Deactivate(ctx context.Context, userID int64) error {
	return m.Called(ctx, userID).Error(0)
}

// =====================
// ProductRepository
// =====================

type ProductRepoMock struct{ mock.Mock }

var _ repo.ProductRepository = (*ProductRepoMock)(nil)

func (m *ProductRepoMock) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	list, _ := args.Get(0).([]model.Product)
	return list, int64(args.Int(1)), args.Error(2)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product, variants []model.ProductVariant) (model.Product, error) {
	args := m.Called(ctx, p, variants)
	out, _ := args.Get(0).(model.Product)
	return out, args.Error(1)
}

func (m *ProductRepoMock) Update(ctx context.Context, p model.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *ProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ProductRepoMock) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	args := m.Called(ctx, productID)
	list, _ := args.Get(0).([]model.ProductVariant)
	return list, args.Error(1)
}

func (m *ProductRepoMock) FindVariant(ctx context.Context, productID int64, variantKey string) (model.ProductVariant, error) {
	args := m.Called(ctx, productID, variantKey)
	v, _ := args.Get(0).(model.ProductVariant)
	return v, args.Error(1)
}

// =====================
// InventoryRepository
// =====================

type InventoryRepoMock struct{ mock.Mock }

var _ repo.InventoryRepository = (*InventoryRepoMock)(nil)

func (m *InventoryRepoMock) SetStock(ctx context.Context, actorUserID int64, productID int64, newStock int64, reason string) (int64, error) {
	args := m.Called(ctx, actorUserID, productID, newStock, reason)
	return int64(args.Int(0)), args.Error(1)
}

func (m *InventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) DecreaseVariantStockIfEnough(ctx context.Context, productID int64, variantKey string, qty int64) (bool, error) {
	args := m.Called(ctx, productID, variantKey, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	return m.Called(ctx, productID, qty).Error(0)
}

func (m *InventoryRepoMock) IncreaseVariantStock(ctx context.Context, productID int64, variantKey string, qty int64) error {
	return m.Called(ctx, productID, variantKey, qty).Error(0)
}

func (m *InventoryRepoMock) ListAdjustments(ctx context.Context, productID int64) ([]model.InventoryAdjustment, error) {
	args := m.Called(ctx, productID)
	list, _ := args.Get(0).([]model.InventoryAdjustment)
	return list, args.Error(1)
}

// =====================
// OrderRepository / OrderItemRepository
// =====================

type OrderRepoMock struct{ mock.Mock }

var _ repo.OrderRepository = (*OrderRepoMock)(nil)

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	list, _ := args.Get(0).([]model.Order)
	return list, int64(args.Int(1)), args.Error(2)
}

// Createで渡されたorderにIDを振りたいときは .Run を使う
func (m *OrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) error {
	return m.Called(ctx, orderID, from, to).Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, buyerID int64, key string) ([]model.Order, error) {
	args := m.Called(ctx, buyerID, key)
	list, _ := args.Get(0).([]model.Order)
	return list, args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

var _ repo.OrderItemRepository = (*OrderItemRepoMock)(nil)

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	return m.Called(ctx, orderID, items).Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	list, _ := args.Get(0).([]model.OrderItem)
	return list, args.Error(1)
}

// =====================
// AddressRepository
// =====================

type AddressRepoMock struct{ mock.Mock }

var _ repo.AddressRepository = (*AddressRepoMock)(nil)

func (m *AddressRepoMock) Create(ctx context.Context, address model.Address) (model.Address, error) {
	args := m.Called(ctx, address)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddressRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Address)
	return list, args.Error(1)
}

func (m *AddressRepoMock) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	args := m.Called(ctx, addressID)
	a, _ := args.Get(0).(model.Address)
	return a, args.Error(1)
}

func (m *AddressRepoMock) Update(ctx context.Context, address model.Address) error {
	return m.Called(ctx, address).Error(0)
}

func (m *AddressRepoMock) Delete(ctx context.Context, addressID int64) error {
	return m.Called(ctx, addressID).Error(0)
}

func (m *AddressRepoMock) SetDefault(ctx context.Context, userID, addressID int64) error {
	return m.Called(ctx, userID, addressID).Error(0)
}

// =====================
// AuditLog / SellerApplication / Strike / Message
// =====================

type AuditLogRepoMock struct{ mock.Mock }

var _ repo.AuditLogRepository = (*AuditLogRepoMock)(nil)

func (m *AuditLogRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	return m.Called(ctx, log).Error(0)
}

func (m *AuditLogRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]model.AuditLog)
	return list, args.Error(1)
}

type SellerApplicationRepoMock struct{ mock.Mock }

var _ repo.SellerApplicationRepository = (*SellerApplicationRepoMock)(nil)

func (m *SellerApplicationRepoMock) Create(ctx context.Context, app *model.SellerApplication) error {
	return m.Called(ctx, app).Error(0)
}

func (m *SellerApplicationRepoMock) FindByID(ctx context.Context, id int64) (model.SellerApplication, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(model.SellerApplication)
	return a, args.Error(1)
}

func (m *SellerApplicationRepoMock) FindLatestByUserID(ctx context.Context, userID int64) (model.SellerApplication, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(model.SellerApplication)
	return a, args.Error(1)
}

func (m *SellerApplicationRepoMock) List(ctx context.Context, status *model.SellerApplicationStatus, page, limit int) ([]model.SellerApplication, int64, error) {
	args := m.Called(ctx, status, page, limit)
	list, _ := args.Get(0).([]model.SellerApplication)
	return list, int64(args.Int(1)), args.Error(2)
}

func (m *SellerApplicationRepoMock) Review(ctx context.Context, app model.SellerApplication) error {
	return m.Called(ctx, app).Error(0)
}

type StrikeRepoMock struct{ mock.Mock }

var _ repo.StrikeRepository = (*StrikeRepoMock)(nil)

func (m *StrikeRepoMock) Create(ctx context.Context, strike *model.Strike) error {
	return m.Called(ctx, strike).Error(0)
}

func (m *StrikeRepoMock) ListByUserID(ctx context.Context, userID int64) ([]model.Strike, error) {
	args := m.Called(ctx, userID)
	list, _ := args.Get(0).([]model.Strike)
	return list, args.Error(1)
}

type MessageRepoMock struct{ mock.Mock }

var _ repo.MessageRepository = (*MessageRepoMock)(nil)

func (m *MessageRepoMock) Create(ctx context.Context, msg *model.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MessageRepoMock) FindByID(ctx context.Context, id int64) (model.Message, error) {
	args := m.Called(ctx, id)
	msg, _ := args.Get(0).(model.Message)
	return msg, args.Error(1)
}

func (m *MessageRepoMock) ListInbox(ctx context.Context, recipientID int64, unreadOnly bool, page, limit int) ([]model.Message, int64, error) {
	args := m.Called(ctx, recipientID, unreadOnly, page, limit)
	list, _ := args.Get(0).([]model.Message)
	return list, int64(args.Int(1)), args.Error(2)
}

func (m *MessageRepoMock) ListThread(ctx context.Context, userID, otherUserID int64, page, limit int) ([]model.Message, error) {
	args := m.Called(ctx, userID, otherUserID, page, limit)
	list, _ := args.Get(0).([]model.Message)
	return list, args.Error(1)
}

func (m *MessageRepoMock) MarkRead(ctx context.Context, id int64, recipientID int64) error {
	return m.Called(ctx, id, recipientID).Error(0)
}

// =====================
// ResetCodeStore
// =====================

type ResetCodeStoreMock struct{ mock.Mock }

var _ repo.ResetCodeStore = (*ResetCodeStoreMock)(nil)

func (m *ResetCodeStoreMock) Save(ctx context.Context, email string, codeHash string, ttl time.Duration) error {
	return m.Called(ctx, email, codeHash, ttl).Error(0)
}

func (m *ResetCodeStoreMock) Peek(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *ResetCodeStoreMock) RecordFailure(ctx context.Context, email string, maxAttempts int) (bool, error) {
	args := m.Called(ctx, email, maxAttempts)
	return args.Bool(0), args.Error(1)
}

func (m *ResetCodeStoreMock) Consume(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

// =====================
// TransactionManager
// =====================

// Tx内で返すrepo一式。nilのものは使われない前提
type TxRepos struct {
	UserRepo              *UserRepoMock
	OrderRepo             *OrderRepoMock
	OrderItemRepo         *OrderItemRepoMock
	InventoryRepo         *InventoryRepoMock
	ProductRepo           *ProductRepoMock
	AuditLogRepo          *AuditLogRepoMock
	SellerApplicationRepo *SellerApplicationRepoMock
	StrikeRepo            *StrikeRepoMock
}

func (r *TxRepos) Users() repo.UserRepository { return r.UserRepo }
func (r *TxRepos) Orders() repo.OrderRepository { return r.OrderRepo }
func (r *TxRepos) OrderItems() repo.OrderItemRepository { return r.OrderItemRepo }
func (r *TxRepos) Inventory() repo.InventoryRepository { return r.InventoryRepo }
func (r *TxRepos) Products() repo.ProductRepository { return r.ProductRepo }
func (r *TxRepos) AuditLogs() repo.AuditLogRepository { return r.AuditLogRepo }
func (r *TxRepos) SellerApplications() repo.SellerApplicationRepository { return r.SellerApplicationRepo }
func (r *TxRepos) Strikes() repo.StrikeRepository { return r.StrikeRepo }

// 全部のモックを埋めたTxRepos
func NewTxRepos() *TxRepos {
	return &TxRepos{
		UserRepo:              new(UserRepoMock),
		OrderRepo:             new(OrderRepoMock),
		OrderItemRepo:         new(OrderItemRepoMock),
		InventoryRepo:         new(InventoryRepoMock),
		ProductRepo:           new(ProductRepoMock),
		AuditLogRepo:          new(AuditLogRepoMock),
		SellerApplicationRepo: new(SellerApplicationRepoMock),
		StrikeRepo:            new(StrikeRepoMock),
	}
}

type TxManagerMock struct {
	mock.Mock
	Repos *TxRepos
}

var _ repo.TransactionManager = (*TxManagerMock)(nil)

// fnの結果をそのまま返す（rollbackは呼び出し側の検証で見る）
func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}
