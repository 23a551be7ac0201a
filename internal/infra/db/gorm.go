package db

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lotmarket/internal/domain/model"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(driver string, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	}

	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "sqlite":
		gdb, err := gorm.Open(sqlite.Open(dsn), cfg)
		if err != nil {
			return nil, err
		}
		//SQLiteは書き込みが1本なので接続も1本にして直列化する
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	default:
		return nil, fmt.Errorf("unsupported db driver: %s", driver)
	}
}

// マイグレーション対象のモデル
func Models() []any {
	return []any{
		&model.User{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Order{},
		&model.OrderItem{},
		&model.Address{},
		&model.AuditLog{},
		&model.InventoryAdjustment{},
		&model.SellerApplication{},
		&model.Strike{},
		&model.Message{},
		&model.PasswordResetCode{},
	}
}

func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(Models()...)
}
