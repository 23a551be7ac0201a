package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lotmarket/internal/config"
	"lotmarket/internal/domain/model"
	"lotmarket/internal/handler"
	"lotmarket/internal/infra/cache"
	"lotmarket/internal/infra/db"
	"lotmarket/internal/infra/messaging"
	infraRepo "lotmarket/internal/infra/repository"
	"lotmarket/internal/infra/telemetry"
	"lotmarket/internal/repository"
	"lotmarket/internal/server"
	"lotmarket/internal/usecase"
	"lotmarket/internal/validator"
)

// 請求書とリセットコードの両方を送る
type notifier interface {
	RequestInvoice(ctx context.Context, req model.InvoiceRequest) error
	SendResetCode(ctx context.Context, email, code string) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := telemetry.NewLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.GoEnv, cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	//DB接続
	gormDB, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	appRepo := infraRepo.NewSellerApplicationGormRepository(gormDB)
	strikeRepo := infraRepo.NewStrikeGormRepository(gormDB)
	messageRepo := infraRepo.NewMessageGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//リセットコードはRedisがあればRedis、なければDB
	var codes repository.ResetCodeStore = infraRepo.NewResetCodeGormStore(gormDB)
	if cfg.RedisAddr != "" {
		rdb := cache.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		codes = cache.NewResetCodeRedisStore(rdb, cfg.ServiceName)
	}

	//請求書依頼はKafkaがあればKafka、なければログだけ
	var notify notifier = messaging.NewLogNotifier(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kn := messaging.NewKafkaNotifier(cfg.KafkaBrokers, cfg.InvoiceTopic, cfg.ResetTopic)
		defer kn.Close()
		notify = kn
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, txm, userRepo, codes, notify, validator.NewAuthValidator(userRepo), logger)
	productUC := usecase.NewProductUsecase(txm, productRepo)
	orderUC := usecase.NewOrderUsecase(usecase.OrderDeps{
		Tx:         txm,
		Orders:     orderRepo,
		OrderItems: orderItemRepo,
		Addresses:  addressRepo,
		Users:      userRepo,
		Notifier:   notify,
		Logger:     logger,
		Commission: cfg.CommissionRate,
	})
	defer orderUC.Wait()
	addressUC := usecase.NewAddressUsecase(addressRepo)
	messageUC := usecase.NewMessageUsecase(messageRepo, userRepo, orderRepo)
	appUC := usecase.NewSellerApplicationUsecase(txm, appRepo, userRepo)
	adminUC := usecase.NewAdminUsecase(txm, userRepo, strikeRepo, auditRepo, cfg.MaxStrikes)

	schema, err := validator.NewOrderSchema()
	if err != nil {
		return err
	}

	//Handler生成
	e := server.New(logger)
	server.RegisterRoutes(e, server.RouteConfig{
		JWTSecret:    cfg.JWTSecret,
		RateLimitRPS: cfg.RateLimitRPS,
		Users:        userRepo,
	}, server.Handlers{
		Auth:               handler.NewAuthHandler(authUC),
		Products:           handler.NewProductHandler(productUC),
		Orders:             handler.NewOrderHandler(orderUC, schema),
		Addresses:          handler.NewAddressHandler(addressUC),
		Messages:           handler.NewMessageHandler(messageUC),
		SellerApplications: handler.NewSellerApplicationHandler(appUC),
		AdminUsers:         handler.NewAdminUserHandler(adminUC),
	})

	//Server起動
	logger.Info("listening", "addr", cfg.Addr(), "db", cfg.DBDriver)
	return server.Start(ctx, e, cfg.Addr(), 10*time.Second)
}
