package main

import (
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/handler"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logging"
	"app/internal/payment"
	"app/internal/server"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	// .envは無くてもよい（本番は環境変数で渡す）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel)

	// DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderTracking{},
	); err != nil {
		panic(err)
	}

	// Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	// 外部系の部品
	gateway := payment.NewMockGateway()

	// Kafkaはbroker指定があるときだけ
	var publisher event.Publisher = event.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		defer kp.Close()
		publisher = kp
	}

	pricing := usecase.NewPricing(cfg)

	// Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, cfg.JWTSecret, time.Hour)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo)
	cartUC := usecase.NewCartUsecase(txManager, pricing)
	checkoutUC := usecase.NewCheckoutUsecase(txManager, gateway, publisher, pricing, validator.NewCheckoutValidator())
	orderUC := usecase.NewOrderUsecase(txManager, publisher)
	trackingUC := usecase.NewTrackingUsecase(txManager, publisher)

	// Handler生成
	handlers := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Checkout:     handler.NewCheckoutHandler(checkoutUC),
		Order:        handler.NewOrderHandler(orderUC, trackingUC),
		AdminOrder:   handler.NewAdminOrderHandler(trackingUC),
	}

	// Server起動
	e := server.New(cfg, logger, handlers)
	logger.Info("server starting", "port", cfg.Port)
	if err := server.Start(e, cfg.Port); err != nil {
		panic(err)
	}
}
