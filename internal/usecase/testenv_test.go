package usecase_test

import (
	"context"
	"sync"
	"testing"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/event"
	infraRepo "app/internal/infra/repository"
	"app/internal/payment"
	"app/internal/usecase"
	"app/internal/validator"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// 接続ごとに別のメモリDBにならないように1本に固定
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderTracking{},
	))

	return db
}

func testPricing() usecase.Pricing {
	return usecase.NewPricing(config.Config{
		TaxRate:               decimal.RequireFromString("0.10"),
		ShippingFlatFee:       decimal.NewFromInt(10),
		FreeShippingThreshold: decimal.NewFromInt(100),
	})
}

// 発行されたイベントを覚えておくだけのPublisher
type capturePublisher struct {
	mu     sync.Mutex
	events []event.OrderEvent
}

func (p *capturePublisher) PublishOrderEvent(ctx context.Context, evt event.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func seedProduct(t *testing.T, db *gorm.DB, code, name, price string, stock int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Product{
		Code:  code,
		Name:  name,
		Line:  "gundam",
		Scale: "1/144",
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}).Error)
}

func productStock(t *testing.T, db *gorm.DB, code string) int64 {
	t.Helper()
	var p model.Product
	require.NoError(t, db.Where("code = ?", code).First(&p).Error)
	return p.Stock
}

func countRows(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

type testEnv struct {
	DB       *gorm.DB
	Cart     *usecase.CartUsecase
	Checkout *usecase.CheckoutUsecase
	Orders   *usecase.OrderUsecase
	Tracking *usecase.TrackingUsecase
	Events   *capturePublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	tx := infraRepo.NewTxManagerGorm(db)
	pricing := testPricing()
	pub := &capturePublisher{}

	return &testEnv{
		DB:       db,
		Cart:     usecase.NewCartUsecase(tx, pricing),
		Checkout: usecase.NewCheckoutUsecase(tx, payment.NewMockGateway(), pub, pricing, validator.NewCheckoutValidator()),
		Orders:   usecase.NewOrderUsecase(tx, pub),
		Tracking: usecase.NewTrackingUsecase(tx, pub),
		Events:   pub,
	}
}

func validCheckoutInput() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		ShippingAddress: usecase.ShippingAddress{
			FirstName: "Amuro",
			LastName:  "Ray",
			Email:     "amuro@example.com",
			Street:    "1-1 White Base",
			City:      "Side 7",
			State:     "Tokyo",
			Zip:       "100-0001",
			Country:   "JP",
		},
		Payment: payment.Method{
			Type:       "credit",
			CardName:   "AMURO RAY",
			CardNumber: "4111111111111111",
			ExpiryDate: "12/27",
			CVV:        "123",
		},
	}
}

// 期待したステータスのHTTPErrorであることを確認する
func requireHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, status, he.Status)
}
