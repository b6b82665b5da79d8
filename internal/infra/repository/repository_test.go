package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

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

func seedProduct(t *testing.T, db *gorm.DB, code string, stock int64) {
	t.Helper()
	require.NoError(t, db.Create(&model.Product{
		Code:  code,
		Name:  code,
		Line:  "gundam",
		Price: decimal.NewFromInt(50),
		Stock: stock,
	}).Error)
}

func TestGetOrCreateByUserID(t *testing.T) {
	db := newTestDB(t)
	r := NewCartGormRepository(db)
	ctx := context.Background()

	first, err := r.GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	// 2回目は同じカート
	second, err := r.GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.Cart{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUpsertByCartAndProduct(t *testing.T) {
	db := newTestDB(t)
	r := NewCartGormRepository(db)
	ctx := context.Background()

	cart, err := r.GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, r.UpsertByCartAndProduct(ctx, cart.ID, "rx78", 2))
	require.NoError(t, r.UpsertByCartAndProduct(ctx, cart.ID, "rx78", 3))

	// 行は1つ、数量は加算
	items, err := r.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.EqualValues(t, 5, items[0].Quantity)

	// 0以下の加算は拒否
	require.Error(t, r.UpsertByCartAndProduct(ctx, cart.ID, "rx78", 0))
}

func TestCartClear(t *testing.T) {
	db := newTestDB(t)
	r := NewCartGormRepository(db)
	ctx := context.Background()

	cart, err := r.GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, r.UpsertByCartAndProduct(ctx, cart.ID, "rx78", 2))

	require.NoError(t, r.Clear(ctx, 1))
	items, err := r.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)
	require.Empty(t, items)

	// カートが無いユーザーはno-op
	require.NoError(t, r.Clear(ctx, 99))
}

func TestIsOwnedByUser(t *testing.T) {
	db := newTestDB(t)
	r := NewCartGormRepository(db)
	ctx := context.Background()

	cart, err := r.GetOrCreateByUserID(ctx, 1)
	require.NoError(t, err)
	require.NoError(t, r.UpsertByCartAndProduct(ctx, cart.ID, "rx78", 1))

	items, err := r.ListByCartID(ctx, cart.ID)
	require.NoError(t, err)

	owned, err := r.IsOwnedByUser(ctx, items[0].ID, 1)
	require.NoError(t, err)
	require.True(t, owned)

	owned, err = r.IsOwnedByUser(ctx, items[0].ID, 2)
	require.NoError(t, err)
	require.False(t, owned)
}

func TestDecreaseStockIfEnough(t *testing.T) {
	db := newTestDB(t)
	r := NewInventoryGormRepository(db)
	ctx := context.Background()
	seedProduct(t, db, "zaku2", 3)

	// ちょうど在庫ぶんは通る
	ok, err := r.DecreaseStockIfEnough(ctx, "zaku2", 3)
	require.NoError(t, err)
	require.True(t, ok)

	// 在庫0からの減算は弾かれて在庫はそのまま
	ok, err = r.DecreaseStockIfEnough(ctx, "zaku2", 1)
	require.NoError(t, err)
	require.False(t, ok)

	var p model.Product
	require.NoError(t, db.Where("code = ?", "zaku2").First(&p).Error)
	require.EqualValues(t, 0, p.Stock)
}

func TestIncreaseStock(t *testing.T) {
	db := newTestDB(t)
	r := NewInventoryGormRepository(db)
	ctx := context.Background()
	seedProduct(t, db, "zaku2", 1)

	require.NoError(t, r.IncreaseStock(ctx, "zaku2", 2))

	var p model.Product
	require.NoError(t, db.Where("code = ?", "zaku2").First(&p).Error)
	require.EqualValues(t, 3, p.Stock)

	require.ErrorIs(t, r.IncreaseStock(ctx, "nope", 1), repo.ErrNotFound)
}

func TestOrderUpdateFields(t *testing.T) {
	db := newTestDB(t)
	r := NewOrderGormRepository(db)
	ctx := context.Background()

	id, err := r.Create(ctx, model.Order{
		UserID:              1,
		Status:              model.OrderStatusPending,
		Subtotal:            decimal.NewFromInt(50),
		Tax:                 decimal.NewFromInt(5),
		Shipping:            decimal.NewFromInt(10),
		Total:               decimal.NewFromInt(65),
		ShippingAddressJSON: "{}",
		PaymentMethodJSON:   "{}",
	})
	require.NoError(t, err)

	notes := "leave at door"
	require.NoError(t, r.UpdateFields(ctx, id, repo.OrderUpdate{Notes: &notes}))

	o, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, notes, o.Notes)

	// nilのフィールドは触られない
	require.Equal(t, model.OrderStatusPending, o.Status)

	require.ErrorIs(t, r.UpdateFields(ctx, 9999, repo.OrderUpdate{Notes: &notes}), repo.ErrNotFound)
}

func TestMarkCancelled(t *testing.T) {
	db := newTestDB(t)
	r := NewOrderGormRepository(db)
	ctx := context.Background()

	id, err := r.Create(ctx, model.Order{
		UserID:              1,
		Status:              model.OrderStatusPending,
		ShippingAddressJSON: "{}",
		PaymentMethodJSON:   "{}",
	})
	require.NoError(t, err)

	at := time.Now()
	require.NoError(t, r.MarkCancelled(ctx, id, "changed my mind", at))

	o, err := r.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, model.OrderStatusCancelled, o.Status)
	require.NotNil(t, o.CancellationReason)
	require.Equal(t, "changed my mind", *o.CancellationReason)
	require.NotNil(t, o.CancelledAt)
}

func TestFindByIdempotencyKey(t *testing.T) {
	db := newTestDB(t)
	r := NewOrderGormRepository(db)
	ctx := context.Background()

	key := "key-1"
	id, err := r.Create(ctx, model.Order{
		UserID:              1,
		Status:              model.OrderStatusPending,
		ShippingAddressJSON: "{}",
		PaymentMethodJSON:   "{}",
		IdempotencyKey:      &key,
	})
	require.NoError(t, err)

	got, found, err := r.FindByIdempotencyKey(ctx, 1, "key-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, id, got.ID)

	// 別ユーザーの同じキーには一致しない
	_, found, err = r.FindByIdempotencyKey(ctx, 2, "key-1")
	require.NoError(t, err)
	require.False(t, found)

	_, found, err = r.FindByIdempotencyKey(ctx, 1, "unknown")
	require.NoError(t, err)
	require.False(t, found)
}

func TestTrackingListAndLatest(t *testing.T) {
	db := newTestDB(t)
	r := NewOrderTrackingGormRepository(db)
	ctx := context.Background()

	for _, status := range []string{"confirmed", "shipped", "delivered"} {
		_, err := r.Create(ctx, model.OrderTracking{
			OrderID:     1,
			Status:      status,
			Description: status,
		})
		require.NoError(t, err)
	}

	// 古い順
	entries, err := r.ListByOrderID(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "confirmed", entries[0].Status)
	require.Equal(t, "delivered", entries[2].Status)

	latest, found, err := r.LatestByOrderID(ctx, 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "delivered", latest.Status)

	_, found, err = r.LatestByOrderID(ctx, 2)
	require.NoError(t, err)
	require.False(t, found)
}

func TestWithinTxRollsBack(t *testing.T) {
	db := newTestDB(t)
	tm := NewTxManagerGorm(db)
	ctx := context.Background()
	seedProduct(t, db, "rx78", 10)

	boom := errors.New("boom")

	err := tm.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, "rx78", 5)
		require.NoError(t, err)
		require.True(t, ok)

		if _, err := r.Orders().Create(ctx, model.Order{
			UserID:              1,
			Status:              model.OrderStatusPending,
			ShippingAddressJSON: "{}",
			PaymentMethodJSON:   "{}",
		}); err != nil {
			return err
		}

		return boom
	})
	require.ErrorIs(t, err, boom)

	// 全部巻き戻っている
	var p model.Product
	require.NoError(t, db.Where("code = ?", "rx78").First(&p).Error)
	require.EqualValues(t, 10, p.Stock)

	var count int64
	require.NoError(t, db.Model(&model.Order{}).Count(&count).Error)
	require.EqualValues(t, 0, count)
}
