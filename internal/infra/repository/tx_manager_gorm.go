package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      *CartGormRepository
	inventory  repo.InventoryRepository
	products   repo.ProductRepository
	tracking   repo.OrderTrackingRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository           { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository   { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository             { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository     { return r.carts }
func (r *txReposGorm) Inventory() repo.InventoryRepository    { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository       { return r.products }
func (r *txReposGorm) Tracking() repo.OrderTrackingRepository { return r.tracking }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// fnがエラーを返すと全ステートメントが巻き戻る。
// commit/rollback/接続返却はgormのTransactionに任せる。
func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:     NewOrderGormRepository(tx),
			orderItems: NewOrderItemGormRepository(tx),
			carts:      NewCartGormRepository(tx),
			inventory:  NewInventoryGormRepository(tx),
			products:   NewProductGormRepository(tx),
			tracking:   NewOrderTrackingGormRepository(tx),
		}
		return fn(r)
	})
}
