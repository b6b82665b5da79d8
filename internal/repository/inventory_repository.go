package repository

import "context"

type InventoryRepository interface {
	// 在庫の現在値を設定（管理者操作）
	SetStock(ctx context.Context, productCode string, newStock int64) error

	// 在庫が足りるときだけ減算（WHERE stock >= qty）。
	// falseは在庫不足。同時チェックアウトの競合はここで潰す。
	DecreaseStockIfEnough(ctx context.Context, productCode string, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productCode string, qty int64) error
}
