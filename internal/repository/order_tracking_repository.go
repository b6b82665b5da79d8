package repository

import (
	"context"

	"app/internal/domain/model"
)

// 追跡ログは追記と時系列読みだけ。更新・削除のメソッドは持たせない。
type OrderTrackingRepository interface {
	Create(ctx context.Context, entry model.OrderTracking) (model.OrderTracking, error)
	// created_at昇順（古い順）。タイムライン表示の前提。
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderTracking, error)
	// 最新1件。無ければfalse。
	LatestByOrderID(ctx context.Context, orderID int64) (model.OrderTracking, bool, error)
}
