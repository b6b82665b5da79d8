package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

// 部分更新できるのはこのフィールドだけ。
// nilのフィールドは触らない。全部nilならIsEmptyがtrue。
type OrderUpdate struct {
	ExpectedDeliveryDate *time.Time
	Notes                *string
	ShippingAddressJSON  *string
	Status               *model.OrderStatus
}

func (u OrderUpdate) IsEmpty() bool {
	return u.ExpectedDeliveryDate == nil &&
		u.Notes == nil &&
		u.ShippingAddressJSON == nil &&
		u.Status == nil
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdateFields(ctx context.Context, orderID int64, u OrderUpdate) error
	// キャンセル確定（status / reason / cancelled_at を一度に書く）
	MarkCancelled(ctx context.Context, orderID int64, reason string, at time.Time) error

	// 二重送信対策（同じキーなら同じ注文を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
}
