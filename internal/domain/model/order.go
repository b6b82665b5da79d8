package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// 終端ステータスか。ここに入った注文は変更もキャンセルもできない。
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// 注文。金額はすべて確定時のスナップショット。
// shipping_address / payment_method はJSON文字列で保存し、境界でパースする。
type Order struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               int64           `gorm:"not null;index" json:"user_id"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Tax                  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"tax"`
	Shipping             decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"shipping"`
	Total                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Status               OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	ShippingAddressJSON  string          `gorm:"column:shipping_address;type:text;not null" json:"-"`
	PaymentMethodJSON    string          `gorm:"column:payment_method;type:text;not null" json:"-"`
	ExpectedDeliveryDate *time.Time      `json:"expected_delivery_date,omitempty"`
	Notes                string          `gorm:"type:text" json:"notes,omitempty"`
	CancellationReason   *string         `gorm:"type:varchar(255)" json:"cancellation_reason,omitempty"`
	CancelledAt          *time.Time      `json:"cancelled_at,omitempty"`
	IdempotencyKey       *string         `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	CreatedAt            time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
