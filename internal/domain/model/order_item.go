package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。priceは購入時点の単価スナップショット。
// 後からカタログの現在価格で読み直してはいけない。
type OrderItem struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     int64           `gorm:"not null;index" json:"order_id"`
	ProductCode string          `gorm:"type:varchar(50);not null;index" json:"product_code"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
