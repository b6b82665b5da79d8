package model

import "time"

// カートの明細。(cart_id, product_code)で一意。
// 同一商品の追加は行を増やさず数量加算する。
// 価格は持たない（カートは常にカタログの現在価格で計算する）。
type CartItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID      int64     `gorm:"not null;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductCode string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_cart_product" json:"product_code"`
	Quantity    int64     `gorm:"not null" json:"quantity"`
	CreatedAt   time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
