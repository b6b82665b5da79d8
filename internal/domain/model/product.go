package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カタログの商品。主キーは商品コード（文字列）。
// stockはチェックアウトの減算と管理者操作でのみ変わる。
type Product struct {
	Code      string          `gorm:"column:code;type:varchar(50);primaryKey" json:"code"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Line      string          `gorm:"type:varchar(100);not null" json:"line"`
	Scale     string          `gorm:"type:varchar(20)" json:"scale"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int64           `gorm:"not null" json:"stock"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
