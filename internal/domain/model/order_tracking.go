package model

import "time"

// 追跡エントリのstatusには注文ステータスのほか、
// 変更イベントを表す "modified" が入る（これは注文ステータスではない）。
const TrackingEventModified = "modified"

// 注文の追跡ログ。追記専用で、更新も削除もしない。
// created_at昇順がタイムラインの表示順になる。
type OrderTracking struct {
	ID                 int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID            int64     `gorm:"not null;index" json:"order_id"`
	Status             string    `gorm:"type:varchar(20);not null" json:"status"`
	Location           *string   `gorm:"type:varchar(255)" json:"location,omitempty"`
	Description        string    `gorm:"type:varchar(255);not null" json:"description"`
	ModifiedBy         *int64    `json:"modified_by,omitempty"`
	ModificationReason *string   `gorm:"type:varchar(255)" json:"modification_reason,omitempty"`
	CreatedAt          time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
