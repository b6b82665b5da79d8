package repository

import (
	"context"
	"errors"

	"app/internal/domain/model"

	"gorm.io/gorm"
)

type OrderTrackingGormRepository struct {
	db *gorm.DB
}

func NewOrderTrackingGormRepository(db *gorm.DB) *OrderTrackingGormRepository {
	return &OrderTrackingGormRepository{db: db}
}

// 1件追記して、採番済みのエントリを返す。
func (r *OrderTrackingGormRepository) Create(ctx context.Context, entry model.OrderTracking) (model.OrderTracking, error) {
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return model.OrderTracking{}, err
	}
	return entry, nil
}

// created_at昇順。同時刻はid昇順で安定させる。
func (r *OrderTrackingGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderTracking, error) {
	var entries []model.OrderTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at asc").
		Order("id asc").
		Find(&entries).Error
	if err != nil {
		return []model.OrderTracking{}, err
	}
	return entries, nil
}

// 最新1件。無ければfalse。
func (r *OrderTrackingGormRepository) LatestByOrderID(ctx context.Context, orderID int64) (model.OrderTracking, bool, error) {
	var entry model.OrderTracking
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at desc").
		Order("id desc").
		First(&entry).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.OrderTracking{}, false, nil
	}
	if err != nil {
		return model.OrderTracking{}, false, err
	}
	return entry, true, nil
}
