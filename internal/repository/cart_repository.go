package repository

import (
	"context"

	"app/internal/domain/model"
)

type CartRepository interface {
	// 無ければ作る。同一ユーザーの同時初回追加でも1つしか作らない。
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// 明細の全削除。カートが無いときはエラーにしない。
	Clear(ctx context.Context, userID int64) error
}
