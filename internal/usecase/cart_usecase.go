package usecase

import (
	"context"
	"net/http"

	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// /cartの業務ロジック。
// 変更系は在庫チェックと書き込みが同じTxに入るようにTransactionManagerを通す。
type CartUsecase struct {
	tx      repo.TransactionManager
	pricing Pricing
}

func NewCartUsecase(tx repo.TransactionManager, pricing Pricing) *CartUsecase {
	return &CartUsecase{tx: tx, pricing: pricing}
}

// priceはカタログの現在価格（注文と違ってスナップショットではない）。
type CartItemResponse struct {
	ID          int64           `json:"id"`
	ProductCode string          `json:"product_code"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Stock       int64           `json:"stock"`
}

type CartSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

type CartResponse struct {
	Items   []CartItemResponse `json:"items"`
	Summary CartSummary        `json:"summary"`
}

type AddCartInput struct {
	ProductCode string
	Quantity    int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得（無ければ作って空を返す）。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errStorage(ctx, "cart.get_or_create", err)
		}

		out, err = buildCartResponse(ctx, r, cart.ID, u.pricing)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// AddToCart はカートに追加（同一商品は数量加算）。
// 加算後の合計数量で在庫を再チェックする。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductCode == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_code")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// カート取得（無ければ作成）
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errStorage(ctx, "cart.get_or_create", err)
		}

		// 商品チェック
		p, err := r.Products().FindByCode(ctx, in.ProductCode)
		if err == repo.ErrNotFound {
			return errNotFound()
		}
		if err != nil {
			return errStorage(ctx, "product.find", err)
		}

		// 既存数量を調べて、加算後の合計で在庫を見る
		items, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return errStorage(ctx, "cart_item.list", err)
		}

		var existingQty int64 = 0
		for _, it := range items {
			if it.ProductCode == in.ProductCode {
				existingQty = it.Quantity
				break
			}
		}

		newQty := existingQty + in.Quantity
		if newQty > p.Stock {
			return errInsufficientStock(p.Name)
		}

		// Upsert（同一商品は加算）
		if err := r.CartItems().UpsertByCartAndProduct(ctx, cart.ID, in.ProductCode, in.Quantity); err != nil {
			return errStorage(ctx, "cart_item.upsert", err)
		}

		out, err = buildCartResponse(ctx, r, cart.ID, u.pricing)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 数量変更（所有チェック＋在庫チェック）。
// 他人の明細は404（存在自体を教えない）。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		owned, err := r.CartItems().IsOwnedByUser(ctx, cartItemID, userID)
		if err != nil {
			return errStorage(ctx, "cart_item.owned", err)
		}
		if !owned {
			return errNotFound()
		}

		item, err := r.CartItems().FindByID(ctx, cartItemID)
		if err == repo.ErrNotFound {
			return errNotFound()
		}
		if err != nil {
			return errStorage(ctx, "cart_item.find", err)
		}

		//商品の在庫チェック
		p, err := r.Products().FindByCode(ctx, item.ProductCode)
		if err == repo.ErrNotFound {
			return errNotFound()
		}
		if err != nil {
			return errStorage(ctx, "product.find", err)
		}
		if in.Quantity > p.Stock {
			return errInsufficientStock(p.Name)
		}

		if err := r.CartItems().UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "cart_item.update", err)
		}

		out, err = buildCartResponse(ctx, r, item.CartID, u.pricing)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CartResponse

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		owned, err := r.CartItems().IsOwnedByUser(ctx, cartItemID, userID)
		if err != nil {
			return errStorage(ctx, "cart_item.owned", err)
		}
		if !owned {
			return errNotFound()
		}

		item, err := r.CartItems().FindByID(ctx, cartItemID)
		if err == repo.ErrNotFound {
			return errNotFound()
		}
		if err != nil {
			return errStorage(ctx, "cart_item.find", err)
		}

		if err := r.CartItems().DeleteByID(ctx, cartItemID); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "cart_item.delete", err)
		}

		out, err = buildCartResponse(ctx, r, item.CartID, u.pricing)
		return err
	})

	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

// 全明細クリア。カートが無くてもエラーにしない。
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Carts().Clear(ctx, userID); err != nil {
			return errStorage(ctx, "cart.clear", err)
		}
		return nil
	})
}

// cartIDの明細と現在価格からCartResponseを作る。
// 小計→税・送料・合計はPricing経由（チェックアウトと同じ式）。
func buildCartResponse(ctx context.Context, r repo.TxRepos, cartID int64, pricing Pricing) (CartResponse, error) {
	items, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, errStorage(ctx, "cart_item.list", err)
	}

	respItems := make([]CartItemResponse, 0, len(items))
	subtotal := decimal.Zero

	for _, it := range items {
		p, err := r.Products().FindByCode(ctx, it.ProductCode)
		if err == repo.ErrNotFound {
			// カタログから消えた商品は表示しない
			continue
		}
		if err != nil {
			return CartResponse{}, errStorage(ctx, "product.find", err)
		}

		respItems = append(respItems, CartItemResponse{
			ID:          it.ID,
			ProductCode: it.ProductCode,
			Name:        p.Name,
			Price:       p.Price,
			Quantity:    it.Quantity,
			Stock:       p.Stock,
		})

		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	tax, shipping, total := pricing.Quote(subtotal)

	return CartResponse{
		Items: respItems,
		Summary: CartSummary{
			Subtotal: subtotal,
			Tax:      tax,
			Shipping: shipping,
			Total:    total,
		},
	}, nil
}
