package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/logging"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// チェックアウトの入力。カード番号はここを最後に保存されない。
type CheckoutInput struct {
	ShippingAddress ShippingAddress
	Payment         payment.Method
	Notes           string
	IdempotencyKey  string
}

// 入力の形式チェックはusecaseの外に出す（handlerからも差し替えられるように）
type CheckoutValidator interface {
	Validate(in CheckoutInput) error
}

// 確定前のプレビュー。カートの中身と金額内訳だけを返す。
type CheckoutSummary struct {
	Items   []CartItemResponse `json:"items"`
	Summary CartSummary        `json:"summary"`
}

type CheckoutUsecase struct {
	tx        repo.TransactionManager
	gateway   payment.Gateway
	pub       event.Publisher
	pricing   Pricing
	validator CheckoutValidator
}

func NewCheckoutUsecase(tx repo.TransactionManager, gateway payment.Gateway, pub event.Publisher, pricing Pricing, v CheckoutValidator) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, gateway: gateway, pub: pub, pricing: pricing, validator: v}
}

// 確定前のプレビュー。副作用なし。
func (u *CheckoutUsecase) GetCheckoutSummary(ctx context.Context, userID int64) (CheckoutSummary, error) {
	if userID <= 0 {
		return CheckoutSummary{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CheckoutSummary

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return errEmptyCart()
		}
		if err != nil {
			return errStorage(ctx, "cart.find", err)
		}

		res, err := buildCartResponse(ctx, r, cart.ID, u.pricing)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return errEmptyCart()
		}

		out = CheckoutSummary{Items: res.Items, Summary: res.Summary}
		return nil
	})

	if err != nil {
		return CheckoutSummary{}, err
	}
	return out, nil
}

// カートから注文を確定する。
//
//  1. カートと在庫を読み、金額を確定する
//  2. ゲートウェイにオーソリを取る（DBへの書き込みはまだ無い）
//  3. 1つのTxで：在庫の条件付き減算→注文＋明細の作成→カートのクリア
//
// 在庫減算は WHERE stock >= qty の条件付きUPDATEなので、
// 同じ最後の1個を取り合っても片方は必ずここで失敗してロールバックする。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, userID int64, in CheckoutInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := u.validator.Validate(in); err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// 冪等キーの再送なら既存注文をそのまま返す（課金も減算も起こさない）
	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if out, ok, err := u.findExistingOrder(ctx, userID, key); err != nil {
			return OrderOutput{}, err
		} else if ok {
			return out, nil
		}
	}

	// 金額確定。ここはまだ読み取りだけ。
	var (
		lines    []model.CartItem
		prices   = map[string]decimal.Decimal{}
		names    = map[string]string{}
		subtotal = decimal.Zero
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindByUserID(ctx, userID)
		if err == repo.ErrNotFound {
			return errEmptyCart()
		}
		if err != nil {
			return errStorage(ctx, "cart.find", err)
		}

		lines, err = r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return errStorage(ctx, "cart_item.list", err)
		}
		if len(lines) == 0 {
			return errEmptyCart()
		}

		// 先に在庫を名前付きで検査して、足りないなら早めに返す
		for _, it := range lines {
			p, err := r.Products().FindByCode(ctx, it.ProductCode)
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			if err != nil {
				return errStorage(ctx, "product.find", err)
			}
			if it.Quantity > p.Stock {
				return errInsufficientStock(p.Name)
			}
			prices[it.ProductCode] = p.Price
			names[it.ProductCode] = p.Name
			subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	tax, shipping, total := u.pricing.Quote(subtotal)

	// オーソリ。拒否ならDBには一切触らず402。
	res, err := u.gateway.Authorize(ctx, in.Payment, total)
	if err != nil {
		logging.FromContext(ctx).Error("payment gateway error", "error", err)
		return OrderOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}
	if !res.Success {
		return OrderOutput{}, errPaymentDeclined()
	}

	addrJSON, err := json.Marshal(in.ShippingAddress)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_address")
	}
	payJSON, err := json.Marshal(maskPayment(in.Payment, res.TransactionID))
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}

	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// オーソリ中に同じキーで先行リクエストが通った場合もここで拾う
		if key != "" {
			if existing, ok, err := r.Orders().FindByIdempotencyKey(ctx, userID, key); err != nil {
				return errStorage(ctx, "order.find_idempotency", err)
			} else if ok {
				out, err = hydrateOrder(ctx, r, existing)
				return err
			}
		}

		// 条件付き減算。false＝同時に誰かが先に取った。
		for _, it := range lines {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, it.ProductCode, it.Quantity)
			if err != nil {
				return errStorage(ctx, "inventory.decrease", err)
			}
			if !ok {
				return errInsufficientStock(names[it.ProductCode])
			}
		}

		order := model.Order{
			UserID:              userID,
			Status:              model.OrderStatusPending,
			Subtotal:            subtotal,
			Tax:                 tax,
			Shipping:            shipping,
			Total:               total,
			ShippingAddressJSON: string(addrJSON),
			PaymentMethodJSON:   string(payJSON),
			Notes:               strings.TrimSpace(in.Notes),
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			return errStorage(ctx, "order.create", err)
		}

		items := make([]model.OrderItem, 0, len(lines))
		for _, it := range lines {
			items = append(items, model.OrderItem{
				ProductCode: it.ProductCode,
				Quantity:    it.Quantity,
				Price:       prices[it.ProductCode],
			})
		}
		if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
			return errStorage(ctx, "order_item.create", err)
		}

		if err := r.Carts().Clear(ctx, userID); err != nil {
			return errStorage(ctx, "cart.clear", err)
		}

		created, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "order.find", err)
		}

		out, err = hydrateOrder(ctx, r, created)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}

	// commit後にイベント発行。失敗はログだけ（注文は成立している）。
	if err := u.pub.PublishOrderEvent(ctx, event.OrderEvent{
		Type:       event.TypeOrderPlaced,
		OrderID:    out.ID,
		UserID:     out.UserID,
		Status:     out.Status,
		OccurredAt: time.Now(),
	}); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", event.TypeOrderPlaced, "order_id", out.ID, "error", err)
	}

	return out, nil
}

// pending → confirmed。それ以外の状態からは409。
func (u *CheckoutUsecase) ConfirmOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if o.Status != model.OrderStatusPending {
			return NewHTTPError(http.StatusConflict, "order is not pending")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusConfirmed); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "order.update_status", err)
		}

		if _, err := r.Tracking().Create(ctx, model.OrderTracking{
			OrderID:     orderID,
			Status:      string(model.OrderStatusConfirmed),
			Description: "Order confirmed",
		}); err != nil {
			return errStorage(ctx, "tracking.create", err)
		}

		confirmed, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "order.find", err)
		}

		out, err = hydrateOrder(ctx, r, confirmed)
		return err
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if err := u.pub.PublishOrderEvent(ctx, event.OrderEvent{
		Type:       event.TypeOrderStatusChanged,
		OrderID:    out.ID,
		UserID:     out.UserID,
		Status:     out.Status,
		OccurredAt: time.Now(),
	}); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", event.TypeOrderStatusChanged, "order_id", out.ID, "error", err)
	}

	return out, nil
}

func (u *CheckoutUsecase) findExistingOrder(ctx context.Context, userID int64, key string) (OrderOutput, bool, error) {
	var (
		out   OrderOutput
		found bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, ok, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return errStorage(ctx, "order.find_idempotency", err)
		}
		if !ok {
			return nil
		}
		found = true
		out, err = hydrateOrder(ctx, r, o)
		return err
	})
	if err != nil {
		return OrderOutput{}, false, err
	}
	return out, found, nil
}

// 保存用の支払い情報。カード番号は下4桁だけ残す。
func maskPayment(m payment.Method, txnID string) PaymentSummary {
	digits := strings.ReplaceAll(m.CardNumber, " ", "")
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	return PaymentSummary{
		Type:           m.Type,
		CardName:       m.CardName,
		LastFourDigits: last4,
		ExpiryDate:     m.ExpiryDate,
		TransactionID:  txnID,
	}
}
