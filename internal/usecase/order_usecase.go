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
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// 配送先。注文に載せたものは確定後のスナップショットで、
// 変更は許可フィールド経由の明示的な更新だけ。
type ShippingAddress struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

// 支払いの控え。カード番号そのものは絶対に持たない（下4桁だけ）。
type PaymentSummary struct {
	Type           string `json:"type"`
	CardName       string `json:"cardName"`
	LastFourDigits string `json:"lastFourDigits"`
	ExpiryDate     string `json:"expiryDate"`
	TransactionID  string `json:"transactionId"`
}

type OrderItemOutput struct {
	ProductCode string          `json:"product_code"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
}

type OrderOutput struct {
	ID                   int64             `json:"id"`
	UserID               int64             `json:"user_id"`
	Status               string            `json:"status"`
	Subtotal             decimal.Decimal   `json:"subtotal"`
	Tax                  decimal.Decimal   `json:"tax"`
	Shipping             decimal.Decimal   `json:"shipping"`
	Total                decimal.Decimal   `json:"total"`
	ShippingAddress      ShippingAddress   `json:"shipping_address"`
	Payment              PaymentSummary    `json:"payment_method"`
	ExpectedDeliveryDate *time.Time        `json:"expected_delivery_date,omitempty"`
	Notes                string            `json:"notes,omitempty"`
	CancellationReason   *string           `json:"cancellation_reason,omitempty"`
	CancelledAt          *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	Items                []OrderItemOutput `json:"items"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int   `json:"pages"`
}

type OrderListOutput struct {
	Orders     []OrderOutput `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

type OrderUsecase struct {
	tx  repo.TransactionManager
	pub event.Publisher
}

func NewOrderUsecase(tx repo.TransactionManager, pub event.Publisher) *OrderUsecase {
	return &OrderUsecase{tx: tx, pub: pub}
}

// 注文履歴（新しい順、明細付き）
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	var out OrderListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return errStorage(ctx, "order.list", err)
		}

		outs := make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			oo, err := hydrateOrder(ctx, r, o)
			if err != nil {
				return err
			}
			outs = append(outs, oo)
		}

		pages := int((total + int64(limit) - 1) / int64(limit))

		out = OrderListOutput{
			Orders: outs,
			Pagination: Pagination{
				Total: total,
				Page:  page,
				Limit: limit,
				Pages: pages,
			},
		}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
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

		out, err = hydrateOrder(ctx, r, o)
		return err
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 部分更新の入力。nilのフィールドは「変更しない」。
// 許可されていないフィールドはhandlerの時点で存在しない（bindできない）。
type UpdateOrderInput struct {
	ExpectedDeliveryDate *time.Time
	Notes                *string
	ShippingAddress      *ShippingAddress
	Status               *string
	Reason               string
}

// 許可フィールドの更新＋modified追跡エントリを1Txで。
// 終端ステータスの注文は変更不可。
func (u *OrderUsecase) UpdateMyOrder(ctx context.Context, userID int64, orderID int64, in UpdateOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	upd := repo.OrderUpdate{
		ExpectedDeliveryDate: in.ExpectedDeliveryDate,
		Notes:                in.Notes,
	}

	if in.ShippingAddress != nil {
		raw, err := json.Marshal(in.ShippingAddress)
		if err != nil {
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid shipping_address")
		}
		s := string(raw)
		upd.ShippingAddressJSON = &s
	}

	if in.Status != nil {
		st := model.OrderStatus(strings.TrimSpace(*in.Status))
		switch st {
		case model.OrderStatusPending, model.OrderStatusConfirmed,
			model.OrderStatusShipped, model.OrderStatusDelivered:
			// OK（キャンセルは専用の操作を使う）
		default:
			return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		upd.Status = &st
	}

	if upd.IsEmpty() {
		return OrderOutput{}, errInvalidUpdate()
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = "No reason provided"
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}

		// 終端ガード
		if o.Status.Terminal() {
			return NewHTTPError(http.StatusBadRequest, "order cannot be modified in its current state")
		}

		if err := r.Orders().UpdateFields(ctx, orderID, upd); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "order.update", err)
		}

		// 誰が・なぜ、を必ず残す
		if _, err := r.Tracking().Create(ctx, model.OrderTracking{
			OrderID:            orderID,
			Status:             model.TrackingEventModified,
			Description:        "Order details were modified",
			ModifiedBy:         &userID,
			ModificationReason: &reason,
		}); err != nil {
			return errStorage(ctx, "tracking.create", err)
		}

		updated, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "order.find", err)
		}

		out, err = hydrateOrder(ctx, r, updated)
		return err
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// キャンセル。status/理由/時刻の書き込み、在庫戻し、cancelledエントリを1Txで。
func (u *OrderUsecase) CancelMyOrder(ctx context.Context, userID int64, orderID int64, reason string) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "cancellation reason is required")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnedOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}

		// 終端ガード（キャンセル済みの再キャンセルもここで弾く）
		if o.Status.Terminal() {
			return NewHTTPError(http.StatusBadRequest, "order cannot be cancelled in its current state")
		}

		now := time.Now()
		if err := r.Orders().MarkCancelled(ctx, orderID, reason, now); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "order.cancel", err)
		}

		// 在庫戻し
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "order_item.list", err)
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductCode, it.Quantity); err != nil {
				return errStorage(ctx, "inventory.increase", err)
			}
		}

		if _, err := r.Tracking().Create(ctx, model.OrderTracking{
			OrderID:            orderID,
			Status:             string(model.OrderStatusCancelled),
			Description:        "Order was cancelled",
			ModifiedBy:         &userID,
			ModificationReason: &reason,
		}); err != nil {
			return errStorage(ctx, "tracking.create", err)
		}

		cancelled, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "order.find", err)
		}

		out, err = hydrateOrder(ctx, r, cancelled)
		return err
	})

	if err != nil {
		return OrderOutput{}, err
	}

	// commit後にイベント発行。失敗してもキャンセル自体は成立している。
	if err := u.pub.PublishOrderEvent(ctx, event.OrderEvent{
		Type:       event.TypeOrderCancelled,
		OrderID:    out.ID,
		UserID:     out.UserID,
		Status:     out.Status,
		OccurredAt: time.Now(),
	}); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", event.TypeOrderCancelled, "order_id", out.ID, "error", err)
	}

	return out, nil
}

// 所有チェック付きの取得。他人の注文は404で返す。
func findOwnedOrder(ctx context.Context, r repo.TxRepos, userID int64, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, errNotFound()
	}
	if err != nil {
		return model.Order{}, errStorage(ctx, "order.find", err)
	}
	if o.UserID != userID {
		// 他人の注文は「存在しない扱い」にする
		return model.Order{}, errNotFound()
	}
	return o, nil
}

// 注文＋明細＋商品名をまとめてOrderOutputを作る。
// JSON列はここで一度だけパースする（呼び出し側は型付きで受け取る）。
func hydrateOrder(ctx context.Context, r repo.TxRepos, o model.Order) (OrderOutput, error) {
	items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, errStorage(ctx, "order_item.list", err)
	}

	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		name := ""
		if p, err := r.Products().FindByCode(ctx, it.ProductCode); err == nil {
			name = p.Name
		}
		outItems = append(outItems, OrderItemOutput{
			ProductCode: it.ProductCode,
			Name:        name,
			Price:       it.Price,
			Quantity:    it.Quantity,
		})
	}

	var addr ShippingAddress
	if o.ShippingAddressJSON != "" {
		if err := json.Unmarshal([]byte(o.ShippingAddressJSON), &addr); err != nil {
			logging.FromContext(ctx).Warn("broken shipping_address json", "order_id", o.ID, "error", err)
		}
	}

	var pay PaymentSummary
	if o.PaymentMethodJSON != "" {
		if err := json.Unmarshal([]byte(o.PaymentMethodJSON), &pay); err != nil {
			logging.FromContext(ctx).Warn("broken payment_method json", "order_id", o.ID, "error", err)
		}
	}

	return OrderOutput{
		ID:                   o.ID,
		UserID:               o.UserID,
		Status:               string(o.Status),
		Subtotal:             o.Subtotal,
		Tax:                  o.Tax,
		Shipping:             o.Shipping,
		Total:                o.Total,
		ShippingAddress:      addr,
		Payment:              pay,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		Notes:                o.Notes,
		CancellationReason:   o.CancellationReason,
		CancelledAt:          o.CancelledAt,
		CreatedAt:            o.CreatedAt,
		Items:                outItems,
	}, nil
}
