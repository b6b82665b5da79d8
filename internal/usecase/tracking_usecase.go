package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/logging"
	repo "app/internal/repository"
)

type TrackingEntryOutput struct {
	ID                 int64      `json:"id"`
	OrderID            int64      `json:"order_id"`
	Status             string     `json:"status"`
	Location           *string    `json:"location,omitempty"`
	Description        string     `json:"description"`
	ModifiedBy         *int64     `json:"modified_by,omitempty"`
	ModificationReason *string    `json:"modification_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

type TrackingUsecase struct {
	tx  repo.TransactionManager
	pub event.Publisher
}

func NewTrackingUsecase(tx repo.TransactionManager, pub event.Publisher) *TrackingUsecase {
	return &TrackingUsecase{tx: tx, pub: pub}
}

// 注文の追跡履歴（古い順）。他人の注文は404。
func (u *TrackingUsecase) GetHistory(ctx context.Context, userID int64, orderID int64) ([]TrackingEntryOutput, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out []TrackingEntryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := findOwnedOrder(ctx, r, userID, orderID); err != nil {
			return err
		}

		entries, err := r.Tracking().ListByOrderID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "tracking.list", err)
		}

		out = make([]TrackingEntryOutput, 0, len(entries))
		for _, e := range entries {
			out = append(out, toTrackingOutput(e))
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

// 最新の追跡エントリ1件。履歴が無い注文は404。
func (u *TrackingUsecase) GetLatestStatus(ctx context.Context, userID int64, orderID int64) (TrackingEntryOutput, error) {
	if userID <= 0 {
		return TrackingEntryOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return TrackingEntryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out TrackingEntryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := findOwnedOrder(ctx, r, userID, orderID); err != nil {
			return err
		}

		latest, ok, err := r.Tracking().LatestByOrderID(ctx, orderID)
		if err != nil {
			return errStorage(ctx, "tracking.latest", err)
		}
		if !ok {
			return errNotFound()
		}

		out = toTrackingOutput(latest)
		return nil
	})

	if err != nil {
		return TrackingEntryOutput{}, err
	}
	return out, nil
}

type UpdateDeliveryStatusInput struct {
	Status      string
	Location    string
	Description string
}

// 配送ステータスの更新（管理者）。注文のstatusと追跡エントリを1Txで書く。
func (u *TrackingUsecase) UpdateDeliveryStatus(ctx context.Context, adminID int64, orderID int64, in UpdateDeliveryStatusInput) (TrackingEntryOutput, error) {
	if orderID <= 0 {
		return TrackingEntryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	st := model.OrderStatus(strings.TrimSpace(in.Status))
	switch st {
	case model.OrderStatusConfirmed, model.OrderStatusShipped,
		model.OrderStatusDelivered, model.OrderStatusCancelled:
		// OK
	default:
		return TrackingEntryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		out   TrackingEntryOutput
		order model.Order
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return errNotFound()
		}
		if err != nil {
			return errStorage(ctx, "order.find", err)
		}

		// 終端からは動かせない
		if o.Status.Terminal() {
			return NewHTTPError(http.StatusBadRequest, "order cannot be modified in its current state")
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, st); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "order.update_status", err)
		}

		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			desc = "Status updated to " + string(st)
		}

		entry := model.OrderTracking{
			OrderID:     orderID,
			Status:      string(st),
			Description: desc,
			ModifiedBy:  &adminID,
		}
		if loc := strings.TrimSpace(in.Location); loc != "" {
			entry.Location = &loc
		}

		created, err := r.Tracking().Create(ctx, entry)
		if err != nil {
			return errStorage(ctx, "tracking.create", err)
		}

		order = o
		out = toTrackingOutput(created)
		return nil
	})

	if err != nil {
		return TrackingEntryOutput{}, err
	}

	if err := u.pub.PublishOrderEvent(ctx, event.OrderEvent{
		Type:       event.TypeOrderStatusChanged,
		OrderID:    orderID,
		UserID:     order.UserID,
		Status:     string(st),
		OccurredAt: time.Now(),
	}); err != nil {
		logging.FromContext(ctx).Warn("event publish failed", "type", event.TypeOrderStatusChanged, "order_id", orderID, "error", err)
	}

	return out, nil
}

type AddTrackingInput struct {
	Status      string
	Location    string
	Description string
}

// 追跡エントリの追記だけ（注文のstatusは触らない）。管理者用。
func (u *TrackingUsecase) AddTrackingStatus(ctx context.Context, adminID int64, orderID int64, in AddTrackingInput) (TrackingEntryOutput, error) {
	if orderID <= 0 {
		return TrackingEntryOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		return TrackingEntryOutput{}, NewHTTPError(http.StatusBadRequest, "status is required")
	}

	var out TrackingEntryOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			if err == repo.ErrNotFound {
				return errNotFound()
			}
			return errStorage(ctx, "order.find", err)
		}

		entry := model.OrderTracking{
			OrderID:     orderID,
			Status:      status,
			Description: strings.TrimSpace(in.Description),
			ModifiedBy:  &adminID,
		}
		if loc := strings.TrimSpace(in.Location); loc != "" {
			entry.Location = &loc
		}

		created, err := r.Tracking().Create(ctx, entry)
		if err != nil {
			return errStorage(ctx, "tracking.create", err)
		}

		out = toTrackingOutput(created)
		return nil
	})

	if err != nil {
		return TrackingEntryOutput{}, err
	}
	return out, nil
}

func toTrackingOutput(e model.OrderTracking) TrackingEntryOutput {
	return TrackingEntryOutput{
		ID:                 e.ID,
		OrderID:            e.OrderID,
		Status:             e.Status,
		Location:           e.Location,
		Description:        e.Description,
		ModifiedBy:         e.ModifiedBy,
		ModificationReason: e.ModificationReason,
		CreatedAt:          e.CreatedAt,
	}
}
