package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/usecase"

	"github.com/stretchr/testify/require"
)

func placeOrder(t *testing.T, env *testEnv, userID int64) usecase.OrderOutput {
	t.Helper()
	fillCart(t, env, userID)
	out, err := env.Checkout.PlaceOrder(context.Background(), userID, validCheckoutInput())
	require.NoError(t, err)
	return out
}

func TestListMyOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	seedProduct(t, env.DB, "rx78", "RX-78-2", "50", 100)

	for i := 0; i < 3; i++ {
		_, err := env.Cart.AddToCart(ctx, 1, usecase.AddCartInput{ProductCode: "rx78", Quantity: 1})
		require.NoError(t, err)
		_, err = env.Checkout.PlaceOrder(ctx, 1, validCheckoutInput())
		require.NoError(t, err)
	}

	out, err := env.Orders.ListMyOrders(ctx, 1, 1, 2)
	require.NoError(t, err)
	require.Len(t, out.Orders, 2)
	require.EqualValues(t, 3, out.Pagination.Total)
	require.Equal(t, 2, out.Pagination.Pages)

	// 新しい順
	require.Greater(t, out.Orders[0].ID, out.Orders[1].ID)

	// 2ページ目に残り1件
	out, err = env.Orders.ListMyOrders(ctx, 1, 2, 2)
	require.NoError(t, err)
	require.Len(t, out.Orders, 1)

	// 他人の注文は一覧に出ない
	out, err = env.Orders.ListMyOrders(ctx, 2, 1, 10)
	require.NoError(t, err)
	require.Empty(t, out.Orders)
}

func TestGetMyOrderDetail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	placed := placeOrder(t, env, 1)

	out, err := env.Orders.GetMyOrderDetail(ctx, 1, placed.ID)
	require.NoError(t, err)
	require.Equal(t, placed.ID, out.ID)
	require.Len(t, out.Items, 2)
	require.Equal(t, "RX-78-2", out.Items[0].Name)

	// 他人の注文は404（403ではない）
	_, err = env.Orders.GetMyOrderDetail(ctx, 2, placed.ID)
	requireHTTPStatus(t, err, http.StatusNotFound)

	_, err = env.Orders.GetMyOrderDetail(ctx, 1, 9999)
	requireHTTPStatus(t, err, http.StatusNotFound)
}

func TestUpdateMyOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	placed := placeOrder(t, env, 1)

	notes := "Leave at the door"
	due := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	out, err := env.Orders.UpdateMyOrder(ctx, 1, placed.ID, usecase.UpdateOrderInput{
		Notes:                &notes,
		ExpectedDeliveryDate: &due,
		Reason:               "changed delivery plan",
	})
	require.NoError(t, err)
	require.Equal(t, notes, out.Notes)
	require.NotNil(t, out.ExpectedDeliveryDate)

	// modified追跡エントリがちょうど1件、誰が・なぜ付き
	history, err := env.Tracking.GetHistory(ctx, 1, placed.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, model.TrackingEventModified, history[0].Status)
	require.NotNil(t, history[0].ModifiedBy)
	require.EqualValues(t, 1, *history[0].ModifiedBy)
	require.NotNil(t, history[0].ModificationReason)
	require.Equal(t, "changed delivery plan", *history[0].ModificationReason)
}

func TestUpdateMyOrderEmptyUpdate(t *testing.T) {
	env := newTestEnv(t)
	placed := placeOrder(t, env, 1)

	_, err := env.Orders.UpdateMyOrder(context.Background(), 1, placed.ID, usecase.UpdateOrderInput{})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	he, _ := usecase.AsHTTPError(err)
	require.Equal(t, "no valid fields to update", he.Message)
}

func TestUpdateMyOrderTerminalStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	placed := placeOrder(t, env, 1)

	require.NoError(t, env.DB.Model(&model.Order{}).Where("id = ?", placed.ID).
		Update("status", model.OrderStatusShipped).Error)

	notes := "too late"
	_, err := env.Orders.UpdateMyOrder(ctx, 1, placed.ID, usecase.UpdateOrderInput{Notes: &notes})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	// 追跡エントリも増えない
	history, err := env.Tracking.GetHistory(ctx, 1, placed.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestCancelMyOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	placed := placeOrder(t, env, 1)
	require.EqualValues(t, 8, productStock(t, env.DB, "rx78"))

	out, err := env.Orders.CancelMyOrder(ctx, 1, placed.ID, "ordered by mistake")
	require.NoError(t, err)
	require.Equal(t, string(model.OrderStatusCancelled), out.Status)
	require.NotNil(t, out.CancellationReason)
	require.Equal(t, "ordered by mistake", *out.CancellationReason)
	require.NotNil(t, out.CancelledAt)

	// 在庫が戻る
	require.EqualValues(t, 10, productStock(t, env.DB, "rx78"))
	require.EqualValues(t, 1, productStock(t, env.DB, "zaku2"))

	// cancelledエントリがちょうど1件
	history, err := env.Tracking.GetHistory(ctx, 1, placed.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, string(model.OrderStatusCancelled), history[0].Status)

	// order.cancelledイベント（placed 1件 + cancelled 1件）
	require.Len(t, env.Events.events, 2)
	require.Equal(t, event.TypeOrderCancelled, env.Events.events[1].Type)

	// 二重キャンセルは拒否され、在庫も二重に戻らない
	_, err = env.Orders.CancelMyOrder(ctx, 1, placed.ID, "again")
	requireHTTPStatus(t, err, http.StatusBadRequest)
	require.EqualValues(t, 10, productStock(t, env.DB, "rx78"))
}

func TestCancelMyOrderRequiresReason(t *testing.T) {
	env := newTestEnv(t)
	placed := placeOrder(t, env, 1)

	_, err := env.Orders.CancelMyOrder(context.Background(), 1, placed.ID, "  ")
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCancelMyOrderOwnership(t *testing.T) {
	env := newTestEnv(t)
	placed := placeOrder(t, env, 1)

	_, err := env.Orders.CancelMyOrder(context.Background(), 2, placed.ID, "not mine")
	requireHTTPStatus(t, err, http.StatusNotFound)
}
