package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KurrinChi/Resto-system-sub001/internal/model"
	"github.com/KurrinChi/Resto-system-sub001/internal/repository/storage"
)

func newTestServices(t *testing.T) (*CartService, *OrderService, *storage.Store) {
	t.Helper()
	store := newTestStorage(t)
	cart := NewCartService(store, "cart", discardLogger())
	orders := NewOrderService(cart, store, "orders", discardLogger())
	return cart, orders, store
}

func fillCart(t *testing.T, cart *CartService) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, cart.AddItem(ctx, model.CartItem{ID: "1", Name: "Burger", Price: 9.5}, 2))
	require.NoError(t, cart.AddItem(ctx, model.CartItem{ID: "2", Name: "Fries", Price: 3.25}, 1))
}

func TestCheckoutClearsCart(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	total := cart.Total()

	order, err := orders.Checkout(ctx, model.OrderTypeDelivery)
	require.NoError(t, err)

	assert.InDelta(t, total, order.Total, 1e-9)
	assert.Equal(t, model.StatusReceived, order.Status)
	assert.Equal(t, model.OrderTypeDelivery, order.Type)
	assert.NotEmpty(t, order.ID)
	assert.False(t, order.CreatedAt.IsZero())
	assert.Zero(t, cart.Count())
	assert.Empty(t, cart.Items())
}

func TestCheckoutEmptyCart(t *testing.T) {
	_, orders, _ := newTestServices(t)

	_, err := orders.Checkout(context.Background(), model.OrderTypePickup)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutInvalidType(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	fillCart(t, cart)

	_, err := orders.Checkout(context.Background(), model.OrderType("drive-through"))
	assert.ErrorIs(t, err, ErrInvalidOrderType)
	// корзина очищается только при успешном оформлении
	assert.NotZero(t, cart.Count())
}

// снимок заказа не зависит от последующих мутаций корзины
func TestOrderSnapshotIsolation(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	order, err := orders.Checkout(ctx, model.OrderTypeDineIn)
	require.NoError(t, err)

	require.NoError(t, cart.AddItem(ctx, model.CartItem{ID: "9", Name: "Cola", Price: 2}, 4))
	cart.UpdateQty(ctx, "9", 7)

	stored, found := orders.Get(ctx, order.ID)
	require.True(t, found)
	assert.Equal(t, order.Items, stored.Items)
	assert.InDelta(t, order.Total, stored.Total, 1e-9)
	assert.Len(t, stored.Items, 2)
}

// новые заказы добавляются в начало истории
func TestHistoryNewestFirst(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	first, err := orders.Checkout(ctx, model.OrderTypePickup)
	require.NoError(t, err)

	fillCart(t, cart)
	second, err := orders.Checkout(ctx, model.OrderTypeDelivery)
	require.NoError(t, err)

	history := orders.History(ctx)
	require.Len(t, history, 2)
	assert.Equal(t, second.ID, history[0].ID)
	assert.Equal(t, first.ID, history[1].ID)
}

// received -> preparing -> ready -> out_for_delivery -> completed -> completed
func TestAdvanceSequence(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	order, err := orders.Checkout(ctx, model.OrderTypeDelivery)
	require.NoError(t, err)

	want := []model.OrderStatus{
		model.StatusPreparing,
		model.StatusReady,
		model.StatusOutForDelivery,
		model.StatusCompleted,
		model.StatusCompleted,
	}
	for _, expected := range want {
		updated, found := orders.Advance(ctx, order.ID)
		require.True(t, found)
		assert.Equal(t, expected, updated.Status)
	}

	// терминальный статус сохранился и в хранилище
	stored, found := orders.Get(ctx, order.ID)
	require.True(t, found)
	assert.Equal(t, model.StatusCompleted, stored.Status)
}

func TestAdvanceUnknownIDIsNoop(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	order, err := orders.Checkout(ctx, model.OrderTypeDelivery)
	require.NoError(t, err)

	_, found := orders.Advance(ctx, "no-such-order")
	assert.False(t, found)

	// существующий заказ не задет
	stored, ok := orders.Get(ctx, order.ID)
	require.True(t, ok)
	assert.Equal(t, model.StatusReceived, stored.Status)
}

// Advance меняет только статус; остальные поля заказа неизменяемы
func TestAdvanceMutatesOnlyStatus(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	order, err := orders.Checkout(ctx, model.OrderTypePickup)
	require.NoError(t, err)

	updated, found := orders.Advance(ctx, order.ID)
	require.True(t, found)

	assert.Equal(t, order.ID, updated.ID)
	assert.Equal(t, order.Items, updated.Items)
	assert.InDelta(t, order.Total, updated.Total, 1e-9)
	assert.Equal(t, order.Type, updated.Type)
	assert.True(t, order.CreatedAt.Equal(updated.CreatedAt))
}

// административное переопределение минует последовательность статусов
func TestSetStatusOverride(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	order, err := orders.Checkout(ctx, model.OrderTypeDelivery)
	require.NoError(t, err)

	updated, found, err := orders.SetStatus(ctx, order.ID, model.StatusReady)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.StatusReady, updated.Status)

	_, found, err = orders.SetStatus(ctx, "no-such-order", model.StatusReady)
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = orders.SetStatus(ctx, order.ID, model.OrderStatus("lost"))
	assert.True(t, errors.Is(err, ErrInvalidStatus))
}

// битый элемент в персистентной истории эквивалентен пустой истории
func TestCorruptHistoryMeansEmptyHistory(t *testing.T) {
	_, orders, store := newTestServices(t)
	ctx := context.Background()

	store.Save(ctx, "orders", []map[string]any{
		{"id": "x", "total": "oops", "status": "received"},
	})

	assert.Empty(t, orders.History(ctx))
	_, found := orders.Get(ctx, "x")
	assert.False(t, found)
}

// сумма заказа всегда согласована с его же снимком позиций,
// даже если корзину конкурентно мутируют во время оформления
func TestCheckoutSnapshotConsistentUnderConcurrency(t *testing.T) {
	cart, orders, _ := newTestServices(t)
	ctx := context.Background()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			_ = cart.AddItem(ctx, model.CartItem{ID: "noise", Name: "Cola", Price: 2}, 1)
			cart.UpdateQty(ctx, "noise", i%5)
		}
	}()

	for i := 0; i < 20; i++ {
		require.NoError(t, cart.AddItem(ctx, model.CartItem{ID: "1", Name: "Burger", Price: 9.5}, 2))
		order, err := orders.Checkout(ctx, model.OrderTypeDelivery)
		require.NoError(t, err)
		assert.InDelta(t, model.CartTotal(order.Items), order.Total, 1e-9)
	}

	close(stop)
	<-done
}

// история заказов переживает перезапуск и живёт независимо от корзины
func TestHistorySurvivesRestart(t *testing.T) {
	cart, orders, store := newTestServices(t)
	ctx := context.Background()

	fillCart(t, cart)
	order, err := orders.Checkout(ctx, model.OrderTypeDelivery)
	require.NoError(t, err)

	cart2 := NewCartService(store, "cart", discardLogger())
	orders2 := NewOrderService(cart2, store, "orders", discardLogger())

	history := orders2.History(ctx)
	require.Len(t, history, 1)
	assert.Equal(t, order.ID, history[0].ID)
	assert.Empty(t, cart2.Items())
}
