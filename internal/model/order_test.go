package model

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusNext(t *testing.T) {
	assert.Equal(t, StatusPreparing, StatusReceived.Next())
	assert.Equal(t, StatusReady, StatusPreparing.Next())
	assert.Equal(t, StatusOutForDelivery, StatusReady.Next())
	assert.Equal(t, StatusCompleted, StatusOutForDelivery.Next())
	// completed терминален и идемпотентен
	assert.Equal(t, StatusCompleted, StatusCompleted.Next())
}

func TestStatusValid(t *testing.T) {
	for _, s := range []OrderStatus{StatusReceived, StatusPreparing, StatusReady, StatusOutForDelivery, StatusCompleted} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, OrderStatus("cooking").Valid())
	assert.False(t, OrderStatus("").Valid())
}

func TestOrderTypeValid(t *testing.T) {
	for _, ot := range []OrderType{OrderTypeDineIn, OrderTypeDelivery, OrderTypePickup} {
		assert.True(t, ot.Valid(), string(ot))
	}
	assert.False(t, OrderType("takeout").Valid())
}

func TestNewOrderID(t *testing.T) {
	idPattern := regexp.MustCompile(`^\d{13,}-[0-9a-f]{8}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewOrderID()
		assert.Regexp(t, idPattern, id)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestCartItemValidate(t *testing.T) {
	valid := CartItem{ID: "1", Name: "Burger", Price: 9.5, Qty: 1}
	assert.NoError(t, valid.Validate())

	cases := []CartItem{
		{Name: "Burger", Price: 9.5, Qty: 1},          // нет id
		{ID: "1", Price: 9.5, Qty: 1},                 // нет имени
		{ID: "1", Name: "Burger", Price: -1, Qty: 1},  // отрицательная цена
		{ID: "1", Name: "Burger", Price: 9.5, Qty: 0}, // нулевое количество
	}
	for _, c := range cases {
		item := c
		assert.Error(t, item.Validate())
	}
}

func TestCartDerived(t *testing.T) {
	items := []CartItem{
		{ID: "1", Name: "Burger", Price: 9.5, Qty: 3},
		{ID: "2", Name: "Fries", Price: 3.25, Qty: 2},
	}
	assert.Equal(t, 5, CartCount(items))
	assert.InDelta(t, 35.0, CartTotal(items), 1e-9)

	assert.Zero(t, CartCount(nil))
	assert.Zero(t, CartTotal(nil))
}
