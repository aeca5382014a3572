package model

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// OrderType — способ получения заказа
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

// Valid сообщает, является ли значение одним из известных типов заказа
func (t OrderType) Valid() bool {
	switch t {
	case OrderTypeDineIn, OrderTypeDelivery, OrderTypePickup:
		return true
	}
	return false
}

// OrderStatus — статус доставки заказа
// статусы образуют фиксированную последовательность, движение только вперёд
type OrderStatus string

const (
	StatusReceived       OrderStatus = "received"
	StatusPreparing      OrderStatus = "preparing"
	StatusReady          OrderStatus = "ready"
	StatusOutForDelivery OrderStatus = "out_for_delivery"
	StatusCompleted      OrderStatus = "completed"
)

// Next возвращает следующий статус в фиксированной последовательности
// completed — терминальный статус: следующий за ним — он же (идемпотентно)
func (s OrderStatus) Next() OrderStatus {
	switch s {
	case StatusReceived:
		return StatusPreparing
	case StatusPreparing:
		return StatusReady
	case StatusReady:
		return StatusOutForDelivery
	case StatusOutForDelivery:
		return StatusCompleted
	case StatusCompleted:
		return StatusCompleted
	}
	return s
}

// Valid сообщает, является ли значение одним из известных статусов
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusReceived, StatusPreparing, StatusReady, StatusOutForDelivery, StatusCompleted:
		return true
	}
	return false
}

// Order — неизменяемый снимок корзины, сделанный в момент оформления
// после создания меняется только поле Status, и только вперёд по
// последовательности статусов (кроме явного административного переопределения)
type Order struct {
	ID        string      `json:"id"`
	Items     []CartItem  `json:"items"`
	Total     float64     `json:"total"`
	Type      OrderType   `json:"type"`
	Status    OrderStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewOrderID генерирует идентификатор заказа: миллисекундная метка времени
// плюс короткий случайный суффикс. Этого достаточно, чтобы избежать коллизий
// в рамках одного процесса; глобальная уникальность не гарантируется
func NewOrderID() string {
	suffix := make([]byte, 4)
	_, _ = rand.Read(suffix)
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
