package model

import (
	"github.com/go-playground/validator/v10"
)

// CartItem представляет одну позицию корзины
// теги validate используются для проверки корректности данных при получении
type CartItem struct {
	ID    string  `json:"id" validate:"required"`
	Name  string  `json:"name" validate:"required"`
	Price float64 `json:"price" validate:"gte=0"`
	Qty   int     `json:"qty" validate:"gt=0"`
}

var validate = validator.New()

// Validate проверяет корректность позиции корзины на основе тегов validate
// позиция с Qty <= 0 считается невалидной: такие позиции удаляются из корзины,
// а не хранятся с нулевым количеством
func (i *CartItem) Validate() error {
	return validate.Struct(i)
}

// CartCount возвращает суммарное количество единиц товара в корзине
func CartCount(items []CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Qty
	}
	return count
}

// CartTotal возвращает суммарную стоимость корзины
func CartTotal(items []CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Price * float64(item.Qty)
	}
	return total
}
