package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KurrinChi/Resto-system-sub001/internal/model"
)

var (
	// ErrEmptyCart возвращается при попытке оформить заказ из пустой корзины
	ErrEmptyCart = errors.New("cart is empty")
	// ErrInvalidOrderType возвращается при неизвестном типе заказа
	ErrInvalidOrderType = errors.New("invalid order type")
	// ErrInvalidStatus возвращается при неизвестном значении статуса
	ErrInvalidStatus = errors.New("invalid order status")
)

// OrderService инкапсулирует оформление заказа и его жизненный цикл
//
// история заказов живёт в хранилище под собственным ключом, независимо от
// корзины, упорядочена от новых к старым и ничем не ограничена по размеру.
// Любая мутация истории идёт по единой схеме: загрузить весь массив, найти
// заказ, изменить, сохранить весь массив обратно — частичных записей нет.
// Прямое присваивание статуса в обход Advance допустимо только через
// SetStatus и считается явным административным переопределением
type OrderService struct {
	mu sync.Mutex

	cart *CartService
	kv   KVStore
	key  string
	log  *slog.Logger
}

// NewOrderService создаёт сервис заказов
// он принимает интерфейс хранилища, а не конкретный тип, для тестируемости
func NewOrderService(cart *CartService, kv KVStore, key string, log *slog.Logger) *OrderService {
	if cart == nil || kv == nil || log == nil {
		panic("service.NewOrderService: nil dependency")
	}
	return &OrderService{
		cart: cart,
		kv:   kv,
		key:  key,
		log:  log,
	}
}

// Checkout оформляет заказ из текущего содержимого корзины
//
// порядок шагов фиксирован: снимок позиций и суммы, генерация id, статус
// received и отметка времени, добавление в начало истории с сохранением,
// и в конце — очистка корзины. Корзина очищается безусловно, даже если
// сохранение истории не удалось. Возвращаемое значение — замороженный
// снимок, не зависящий от последующих мутаций корзины или истории
func (s *OrderService) Checkout(ctx context.Context, orderType model.OrderType) (model.Order, error) {
	const op = "service.OrderService.Checkout"
	log := s.log.With(slog.String("op", op))

	if !orderType.Valid() {
		return model.Order{}, fmt.Errorf("%s: %w: %q", op, ErrInvalidOrderType, orderType)
	}

	items := s.cart.Items()
	if len(items) == 0 {
		return model.Order{}, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	order := model.Order{
		ID:    model.NewOrderID(),
		Items: items,
		// сумма считается из уже снятой копии позиций: между двумя
		// обращениями к корзине может вклиниться конкурентная мутация,
		// а заказ обязан быть внутренне согласованным снимком
		Total:     model.CartTotal(items),
		Type:      orderType,
		Status:    model.StatusReceived,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	history := s.loadHistory(ctx)
	history = append([]model.Order{order}, history...)
	s.kv.Save(ctx, s.key, history)
	s.mu.Unlock()

	// оформление всегда опустошает корзину, независимо от судьбы записи
	s.cart.Clear(ctx)

	log.Info("order created",
		slog.String("order_id", order.ID),
		slog.String("type", string(orderType)),
		slog.Float64("total", order.Total))
	return order, nil
}

// History возвращает историю заказов, от новых к старым
func (s *OrderService) History(ctx context.Context) []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadHistory(ctx)
}

// Get возвращает заказ по id; false — заказ не найден
func (s *OrderService) Get(ctx context.Context, id string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, order := range s.loadHistory(ctx) {
		if order.ID == id {
			return order, true
		}
	}
	return model.Order{}, false
}

// Advance переводит заказ на следующий статус фиксированной последовательности
// received -> preparing -> ready -> out_for_delivery -> completed
// completed терминален: повторный Advance возвращает заказ без изменений
// неизвестный id — тихий no-op без записи в хранилище, результат false
// обновлённый заказ возвращается напрямую, перечитывать хранилище не нужно
func (s *OrderService) Advance(ctx context.Context, id string) (model.Order, bool) {
	const op = "service.OrderService.Advance"

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.loadHistory(ctx)
	for i := range history {
		if history[i].ID != id {
			continue
		}
		history[i].Status = history[i].Status.Next()
		s.kv.Save(ctx, s.key, history)
		s.log.Info("order advanced",
			slog.String("op", op),
			slog.String("order_id", id),
			slog.String("status", string(history[i].Status)))
		return history[i], true
	}
	return model.Order{}, false
}

// SetStatus устанавливает статус заказа напрямую, минуя последовательность
// это явное переопределение для серверно-авторитетного административного
// канала; порядок статусов здесь не проверяется, значение — проверяется
// неизвестный id — тихий no-op, результат false
func (s *OrderService) SetStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, bool, error) {
	const op = "service.OrderService.SetStatus"

	if !status.Valid() {
		return model.Order{}, false, fmt.Errorf("%s: %w: %q", op, ErrInvalidStatus, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.loadHistory(ctx)
	for i := range history {
		if history[i].ID != id {
			continue
		}
		history[i].Status = status
		s.kv.Save(ctx, s.key, history)
		s.log.Info("order status overridden",
			slog.String("op", op),
			slog.String("order_id", id),
			slog.String("status", string(status)))
		return history[i], true, nil
	}
	return model.Order{}, false, nil
}

// loadHistory загружает историю из хранилища; битые или отсутствующие
// данные эквивалентны пустой истории. Вызывается под мьютексом
func (s *OrderService) loadHistory(ctx context.Context) []model.Order {
	history := []model.Order{}
	s.kv.Load(ctx, s.key, &history)
	return history
}
