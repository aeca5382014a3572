package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/KurrinChi/Resto-system-sub001/internal/model"
)

// CartService инкапсулирует бизнес-логику корзины текущей сессии
//
// состояние в памяти — источник правды; каждое изменение синхронно
// пересчитывает производные величины и сквозной записью сохраняет весь
// массив позиций в хранилище. При старте корзина восстанавливается из
// хранилища; битые или отсутствующие данные означают пустую корзину,
// ошибка пользователю не показывается
type CartService struct {
	mu    sync.Mutex
	items []model.CartItem
	count int
	total float64

	kv  KVStore
	key string
	log *slog.Logger
}

// NewCartService создаёт сервис корзины и восстанавливает её состояние
// из хранилища по указанному ключу
// сервис конструируется один раз на старте приложения и передаётся
// потребителям по ссылке; nil-зависимости — дефект сборки приложения
func NewCartService(kv KVStore, key string, log *slog.Logger) *CartService {
	if kv == nil || log == nil {
		panic("service.NewCartService: nil dependency")
	}

	s := &CartService{
		items: []model.CartItem{},
		kv:    kv,
		key:   key,
		log:   log,
	}

	if s.kv.Load(context.Background(), s.key, &s.items) {
		log.Info("cart restored from storage", slog.Int("items", len(s.items)))
	}
	s.recompute()

	return s
}

// AddItem добавляет позицию в корзину
// если позиция с тем же id уже есть, её количество увеличивается на qty,
// иначе позиция добавляется в конец; qty <= 0 трактуется как 1
// верхняя граница количества на этом уровне не контролируется
func (s *CartService) AddItem(ctx context.Context, item model.CartItem, qty int) error {
	const op = "service.CartService.AddItem"

	if qty <= 0 {
		qty = 1
	}
	item.Qty = qty
	if err := item.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Qty += qty
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}

	s.commit(ctx)
	s.log.Debug("item added to cart", slog.String("id", item.ID), slog.Int("qty", qty))
	return nil
}

// UpdateQty устанавливает количество позиции
// итоговое qty <= 0 удаляет позицию целиком — позиция с нулевым количеством
// в корзине существовать не должна; неизвестный id — тихий no-op
func (s *CartService) UpdateQty(ctx context.Context, id string, qty int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}
		if qty <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		} else {
			s.items[i].Qty = qty
		}
		s.commit(ctx)
		return
	}
}

// RemoveItem удаляет позицию по id; неизвестный id — тихий no-op
func (s *CartService) RemoveItem(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			s.commit(ctx)
			return
		}
	}
}

// Clear опустошает корзину
func (s *CartService) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []model.CartItem{}
	s.commit(ctx)
}

// Items возвращает копию позиций корзины
func (s *CartService) Items() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]model.CartItem, len(s.items))
	copy(items, s.items)
	return items
}

// Count возвращает суммарное количество единиц товара
func (s *CartService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Total возвращает суммарную стоимость корзины
func (s *CartService) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// commit пересчитывает производные величины и сохраняет корзину в хранилище
// вызывается под мьютексом после каждой мутации
func (s *CartService) commit(ctx context.Context) {
	s.recompute()
	s.kv.Save(ctx, s.key, s.items)
}

func (s *CartService) recompute() {
	s.count = model.CartCount(s.items)
	s.total = model.CartTotal(s.items)
}
