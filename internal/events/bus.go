package events

import "sync"

// Topic — закрытое перечисление типов сообщений шины
// вместо строковых имён событий, как того требует контракт между
// независимыми частями интерфейса (выбор адреса, строка поиска, карта)
type Topic int

const (
	// TopicAddressUpdated — адрес доставки обновлён; полезной нагрузки нет,
	// подписчики сами перечитывают каноническое значение из хранилища
	TopicAddressUpdated Topic = iota
	// TopicSearchChanged — текст строки поиска изменился; полезная нагрузка —
	// текущий запрос
	TopicSearchChanged
	// TopicMapPickerRequested — запрос на открытие выбора адреса на карте
	TopicMapPickerRequested
)

// Message — сообщение шины
type Message struct {
	Topic   Topic
	Payload string
}

// Handler — обработчик сообщения; вызывается синхронно в горутине издателя
type Handler func(Message)

// Bus — синхронная шина публикации/подписки внутри процесса
//
// доставка fire-and-forget: сообщения не буферизуются и не доигрываются,
// поздний подписчик пропускает всё, что было опубликовано до подписки —
// он обязан сначала инициализировать своё состояние из хранилища,
// а подписку использовать только для последующих живых обновлений
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]Handler
}

// NewBus создаёт пустую шину
func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[int]Handler)}
}

// Subscribe регистрирует обработчик на тему
// возвращает функцию отписки; после её вызова обработчик не вызывается
func (b *Bus) Subscribe(topic Topic, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[topic][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish синхронно рассылает сообщение всем текущим подписчикам темы
// гарантий доставки нет: если подписчиков нет, сообщение просто теряется
func (b *Bus) Publish(msg Message) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[msg.Topic]))
	for _, h := range b.subs[msg.Topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(msg)
	}
}
