package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"

	"github.com/KurrinChi/Resto-system-sub001/internal/model"
)

// StatusUpdate — сообщение административного канала статусов
// этот канал серверно-авторитетен и применяется к локальной истории как
// явное переопределение, минуя последовательность статусов
type StatusUpdate struct {
	OrderID string            `json:"order_id" validate:"required"`
	Status  model.OrderStatus `json:"status" validate:"required,oneof=received preparing ready out_for_delivery completed"`
}

// StatusOverrider — это интерфейс, который абстрагирует консьюмер
// от конкретной реализации сервисного слоя
type StatusOverrider interface {
	SetStatus(ctx context.Context, id string, status model.OrderStatus) (model.Order, bool, error)
}

var validate = validator.New()

// Consumer представляет собой консьюмер сообщений Kafka
type Consumer struct {
	reader  *kafka.Reader
	service StatusOverrider
	log     *slog.Logger
}

// NewConsumer создает новый экземпляр консьюмера
func NewConsumer(brokers []string, topic, groupID string, service StatusOverrider, log *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})

	return &Consumer{
		reader:  reader,
		service: service,
		log:     log,
	}
}

// Run запускает цикл чтения сообщений из Kafka
// эта функция блокирующая, поэтому она запускается в отдельной горутине
func (c *Consumer) Run(ctx context.Context) {
	log := c.log.With(slog.String("component", "kafka_consumer"))
	log.Info("Kafka consumer started")

	for {
		// проверка на отмену контекста
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, stopping consumer.")
			return
		default:
			// FetchMessage блокирует до появления сообщения или ошибки
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				// если контекст был отменен во время ожидания, это нормальное завершение
				if errors.Is(err, context.Canceled) {
					return
				}
				// если ридер был закрыт, тоже выходим
				if errors.Is(err, io.EOF) {
					log.Info("Kafka reader closed")
					return
				}
				log.Error("failed to fetch message", slog.String("error", err.Error()))
				continue // пробуем снова
			}

			log.Info("received message", slog.String("topic", msg.Topic), slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))

			if err := c.handleMessage(ctx, msg); err != nil {
				log.Error("failed to handle message", slog.String("error", err.Error()))
				// сообщение НЕ подтверждаем — пусть Kafka отдаст его снова
				continue
			}

			// фиксируем offset только после успешной обработки
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				log.Error("failed to commit message", slog.String("error", err.Error()))
			}
		}
	}
}

// handleMessage парсит и обрабатывает одно сообщение
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var update StatusUpdate

	if err := json.Unmarshal(msg.Value, &update); err != nil {
		// сообщение невалидно: логируем и игнорируем,
		// перечитывать его бессмысленно
		c.log.Warn("failed to unmarshal message, skipping", slog.String("error", err.Error()))
		return nil
	}

	if err := validate.Struct(&update); err != nil {
		// данные не прошли валидацию — также не перечитываем
		c.log.Warn("message validation failed, skipping",
			slog.String("error", err.Error()),
			slog.String("order_id", update.OrderID),
		)
		return nil
	}

	_, found, err := c.service.SetStatus(ctx, update.OrderID, update.Status)
	if err != nil {
		c.log.Error("failed to apply status override",
			slog.String("error", err.Error()),
			slog.String("order_id", update.OrderID),
		)
		return err
	}
	if !found {
		// заказа нет в локальной истории: каналы статусов параллельны,
		// серверные заказы не обязаны существовать локально
		c.log.Warn("order not found locally, skipping", slog.String("order_id", update.OrderID))
		return nil
	}

	c.log.Info("status override applied",
		slog.String("order_id", update.OrderID),
		slog.String("status", string(update.Status)),
	)
	return nil
}

// graceful shutdown консьюмера
func (c *Consumer) Close() error {
	c.log.Info("Closing kafka consumer")
	return c.reader.Close()
}
