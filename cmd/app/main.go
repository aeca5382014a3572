package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KurrinChi/Resto-system-sub001/internal/config"
	"github.com/KurrinChi/Resto-system-sub001/internal/events"
	"github.com/KurrinChi/Resto-system-sub001/internal/lib/logger"
	"github.com/KurrinChi/Resto-system-sub001/internal/repository/storage"
	"github.com/KurrinChi/Resto-system-sub001/internal/service"
	httptransport "github.com/KurrinChi/Resto-system-sub001/internal/transport/http"
	"github.com/KurrinChi/Resto-system-sub001/internal/transport/kafka"
)

func main() {
	// 1. Инициализация конфигурации
	cfg := config.MustLoad("config/config.yaml")

	// 2. Инициализация логгера
	log := logger.New(cfg.Logger.Level)
	log.Info("starting storefront service", slog.String("log_level", cfg.Logger.Level))

	// 3. Инициализация локального хранилища
	store, err := storage.Open(cfg.Storage.Path, log)
	if err != nil {
		log.Error("failed to open local storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()
	log.Info("local storage opened", slog.String("path", cfg.Storage.Path))

	// 4. Инициализация сервисного слоя
	// сервисы конструируются один раз и передаются потребителям по ссылке;
	// корзина и история при этом восстанавливаются из хранилища
	cartSvc := service.NewCartService(store, cfg.Storage.CartKey, log)
	orderSvc := service.NewOrderService(cartSvc, store, cfg.Storage.HistoryKey, log)

	// 5. Инициализация шины синхронизации
	bus := events.NewBus()
	unsubscribe := bus.Subscribe(events.TopicAddressUpdated, func(events.Message) {
		// подписчики перечитывают каноническое значение из хранилища
		var addr string
		store.Load(context.Background(), cfg.Storage.AddressKey, &addr)
		log.Info("delivery address updated", slog.String("address", addr))
	})
	defer unsubscribe()

	// 6. Инициализация и запуск консьюмера административного канала статусов
	ctx, cancel := context.WithCancel(context.Background())
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, orderSvc, log)
		go consumer.Run(ctx)
	} else {
		log.Info("kafka status channel disabled, running local-only")
	}

	// 7. Инициализация и запуск HTTP-сервера
	handler := httptransport.NewHandler(cartSvc, orderSvc, bus, store, cfg.Storage.AddressKey, log)
	httpServer := httptransport.NewServer(cfg.HTTPServer.Port, handler, cfg.HTTPServer.Timeout)
	log.Info("starting http server", slog.String("port", cfg.HTTPServer.Port))

	go func() {
		if err := httpServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed to start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// 8. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down application")
	cancel() // сигнал для консьюмера на завершение

	// создаем контекст с таймаутом для шатдауна сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", slog.String("error", err.Error()))
	}

	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("error closing kafka consumer", slog.String("error", err.Error()))
		}
	}

	log.Info("application stopped")
}
