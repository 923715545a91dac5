package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodcart/internal/config"
	"foodcart/internal/db"
	"foodcart/internal/dispatch"
	"foodcart/internal/geocoder"
	"foodcart/internal/handlers"
	"foodcart/internal/interfaces"
	"foodcart/internal/kafka"
	"foodcart/internal/logger"
	"foodcart/internal/middleware"
	"foodcart/internal/orders"
	"foodcart/internal/places"
	"foodcart/internal/tracing"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "путь к YAML-конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := tracing.InitTracer(cfg.ServiceName, cfg.Tracing.JaegerEndpoint)
	if err != nil {
		log.Warn("трейсинг отключен", zap.Error(err))
	} else {
		defer func() {
			if err := tracing.Shutdown(tp, 5*time.Second); err != nil {
				log.Warn("ошибка остановки трейсинга", zap.Error(err))
			}
		}()
	}

	dbConn, err := db.NewPostgresDB(ctx, cfg.Postgres.DSN, log.Named("db"))
	if err != nil {
		log.Fatal("Не удалось подключиться к базе данных", zap.Error(err))
	}
	defer dbConn.Close()

	store, closeStore, err := placeStore(ctx, cfg, dbConn)
	if err != nil {
		log.Fatal("Не удалось подготовить кэш координат", zap.Error(err))
	}
	defer closeStore()
	log.Info("кэш координат", zap.String("backend", cfg.Places.Backend))

	geo := geocoder.NewClient(cfg.Geocoder.BaseURL, cfg.Geocoder.APIKey, cfg.Geocoder.Timeout)
	cache := places.NewCache(store, geo, cfg.Places.FreshnessWindow, cfg.Places.Concurrency, log.Named("places"))
	planner := dispatch.NewPlanner(cache, tracing.GetTracer("dispatch"), log.Named("dispatch"))
	service := orders.NewService(dbConn, log.Named("orders"))

	// Kafka Consumer (регистрирует заказы из топика)
	consumer := kafka.NewConsumer(
		cfg.Kafka.Brokers,
		cfg.Kafka.Topic,
		cfg.Kafka.GroupID,
		cfg.Kafka.DLQTopic,
		service,
		tracing.GetTracer("kafka"),
		log.Named("kafka"),
	)
	defer consumer.Close()
	go consumer.Run(ctx)

	handler := handlers.NewHandler(dbConn, service, planner, tracing.GetTracer("http"), log.Named("http"))
	router := mux.NewRouter()
	router.Use(middleware.MetricsMiddleware, middleware.LoggingMiddleware(log.Named("http")))
	handler.Routes(router)

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Info("Запуск сервера", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Ошибка сервера", zap.Error(err))
		}
	}()

	// Корректное завершение по SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("отключение сервера...")
	cancel()

	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelTimeout()
	if err := srv.Shutdown(ctxTimeout); err != nil {
		log.Error("Сервер принудительно отключен", zap.Error(err))
	}
}

// placeStore выбирает хранилище координат по конфигурации
func placeStore(ctx context.Context, cfg *config.Config, dbConn *db.PostgresDB) (interfaces.PlaceStore, func(), error) {
	switch cfg.Places.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		store := places.NewRedisStore(client)
		return store, func() { _ = store.Close() }, nil
	case config.BackendMemory:
		return places.NewMemoryStore(cfg.Places.MemorySize), func() {}, nil
	default:
		return dbConn, func() {}, nil
	}
}
