package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"foodcart/internal/logger"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// orderMessage заказ в формате топика orders; цены проставит сервис
type orderMessage struct {
	Address     string        `json:"address" fake:"{street}"`
	Firstname   string        `json:"firstname" fake:"{firstname}"`
	Lastname    string        `json:"lastname" fake:"{lastname}"`
	Phonenumber string        `json:"phonenumber" fake:"+79#########"`
	Comment     string        `json:"comment" fake:"{sentence:4}"`
	Payment     string        `json:"payment" fake:"{randomstring:[CASH,CASHLESS]}"`
	Products    []itemMessage `json:"products" fakesize:"1,3"`
}

type itemMessage struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity" fake:"{number:1,5}"`
}

func main() {
	// .env не обязателен
	_ = godotenv.Load()

	log, err := logger.New(os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	brokerAddress := os.Getenv("KAFKA_BROKERS")
	if brokerAddress == "" {
		log.Fatal("переменная окружения KAFKA_BROKERS не установлена")
	}
	topic := envOr("KAFKA_TOPIC", "orders")
	count := envInt(log, "PRODUCER_COUNT", 5)
	maxProduct := envInt(log, "PRODUCER_MAX_PRODUCT", 10)

	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerAddress),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer func() {
		if err := writer.Close(); err != nil {
			log.Warn("Ошибка закрытия writer", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	faker := gofakeit.New(time.Now().UnixNano())
	log.Info("Запускаем продюсер", zap.String("topic", topic), zap.Int("count", count))

	for i := 0; i < count && ctx.Err() == nil; i++ {
		order, err := fakeOrder(faker, maxProduct)
		if err != nil {
			log.Warn("Ошибка генерации заказа", zap.Error(err))
			continue
		}
		send(ctx, log, writer, order)
		time.Sleep(time.Second)
	}

	// заказ без телефона: консюмер отправит его в DLQ
	invalid, err := fakeOrder(faker, maxProduct)
	if err == nil {
		invalid.Phonenumber = ""
		send(ctx, log, writer, invalid)
	}

	log.Info("Продюсер завершил работу")
}

func fakeOrder(faker *gofakeit.Faker, maxProduct int) (*orderMessage, error) {
	var order orderMessage
	if err := faker.Struct(&order); err != nil {
		return nil, err
	}
	// товары в корзине не повторяются
	ids := faker.Rand.Perm(maxProduct)
	if len(order.Products) > len(ids) {
		order.Products = order.Products[:len(ids)]
	}
	for i := range order.Products {
		order.Products[i].Product = int64(ids[i] + 1)
	}
	return &order, nil
}

func send(ctx context.Context, log *zap.Logger, writer *kafka.Writer, order *orderMessage) {
	value, err := json.Marshal(order)
	if err != nil {
		log.Warn("Ошибка маршалинга JSON", zap.Error(err))
		return
	}

	key := uuid.NewString()
	if err := writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		log.Error("Ошибка отправки сообщения", zap.String("key", key), zap.Error(err))
		return
	}
	log.Info("Сообщение отправлено", zap.String("key", key), zap.String("address", order.Address))
}

func envOr(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envInt(log *zap.Logger, key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		log.Fatal("некорректное значение", zap.String("key", key), zap.String("value", val))
	}
	return n
}
