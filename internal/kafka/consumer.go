package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"foodcart/internal/orders"
	"foodcart/internal/validation"
	"foodcart/models"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OrderRegistrar оформляет заказ, реализуется orders.Service
type OrderRegistrar interface {
	Register(ctx context.Context, source string, order *models.Order) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// errPermanent сообщение не станет валидным от повторов
var errPermanent = errors.New("сообщение не может быть обработано")

type Consumer struct {
	reader      *kafka.Reader
	dlqWriter   messageWriter
	orders      OrderRegistrar
	tracer      trace.Tracer
	logger      *zap.Logger
	maxRetries  int
	retryDelay  time.Duration
	backoffMode string // "fixed" или "exponential"
}

func NewConsumer(brokers []string, topic, groupID, dlqTopic string, registrar OrderRegistrar, tracer trace.Tracer, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
	})
	return &Consumer{
		reader: r,
		orders: registrar,
		tracer: tracer,
		logger: logger.With(zap.String("topic", topic)),
		dlqWriter: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    dlqTopic,
			Balancer: &kafka.LeastBytes{},
		},
		maxRetries:  3,
		retryDelay:  2 * time.Second,
		backoffMode: "exponential", // можно "fixed"
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("консюмер остановился по контексту")
				return
			}
			c.logger.Warn("Ошибка выборки Kafka", zap.Error(err))
			continue
		}

		c.handle(ctx, m)
	}
}

// handle обрабатывает сообщение; после ретраев оно уходит в DLQ и тоже коммитится
func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	err := c.processWithRetry(ctx, m)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.logger.Error("Ошибка после всех ретраев",
			zap.Int64("offset", m.Offset), zap.Error(err))
		if dlqErr := c.sendToDLQ(ctx, m, err); dlqErr != nil {
			return
		}
	}
	c.commit(ctx, m)
}

// обёртка с ретраями; ошибки данных не повторяются
func (c *Consumer) processWithRetry(ctx context.Context, m kafka.Message) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err = c.processMessage(ctx, m)
		if err == nil || errors.Is(err, errPermanent) {
			return err
		}

		// последняя попытка, выходим
		if attempt == c.maxRetries {
			break
		}

		delay := c.backoff(attempt)
		c.logger.Warn("ошибка обработки, повтор",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", c.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (c *Consumer) backoff(attempt int) time.Duration {
	if c.backoffMode == "exponential" {
		return time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
	}
	return c.retryDelay
}

func (c *Consumer) processMessage(ctx context.Context, m kafka.Message) error {
	ctx, span := c.tracer.Start(ctx, "kafka.process_order")
	defer span.End()
	span.SetAttributes(attribute.Int64("kafka.offset", m.Offset))

	var order models.Order
	if err := json.Unmarshal(m.Value, &order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "плохой JSON")
		return fmt.Errorf("%w: ошибка при преобразовании JSON: %v", errPermanent, err)
	}

	if err := c.orders.Register(ctx, orders.SourceKafka, &order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "заказ не зарегистрирован")
		if errors.Is(err, validation.ErrInvalidOrder) || errors.Is(err, orders.ErrUnknownProduct) {
			return fmt.Errorf("%w: %w", errPermanent, err)
		}
		return fmt.Errorf("ошибка регистрации заказа: %w", err)
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	c.logger.Info("Заказ успешно обработан и сохранен", zap.Int64("order_id", order.ID))
	return nil
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		c.logger.Warn("Ошибка коммита", zap.Error(err))
	}
}

func (c *Consumer) sendToDLQ(ctx context.Context, m kafka.Message, cause error) error {
	headers := make([]kafka.Header, 0, len(m.Headers)+2)
	headers = append(headers, m.Headers...)
	headers = append(headers,
		kafka.Header{Key: "error", Value: []byte(cause.Error())},
		kafka.Header{Key: "source_topic", Value: []byte(m.Topic)},
	)

	err := c.dlqWriter.WriteMessages(ctx, kafka.Message{
		Key:     m.Key,
		Value:   m.Value,
		Headers: headers,
	})
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			c.logger.Info("контекст отменён, выйдем")
		case errors.Is(err, context.DeadlineExceeded):
			c.logger.Warn("таймаут при записи в DLQ")
		default:
			c.logger.Error("не удалось отправить в DLQ", zap.Error(err))
		}
	}
	return err
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("Ошибка закрытия reader", zap.Error(err))
	}
	if err := c.dlqWriter.Close(); err != nil {
		c.logger.Warn("Ошибка закрытия DLQ writer", zap.Error(err))
	}
}
