// Package orders оформление заказов: проверка, фиксация цен, сохранение.
package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodcart/internal/interfaces"
	"foodcart/internal/metrics"
	"foodcart/internal/validation"
	"foodcart/models"

	"go.uber.org/zap"
)

// ErrUnknownProduct в заказе есть товар, которого нет в каталоге
var ErrUnknownProduct = errors.New("неизвестный товар")

// Источники заказов для метрик
const (
	SourceAPI   = "api"
	SourceKafka = "kafka"
)

type Service struct {
	db     interfaces.Database
	logger *zap.Logger
	now    func() time.Time
}

func NewService(db interfaces.Database, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger, now: time.Now}
}

// Register проверяет заказ, фиксирует текущие цены товаров и сохраняет его
// в статусе NEW. Переданный заказ дополняется ID, ценами и временем создания.
func (s *Service) Register(ctx context.Context, source string, order *models.Order) error {
	if err := validation.ValidateOrder(order); err != nil {
		metrics.OrdersRegistered.WithLabelValues(source, "validation_error").Inc()
		return err
	}

	products, err := s.db.GetProducts(ctx, order.ProductIDs())
	if err != nil {
		metrics.OrdersRegistered.WithLabelValues(source, "error").Inc()
		return fmt.Errorf("загрузка товаров заказа: %w", err)
	}

	for i := range order.Items {
		product, ok := products[order.Items[i].ProductID]
		if !ok {
			metrics.OrdersRegistered.WithLabelValues(source, "validation_error").Inc()
			return fmt.Errorf("%w: %d", ErrUnknownProduct, order.Items[i].ProductID)
		}
		order.Items[i].Price = product.Price
	}

	order.Status = models.StatusNew
	order.RestaurantID = nil
	order.ProcessedAt = nil
	order.FinishedAt = nil
	order.CreatedAt = s.now().UTC()
	if order.Payment == "" {
		order.Payment = models.PaymentCash
	}

	if err := s.db.CreateOrder(ctx, order); err != nil {
		metrics.OrdersRegistered.WithLabelValues(source, "error").Inc()
		return fmt.Errorf("сохранение заказа: %w", err)
	}

	metrics.OrdersRegistered.WithLabelValues(source, "success").Inc()
	s.logger.Info("заказ зарегистрирован",
		zap.Int64("order_id", order.ID),
		zap.String("source", source),
		zap.Float64("cost", order.Cost()))
	return nil
}
