package dispatch

import (
	"context"
	"time"

	"foodcart/internal/menu"
	"foodcart/internal/metrics"
	"foodcart/internal/places"
	"foodcart/internal/ranking"
	"foodcart/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// BatchResolver разрешает весь набор адресов одного прогона за раз
type BatchResolver interface {
	ResolveAll(ctx context.Context, addresses []string) places.Resolutions
}

// Snapshot данные на момент прогона: заказы, рестораны и меню
type Snapshot struct {
	Orders      []models.Order
	Restaurants []models.Restaurant
	MenuItems   []models.MenuItem
}

type Planner struct {
	resolver BatchResolver
	tracer   trace.Tracer
	logger   *zap.Logger
}

func NewPlanner(resolver BatchResolver, tracer trace.Tracer, logger *zap.Logger) *Planner {
	if tracer == nil {
		tracer = otel.Tracer("dispatch")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{resolver: resolver, tracer: tracer, logger: logger}
}

// Plan подбирает и ранжирует рестораны для каждого заказа снимка.
// Порядок результатов совпадает с порядком заказов.
func (p *Planner) Plan(ctx context.Context, snapshot Snapshot) []models.OrderCandidates {
	ctx, span := p.tracer.Start(ctx, "dispatch.plan")
	defer span.End()
	span.SetAttributes(
		attribute.Int("orders.count", len(snapshot.Orders)),
		attribute.Int("restaurants.count", len(snapshot.Restaurants)),
	)

	start := time.Now()
	idx := menu.BuildIndex(snapshot.MenuItems)
	restaurants := make(map[int64]models.Restaurant, len(snapshot.Restaurants))
	for _, r := range snapshot.Restaurants {
		restaurants[r.ID] = r
	}

	matched := make([][]models.Restaurant, len(snapshot.Orders))
	for i := range snapshot.Orders {
		order := &snapshot.Orders[i]
		for _, id := range idx.Match(order) {
			restaurant, ok := restaurants[id]
			if !ok {
				p.logger.Warn("ресторан из меню не найден в справочнике", zap.Int64("restaurant_id", id))
				continue
			}
			matched[i] = append(matched[i], restaurant)
		}
	}
	metrics.CandidatePlanningTime.WithLabelValues("match").Observe(time.Since(start).Seconds())

	start = time.Now()
	addresses := CollectAddresses(snapshot.Orders, matched)
	span.SetAttributes(attribute.Int("addresses.count", len(addresses)))
	resolved := p.resolver.ResolveAll(ctx, addresses)
	metrics.CandidatePlanningTime.WithLabelValues("resolve").Observe(time.Since(start).Seconds())

	start = time.Now()
	results := make([]models.OrderCandidates, len(snapshot.Orders))
	flagged := 0
	for i, order := range snapshot.Orders {
		candidates, distanceError := ranking.Rank(ctx, resolved, order.Address, matched[i])
		if distanceError {
			flagged++
		}
		results[i] = models.OrderCandidates{
			Order:         order,
			Cost:          order.Cost(),
			Candidates:    candidates,
			DistanceError: distanceError,
		}
	}
	metrics.CandidatePlanningTime.WithLabelValues("rank").Observe(time.Since(start).Seconds())

	span.SetAttributes(attribute.Int("orders.distance_error", flagged))
	p.logger.Info("подбор ресторанов завершён",
		zap.Int("orders", len(snapshot.Orders)),
		zap.Int("addresses", len(addresses)),
		zap.Int("resolved", len(resolved)),
		zap.Int("distance_errors", flagged))
	return results
}

// CollectAddresses уникальные адреса, которые нужно геокодировать за прогон:
// адреса заказов, у которых есть кандидаты, и адреса самих кандидатов.
func CollectAddresses(orders []models.Order, matched [][]models.Restaurant) []string {
	var addresses []string
	for i, order := range orders {
		if i >= len(matched) || len(matched[i]) == 0 {
			continue
		}
		addresses = append(addresses, order.Address)
		for _, restaurant := range matched[i] {
			addresses = append(addresses, restaurant.Address)
		}
	}
	return places.Dedup(addresses)
}
