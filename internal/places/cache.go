package places

import (
	"context"
	"sync"
	"time"

	"foodcart/internal/interfaces"
	"foodcart/internal/metrics"
	"foodcart/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultFreshnessWindow = 24 * time.Hour
	DefaultConcurrency     = 8
)

// Cache кэш координат поверх PlaceStore и геокодера.
// Неудачи геокодера запоминаются на тот же срок, что и удачные ответы.
type Cache struct {
	store       interfaces.PlaceStore
	geocoder    interfaces.Geocoder
	freshness   time.Duration
	concurrency int
	logger      *zap.Logger
	now         func() time.Time

	group singleflight.Group
}

// NewCache нулевые freshness и concurrency заменяются значениями по умолчанию
func NewCache(store interfaces.PlaceStore, geocoder interfaces.Geocoder, freshness time.Duration, concurrency int, logger *zap.Logger) *Cache {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:       store,
		geocoder:    geocoder,
		freshness:   freshness,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// Resolve координаты адреса; false если адрес не удалось геокодировать.
// Одновременные вызовы для одного адреса делят один запрос к провайдеру.
// Общий запрос не зависит от отмены ctx отдельного вызывающего,
// его ограничивает таймаут геокодера.
func (c *Cache) Resolve(ctx context.Context, address string) (models.Coordinates, bool) {
	if address == "" || ctx.Err() != nil {
		return models.Coordinates{}, false
	}
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(address, func() (interface{}, error) {
		return c.resolve(shared, address), nil
	})

	select {
	case <-ctx.Done():
		return models.Coordinates{}, false
	case res := <-ch:
		place := res.Val.(*models.Place)
		if place.Failed || place.Coordinates == nil {
			return models.Coordinates{}, false
		}
		return *place.Coordinates, true
	}
}

// ResolveAll разрешает уникальные адреса параллельно, не больше concurrency запросов сразу
func (c *Cache) ResolveAll(ctx context.Context, addresses []string) Resolutions {
	unique := Dedup(addresses)
	resolved := make(Resolutions, len(unique))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, address := range unique {
		address := address
		g.Go(func() error {
			coords, ok := c.Resolve(gctx, address)
			if ok {
				mu.Lock()
				resolved[address] = coords
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return resolved
}

func (c *Cache) resolve(ctx context.Context, address string) *models.Place {
	now := c.now()

	place, err := c.store.GetPlace(ctx, address)
	if err != nil {
		metrics.PlaceLookups.WithLabelValues("store_error").Inc()
		c.logger.Warn("чтение кэша координат не удалось, идём в геокодер",
			zap.String("address", address), zap.Error(err))
		place = nil
	}

	switch {
	case place == nil:
		metrics.PlaceLookups.WithLabelValues("miss").Inc()
	case c.stale(place, now):
		metrics.PlaceLookups.WithLabelValues("stale").Inc()
	default:
		metrics.PlaceLookups.WithLabelValues("hit").Inc()
		return place
	}

	fresh := &models.Place{Address: address, UpdatedAt: now}
	coords, err := c.geocoder.Fetch(ctx, address)
	if err != nil {
		c.logger.Warn("не удалось определить координаты",
			zap.String("address", address), zap.Error(err))
		fresh.Failed = true
	} else {
		fresh.Coordinates = &coords
	}

	if err := c.store.SavePlace(ctx, fresh); err != nil {
		c.logger.Error("не удалось сохранить координаты в кэш",
			zap.String("address", address), zap.Error(err))
	}
	return fresh
}

func (c *Cache) stale(place *models.Place, now time.Time) bool {
	return now.Sub(place.UpdatedAt) >= c.freshness
}

// Resolutions результат пакетного разрешения: только адреса с координатами
type Resolutions map[string]models.Coordinates

func (r Resolutions) Resolve(_ context.Context, address string) (models.Coordinates, bool) {
	coords, ok := r[address]
	return coords, ok
}

// Dedup уникальные непустые адреса в порядке первого появления
func Dedup(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	unique := make([]string, 0, len(addresses))
	for _, address := range addresses {
		if address == "" {
			continue
		}
		if _, ok := seen[address]; ok {
			continue
		}
		seen[address] = struct{}{}
		unique = append(unique, address)
	}
	return unique
}
