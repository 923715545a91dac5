package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"foodcart/internal/interfaces"
	"foodcart/internal/metrics"
	"foodcart/models"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "place:"

var _ interfaces.PlaceStore = (*RedisStore)(nil)

// RedisStore хранит записи без TTL: устаревание решает Cache по UpdatedAt
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) GetPlace(ctx context.Context, address string) (*models.Place, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+address).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.PlaceStoreOperations.WithLabelValues("redis", "get", "miss").Inc()
		return nil, nil
	}
	if err != nil {
		metrics.PlaceStoreOperations.WithLabelValues("redis", "get", "error").Inc()
		return nil, fmt.Errorf("redis get %q: %w", address, err)
	}

	var place models.Place
	if err := json.Unmarshal(data, &place); err != nil {
		metrics.PlaceStoreOperations.WithLabelValues("redis", "get", "error").Inc()
		return nil, fmt.Errorf("decode place %q: %w", address, err)
	}
	metrics.PlaceStoreOperations.WithLabelValues("redis", "get", "hit").Inc()
	return &place, nil
}

func (s *RedisStore) SavePlace(ctx context.Context, place *models.Place) error {
	data, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("encode place %q: %w", place.Address, err)
	}
	if err := s.client.Set(ctx, redisKeyPrefix+place.Address, data, 0).Err(); err != nil {
		metrics.PlaceStoreOperations.WithLabelValues("redis", "save", "error").Inc()
		return fmt.Errorf("redis set %q: %w", place.Address, err)
	}
	metrics.PlaceStoreOperations.WithLabelValues("redis", "save", "success").Inc()
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
