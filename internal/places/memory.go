package places

import (
	"context"
	"sync"

	"foodcart/internal/interfaces"
	"foodcart/internal/metrics"
	"foodcart/models"
)

var _ interfaces.PlaceStore = (*MemoryStore)(nil)

// MemoryStore хранит координаты в памяти процесса; при переполнении вытесняет самую старую запись
type MemoryStore struct {
	mu      sync.RWMutex
	places  map[string]models.Place
	maxSize int
}

func NewMemoryStore(maxSize int) *MemoryStore {
	return &MemoryStore{
		places:  make(map[string]models.Place),
		maxSize: maxSize,
	}
}

func (s *MemoryStore) GetPlace(_ context.Context, address string) (*models.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	place, ok := s.places[address]
	if !ok {
		metrics.PlaceStoreOperations.WithLabelValues("memory", "get", "miss").Inc()
		return nil, nil
	}
	metrics.PlaceStoreOperations.WithLabelValues("memory", "get", "hit").Inc()
	return clonePlace(place), nil
}

func (s *MemoryStore) SavePlace(_ context.Context, place *models.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.places[place.Address]; !exists && s.maxSize > 0 && len(s.places) >= s.maxSize {
		s.evictOldest()
	}
	s.places[place.Address] = *clonePlace(*place)

	metrics.PlaceStoreOperations.WithLabelValues("memory", "save", "success").Inc()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.places)
}

func (s *MemoryStore) evictOldest() {
	var oldestKey string
	var oldest *models.Place

	for key, place := range s.places {
		place := place
		if oldest == nil || place.UpdatedAt.Before(oldest.UpdatedAt) {
			oldestKey = key
			oldest = &place
		}
	}

	if oldest != nil {
		delete(s.places, oldestKey)
	}
}

// clonePlace копия без общего указателя на координаты
func clonePlace(place models.Place) *models.Place {
	if place.Coordinates != nil {
		coords := *place.Coordinates
		place.Coordinates = &coords
	}
	return &place
}
