package dispatch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"foodcart/internal/geocoder"
	"foodcart/internal/places"
	"foodcart/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

const (
	pizza int64 = 10
	cola  int64 = 20
)

// fakeYandex отвечает как геокодер и считает запросы по адресам
type fakeYandex struct {
	mu     sync.Mutex
	calls  map[string]int
	points map[string]string
}

func (f *fakeYandex) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("geocode")
	f.mu.Lock()
	f.calls[address]++
	pos, ok := f.points[address]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	fmt.Fprintf(w, `{"response":{"GeoObjectCollection":{"featureMember":[{"GeoObject":{"Point":{"pos":%q}}}]}}}`, pos)
}

func (f *fakeYandex) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newPlanner(t *testing.T) (*Planner, *fakeYandex) {
	t.Helper()
	fake := &fakeYandex{
		calls: make(map[string]int),
		points: map[string]string{
			"Main St 1": "37.0 55.0",
			"Main St 2": "37.0 55.1",
			"Main St 3": "37.0 55.3",
		},
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client := geocoder.NewClient(srv.URL, "test-key", time.Second)
	cache := places.NewCache(places.NewMemoryStore(100), client, 24*time.Hour, 4, nil)
	return NewPlanner(cache, otel.Tracer("test"), nil), fake
}

func order(id int64, address string, products ...int64) models.Order {
	o := models.Order{ID: id, Address: address, Status: models.StatusNew}
	for _, p := range products {
		o.Items = append(o.Items, models.OrderItem{ProductID: p, Quantity: 2, Price: 100})
	}
	return o
}

func snapshot() Snapshot {
	assigned := int64(1)
	withRestaurant := order(2, "Main St 1", pizza)
	withRestaurant.RestaurantID = &assigned

	return Snapshot{
		Orders: []models.Order{
			order(1, "Main St 1", pizza, cola),
			withRestaurant,
			order(3, "Main St 1", cola),
			order(4, "Elsewhere 5", 99),
		},
		Restaurants: []models.Restaurant{
			{ID: 1, Name: "A", Address: "Main St 2"},
			{ID: 2, Name: "B", Address: "Unknown Address"},
			{ID: 3, Name: "C", Address: "Main St 3"},
		},
		MenuItems: []models.MenuItem{
			{RestaurantID: 1, ProductID: pizza, Availability: true},
			{RestaurantID: 1, ProductID: cola, Availability: true},
			{RestaurantID: 2, ProductID: pizza, Availability: true},
			{RestaurantID: 2, ProductID: cola, Availability: true},
			{RestaurantID: 3, ProductID: cola, Availability: true},
			{RestaurantID: 3, ProductID: pizza, Availability: false},
		},
	}
}

func TestPlan_EndToEnd(t *testing.T) {
	planner, fake := newPlanner(t)

	results := planner.Plan(context.Background(), snapshot())
	require.Len(t, results, 4)

	// заказ 1: A и B умеют пиццу и колу, у B адрес не геокодируется
	first := results[0]
	assert.Equal(t, int64(1), first.Order.ID)
	assert.True(t, first.DistanceError)
	require.Len(t, first.Candidates, 1)
	assert.Equal(t, int64(1), first.Candidates[0].RestaurantID)
	assert.Equal(t, "11.120", first.Candidates[0].Distance)
	assert.Equal(t, 400.0, first.Cost)

	// заказ 2: ресторан уже назначен
	assert.Empty(t, results[1].Candidates)
	assert.False(t, results[1].DistanceError)

	// заказ 3: колу продают все трое, B исключён
	third := results[2]
	assert.True(t, third.DistanceError)
	require.Len(t, third.Candidates, 2)
	assert.Equal(t, int64(1), third.Candidates[0].RestaurantID)
	assert.Equal(t, int64(3), third.Candidates[1].RestaurantID)

	// заказ 4: никто не продаёт товар, это не ошибка
	assert.NotNil(t, results[3].Candidates)
	assert.Empty(t, results[3].Candidates)
	assert.False(t, results[3].DistanceError)

	// каждый нужный адрес запрошен ровно один раз, адрес заказа 4 не нужен
	assert.Equal(t, map[string]int{
		"Main St 1":       1,
		"Main St 2":       1,
		"Main St 3":       1,
		"Unknown Address": 1,
	}, fake.calls)
}

func TestPlan_RepeatWithinWindowHitsCache(t *testing.T) {
	planner, fake := newPlanner(t)

	planner.Plan(context.Background(), snapshot())
	before := fake.total()
	results := planner.Plan(context.Background(), snapshot())

	assert.Equal(t, before, fake.total())
	assert.True(t, results[0].DistanceError)
	assert.Len(t, results[2].Candidates, 2)
}

func TestPlan_EmptySnapshot(t *testing.T) {
	planner, fake := newPlanner(t)

	results := planner.Plan(context.Background(), Snapshot{})

	assert.Empty(t, results)
	assert.Zero(t, fake.total())
}

func TestCollectAddresses(t *testing.T) {
	orders := []models.Order{
		{ID: 1, Address: "home"},
		{ID: 2, Address: "home"},
		{ID: 3, Address: "office"},
		{ID: 4, Address: "dacha"},
	}
	matched := [][]models.Restaurant{
		{{ID: 1, Address: "r1"}, {ID: 2, Address: "r2"}},
		{{ID: 2, Address: "r2"}},
		{{ID: 1, Address: "r1"}, {ID: 3, Address: "home"}},
		nil,
	}

	assert.Equal(t, []string{"home", "r1", "r2", "office"}, CollectAddresses(orders, matched))
}
