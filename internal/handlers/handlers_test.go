package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"foodcart/internal/db"
	"foodcart/internal/dispatch"
	"foodcart/internal/mocks"
	"foodcart/internal/orders"
	"foodcart/internal/validation"
	"foodcart/models"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

type registrarFunc func(ctx context.Context, source string, order *models.Order) error

func (f registrarFunc) Register(ctx context.Context, source string, order *models.Order) error {
	return f(ctx, source, order)
}

// recordingPlanner запоминает снимок и возвращает заранее заданный ответ
type recordingPlanner struct {
	snapshot dispatch.Snapshot
	result   []models.OrderCandidates
}

func (p *recordingPlanner) Plan(_ context.Context, snapshot dispatch.Snapshot) []models.OrderCandidates {
	p.snapshot = snapshot
	return p.result
}

func newRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.Routes(r)
	return r
}

func newTestHandler(t *testing.T, registrar OrderRegistrar, planner CandidatePlanner) (*Handler, *mocks.MockDatabase) {
	ctrl := gomock.NewController(t)
	mockDB := mocks.NewMockDatabase(ctrl)
	return NewHandler(mockDB, registrar, planner, otel.Tracer("test"), nil), mockDB
}

func TestOrderHandler_Found(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	expectedOrder := &models.Order{
		ID:      7,
		Address: "Main St 1",
		Status:  models.StatusNew,
		Items:   []models.OrderItem{{ProductID: 10, Quantity: 2, Price: 500}},
	}
	mockDB.EXPECT().GetOrder(gomock.Any(), int64(7)).Return(expectedOrder, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/7", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var response models.Order
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, int64(7), response.ID)
	assert.Equal(t, expectedOrder.Items, response.Items)
}

func TestOrderHandler_OrderNotFound(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	mockDB.EXPECT().GetOrder(gomock.Any(), int64(404)).
		Return(nil, fmt.Errorf("заказ 404: %w", db.ErrOrderNotFound))

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/404", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "заказ не найден")
}

func TestOrderHandler_DatabaseError(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	mockDB.EXPECT().GetOrder(gomock.Any(), int64(1)).Return(nil, errors.New("database connection failed"))

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/1", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database connection failed")
}

func TestOrderHandler_NonNumericID(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/order/abc", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateOrderHandler(t *testing.T) {
	body := `{"address":"Main St 1","firstname":"Иван","lastname":"Петров","phonenumber":"+79991234567",
		"products":[{"product":10,"quantity":2}]}`

	tests := []struct {
		name        string
		body        string
		registerErr error
		wantStatus  int
	}{
		{"created", body, nil, http.StatusCreated},
		{"bad json", `{"address":`, nil, http.StatusBadRequest},
		{"validation", body, fmt.Errorf("%w: Address", validation.ErrInvalidOrder), http.StatusUnprocessableEntity},
		{"unknown product", body, fmt.Errorf("%w: 10", orders.ErrUnknownProduct), http.StatusUnprocessableEntity},
		{"storage", body, errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			registrar := registrarFunc(func(_ context.Context, source string, order *models.Order) error {
				called = true
				assert.Equal(t, orders.SourceAPI, source)
				assert.Equal(t, "Main St 1", order.Address)
				require.Len(t, order.Items, 1)
				if tt.registerErr != nil {
					return tt.registerErr
				}
				order.ID = 99
				order.Status = models.StatusNew
				order.Items[0].Price = 500
				return nil
			})
			handler, _ := newTestHandler(t, registrar, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/order", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			newRouter(handler).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.False(t, called)
			}
			if tt.wantStatus == http.StatusCreated {
				var created models.Order
				require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
				assert.Equal(t, int64(99), created.ID)
				assert.Equal(t, 1000.0, created.Cost())
			}
		})
	}
}

func TestProductsHandler(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	mockDB.EXPECT().ListAvailableProducts(gomock.Any()).Return(nil, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestManagerOrdersHandler(t *testing.T) {
	planner := &recordingPlanner{result: []models.OrderCandidates{{
		Order:         models.Order{ID: 1},
		Cost:          1000,
		Candidates:    []models.Candidate{{RestaurantID: 1, Name: "A", Distance: "11.120", DistanceKm: 11.12}},
		DistanceError: true,
	}}}
	handler, mockDB := newTestHandler(t, nil, planner)

	activeOrders := []models.Order{{ID: 1, Address: "Main St 1"}}
	restaurants := []models.Restaurant{{ID: 1, Name: "A", Address: "Main St 2"}}
	items := []models.MenuItem{{RestaurantID: 1, ProductID: 10, Availability: true}}
	mockDB.EXPECT().ListActiveOrders(gomock.Any()).Return(activeOrders, nil)
	mockDB.EXPECT().ListRestaurants(gomock.Any()).Return(restaurants, nil)
	mockDB.EXPECT().ListMenuItems(gomock.Any()).Return(items, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manager/orders", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, activeOrders, planner.snapshot.Orders)
	assert.Equal(t, restaurants, planner.snapshot.Restaurants)
	assert.Equal(t, items, planner.snapshot.MenuItems)

	var response []models.OrderCandidates
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	require.Len(t, response, 1)
	assert.True(t, response[0].DistanceError)
	assert.Equal(t, "11.120", response[0].Candidates[0].Distance)
}

func TestManagerOrdersHandler_DatabaseError(t *testing.T) {
	planner := &recordingPlanner{}
	handler, mockDB := newTestHandler(t, nil, planner)

	mockDB.EXPECT().ListActiveOrders(gomock.Any()).Return(nil, errors.New("timeout"))

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manager/orders", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestManagerProductsHandler(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	mockDB.EXPECT().ListProducts(gomock.Any()).Return([]models.Product{
		{ID: 10, Name: "Пицца"},
		{ID: 20, Name: "Кола"},
	}, nil)
	mockDB.EXPECT().ListRestaurants(gomock.Any()).Return([]models.Restaurant{
		{ID: 1, Name: "A"},
		{ID: 2, Name: "B"},
	}, nil)
	mockDB.EXPECT().ListMenuItems(gomock.Any()).Return([]models.MenuItem{
		{RestaurantID: 1, ProductID: 10, Availability: true},
		{RestaurantID: 1, ProductID: 20, Availability: true},
		{RestaurantID: 2, ProductID: 20, Availability: false},
	}, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manager/products", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var matrix []ProductAvailability
	require.NoError(t, json.NewDecoder(w.Body).Decode(&matrix))
	require.Len(t, matrix, 2)

	available := func(row ProductAvailability) []bool {
		out := make([]bool, len(row.Restaurants))
		for i, cell := range row.Restaurants {
			out[i] = cell.Available
		}
		return out
	}
	assert.Equal(t, []bool{true, false}, available(matrix[0]))
	assert.Equal(t, []bool{true, false}, available(matrix[1]))
}

func TestManagerRestaurantsHandler(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	restaurants := []models.Restaurant{
		{ID: 1, Name: "A", Address: "Main St 2", ContactPhone: "+79001234567"},
		{ID: 2, Name: "B", Address: "Main St 3"},
	}
	mockDB.EXPECT().ListRestaurants(gomock.Any()).Return(restaurants, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manager/restaurants", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var response []models.Restaurant
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, restaurants, response)
}

func TestManagerRestaurantsHandler_Empty(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	mockDB.EXPECT().ListRestaurants(gomock.Any()).Return(nil, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manager/restaurants", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestManagerRestaurantsHandler_DatabaseError(t *testing.T) {
	handler, mockDB := newTestHandler(t, nil, nil)

	mockDB.EXPECT().ListRestaurants(gomock.Any()).Return(nil, errors.New("timeout"))

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/manager/restaurants", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	handler, _ := newTestHandler(t, nil, nil)

	w := httptest.NewRecorder()
	newRouter(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
