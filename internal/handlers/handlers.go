package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"foodcart/internal/db"
	"foodcart/internal/dispatch"
	"foodcart/internal/interfaces"
	"foodcart/internal/menu"
	"foodcart/internal/orders"
	"foodcart/internal/validation"
	"foodcart/models"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// OrderRegistrar оформляет заказы, реализуется orders.Service
type OrderRegistrar interface {
	Register(ctx context.Context, source string, order *models.Order) error
}

// CandidatePlanner подбирает рестораны, реализуется dispatch.Planner
type CandidatePlanner interface {
	Plan(ctx context.Context, snapshot dispatch.Snapshot) []models.OrderCandidates
}

type Handler struct {
	DB      interfaces.Database
	Orders  OrderRegistrar
	Planner CandidatePlanner
	Tracer  trace.Tracer
	Logger  *zap.Logger
}

func NewHandler(db interfaces.Database, registrar OrderRegistrar, planner CandidatePlanner, tracer trace.Tracer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		DB:      db,
		Orders:  registrar,
		Planner: planner,
		Tracer:  tracer,
		Logger:  logger,
	}
}

// Routes регистрирует маршруты API и менеджерской панели
func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/api/order", h.CreateOrderHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/order/{id:[0-9]+}", h.OrderHandler).Methods(http.MethodGet)
	r.HandleFunc("/api/products", h.ProductsHandler).Methods(http.MethodGet)
	r.HandleFunc("/manager/orders", h.ManagerOrdersHandler).Methods(http.MethodGet)
	r.HandleFunc("/manager/products", h.ManagerProductsHandler).Methods(http.MethodGet)
	r.HandleFunc("/manager/restaurants", h.ManagerRestaurantsHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
}

func (h *Handler) OrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "http.get_order")
	defer span.End()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.fail(w, span, http.StatusBadRequest, "Плохой запрос", err)
		return
	}
	span.SetAttributes(attribute.Int64("order.id", id))

	order, err := h.DB.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrOrderNotFound) {
			h.fail(w, span, http.StatusNotFound, "заказ не найден", err)
		} else {
			h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		}
		return
	}

	h.writeJSON(w, span, http.StatusOK, order)
	span.SetStatus(codes.Ok, "заказ получен")
}

func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "http.add_order")
	defer span.End()

	var order models.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.fail(w, span, http.StatusBadRequest, "Плохой JSON", err)
		return
	}

	if err := h.Orders.Register(ctx, orders.SourceAPI, &order); err != nil {
		switch {
		case errors.Is(err, validation.ErrInvalidOrder), errors.Is(err, orders.ErrUnknownProduct):
			h.fail(w, span, http.StatusUnprocessableEntity, err.Error(), err)
		default:
			h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		}
		return
	}

	span.SetAttributes(attribute.Int64("order.id", order.ID))
	h.writeJSON(w, span, http.StatusCreated, order)
	span.SetStatus(codes.Ok, "заказ создан")
}

// ProductsHandler товары, которые можно заказать хотя бы в одном ресторане
func (h *Handler) ProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "http.list_products")
	defer span.End()

	products, err := h.DB.ListAvailableProducts(ctx)
	if err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	span.SetAttributes(attribute.Int("products.count", len(products)))
	h.writeJSON(w, span, http.StatusOK, products)
}

// ManagerOrdersHandler активные заказы с подобранными ресторанами
func (h *Handler) ManagerOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "http.manager_orders")
	defer span.End()

	var snapshot dispatch.Snapshot
	var err error
	if snapshot.Orders, err = h.DB.ListActiveOrders(ctx); err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}
	if snapshot.Restaurants, err = h.DB.ListRestaurants(ctx); err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}
	if snapshot.MenuItems, err = h.DB.ListMenuItems(ctx); err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}

	h.writeJSON(w, span, http.StatusOK, h.Planner.Plan(ctx, snapshot))
}

// RestaurantAvailability ячейка матрицы доступности
type RestaurantAvailability struct {
	RestaurantID int64  `json:"restaurant_id"`
	Name         string `json:"name"`
	Available    bool   `json:"available"`
}

type ProductAvailability struct {
	Product     models.Product           `json:"product"`
	Restaurants []RestaurantAvailability `json:"restaurants"`
}

// ManagerProductsHandler матрица товар × ресторан
func (h *Handler) ManagerProductsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "http.manager_products")
	defer span.End()

	products, err := h.DB.ListProducts(ctx)
	if err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}
	restaurants, err := h.DB.ListRestaurants(ctx)
	if err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}
	items, err := h.DB.ListMenuItems(ctx)
	if err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}

	idx := menu.BuildIndex(items)
	matrix := make([]ProductAvailability, 0, len(products))
	for _, product := range products {
		row := ProductAvailability{
			Product:     product,
			Restaurants: make([]RestaurantAvailability, 0, len(restaurants)),
		}
		for _, restaurant := range restaurants {
			row.Restaurants = append(row.Restaurants, RestaurantAvailability{
				RestaurantID: restaurant.ID,
				Name:         restaurant.Name,
				Available:    idx.Available(restaurant.ID, product.ID),
			})
		}
		matrix = append(matrix, row)
	}

	h.writeJSON(w, span, http.StatusOK, matrix)
}

func (h *Handler) ManagerRestaurantsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.Tracer.Start(r.Context(), "http.manager_restaurants")
	defer span.End()

	restaurants, err := h.DB.ListRestaurants(ctx)
	if err != nil {
		h.fail(w, span, http.StatusInternalServerError, "внутренняя ошибка сервера", err)
		return
	}
	if restaurants == nil {
		restaurants = []models.Restaurant{}
	}

	span.SetAttributes(attribute.Int("restaurants.count", len(restaurants)))
	h.writeJSON(w, span, http.StatusOK, restaurants)
}

func (h *Handler) fail(w http.ResponseWriter, span trace.Span, status int, msg string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(msg, zap.Error(err))
	}
	http.Error(w, msg, status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, span trace.Span, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		span.RecordError(err)
		h.Logger.Warn("ошибка распарсивания JSON", zap.Error(err))
	}
}
