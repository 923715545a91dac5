package interfaces

import (
	"context"

	"foodcart/models"
)

// Database интерфейс для работы с базой данных
type Database interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListActiveOrders(ctx context.Context) ([]models.Order, error)
	ListRestaurants(ctx context.Context) ([]models.Restaurant, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	ListAvailableProducts(ctx context.Context) ([]models.Product, error)
	GetProducts(ctx context.Context, ids []int64) (map[int64]models.Product, error)
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	Close() error
}

// PlaceStore хранилище кэша геокодера. GetPlace возвращает nil, nil при промахе.
type PlaceStore interface {
	GetPlace(ctx context.Context, address string) (*models.Place, error)
	SavePlace(ctx context.Context, place *models.Place) error
}

// Geocoder внешний сервис координат
type Geocoder interface {
	Fetch(ctx context.Context, address string) (models.Coordinates, error)
}
