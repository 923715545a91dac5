package ranking

import (
	"context"
	"math"
	"sort"
	"strconv"

	"foodcart/models"

	"github.com/golang/geo/s2"
)

// EarthRadiusKm средний радиус Земли
const EarthRadiusKm = 6371.0088

// Resolver источник координат: places.Cache или уже разрешённые places.Resolutions
type Resolver interface {
	Resolve(ctx context.Context, address string) (models.Coordinates, bool)
}

// DistanceKm расстояние по дуге большого круга в километрах
func DistanceKm(a, b models.Coordinates) float64 {
	angle := s2.LatLngFromDegrees(a.Lat, a.Lon).Distance(s2.LatLngFromDegrees(b.Lat, b.Lon))
	return angle.Radians() * EarthRadiusKm
}

// FormatDistance километры с точностью до метра
func FormatDistance(km float64) string {
	return strconv.FormatFloat(km, 'f', 3, 64)
}

// Rank сортирует рестораны по удалённости от адреса заказа.
// Рестораны без координат в список не попадают, но выставляют флаг ошибки.
// Если не определён адрес заказа, список пуст и флаг выставлен.
func Rank(ctx context.Context, resolver Resolver, orderAddress string, restaurants []models.Restaurant) ([]models.Candidate, bool) {
	candidates := make([]models.Candidate, 0, len(restaurants))
	if len(restaurants) == 0 {
		return candidates, false
	}

	orderCoords, ok := resolver.Resolve(ctx, orderAddress)
	if !ok {
		return candidates, true
	}

	distanceError := false
	seen := make(map[int64]struct{}, len(restaurants))
	for _, restaurant := range restaurants {
		if _, dup := seen[restaurant.ID]; dup {
			continue
		}
		seen[restaurant.ID] = struct{}{}

		coords, ok := resolver.Resolve(ctx, restaurant.Address)
		if !ok {
			distanceError = true
			continue
		}

		km := math.Round(DistanceKm(coords, orderCoords)*1000) / 1000
		candidates = append(candidates, models.Candidate{
			RestaurantID: restaurant.ID,
			Name:         restaurant.Name,
			Address:      restaurant.Address,
			DistanceKm:   km,
			Distance:     FormatDistance(km),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].RestaurantID < candidates[j].RestaurantID
	})
	return candidates, distanceError
}
