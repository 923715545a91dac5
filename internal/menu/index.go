package menu

import (
	"sort"

	"foodcart/models"
)

// Index снимок меню на один прогон: ресторан -> доступные товары и обратный индекс.
// После BuildIndex не изменяется, поэтому безопасен для чтения из нескольких горутин.
type Index struct {
	products    map[int64]map[int64]struct{}
	restaurants map[int64]map[int64]struct{}
}

func BuildIndex(items []models.MenuItem) *Index {
	// last-write-wins по паре (ресторан, товар)
	latest := make(map[[2]int64]bool, len(items))
	order := make([][2]int64, 0, len(items))
	for _, item := range items {
		key := [2]int64{item.RestaurantID, item.ProductID}
		if _, ok := latest[key]; !ok {
			order = append(order, key)
		}
		latest[key] = item.Availability
	}

	idx := &Index{
		products:    make(map[int64]map[int64]struct{}),
		restaurants: make(map[int64]map[int64]struct{}),
	}
	for _, key := range order {
		if !latest[key] {
			continue
		}
		restaurantID, productID := key[0], key[1]
		add(idx.products, restaurantID, productID)
		add(idx.restaurants, productID, restaurantID)
	}
	return idx
}

func add(m map[int64]map[int64]struct{}, outer, inner int64) {
	set, ok := m[outer]
	if !ok {
		set = make(map[int64]struct{})
		m[outer] = set
	}
	set[inner] = struct{}{}
}

// Products товары, доступные в ресторане, по возрастанию ID
func (idx *Index) Products(restaurantID int64) []int64 {
	return sortedKeys(idx.products[restaurantID])
}

// Restaurants рестораны, где товар сейчас в наличии, по возрастанию ID
func (idx *Index) Restaurants(productID int64) []int64 {
	return sortedKeys(idx.restaurants[productID])
}

func (idx *Index) Available(restaurantID, productID int64) bool {
	_, ok := idx.products[restaurantID][productID]
	return ok
}

// Match рестораны, у которых есть все товары заказа.
// Для заказа с уже назначенным рестораном и для пустого заказа результат пустой.
func (idx *Index) Match(order *models.Order) []int64 {
	if order.RestaurantID != nil {
		return []int64{}
	}
	productIDs := order.ProductIDs()
	if len(productIDs) == 0 {
		return []int64{}
	}

	// начинаем с самого короткого множества, чтобы пересечение было дешевле
	sort.Slice(productIDs, func(i, j int) bool {
		return len(idx.restaurants[productIDs[i]]) < len(idx.restaurants[productIDs[j]])
	})

	result := make([]int64, 0)
	for restaurantID := range idx.restaurants[productIDs[0]] {
		carriesAll := true
		for _, productID := range productIDs[1:] {
			if _, ok := idx.restaurants[productID][restaurantID]; !ok {
				carriesAll = false
				break
			}
		}
		if carriesAll {
			result = append(result, restaurantID)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func sortedKeys(set map[int64]struct{}) []int64 {
	keys := make([]int64, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
