package menu

import (
	"testing"

	"foodcart/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	restaurantA int64 = 1
	restaurantB int64 = 2
	restaurantC int64 = 3

	pizza int64 = 10
	cola  int64 = 20
)

func pizzaColaMenu() []models.MenuItem {
	return []models.MenuItem{
		{RestaurantID: restaurantA, ProductID: pizza, Availability: true},
		{RestaurantID: restaurantA, ProductID: cola, Availability: true},
		{RestaurantID: restaurantB, ProductID: pizza, Availability: true},
		{RestaurantID: restaurantB, ProductID: cola, Availability: false},
		{RestaurantID: restaurantC, ProductID: cola, Availability: true},
	}
}

func orderWith(products ...int64) *models.Order {
	order := &models.Order{ID: 1, Address: "Main St 1"}
	for _, p := range products {
		order.Items = append(order.Items, models.OrderItem{ProductID: p, Quantity: 1})
	}
	return order
}

func TestBuildIndex_SkipsUnavailable(t *testing.T) {
	idx := BuildIndex(pizzaColaMenu())

	assert.Equal(t, []int64{pizza, cola}, idx.Products(restaurantA))
	assert.Equal(t, []int64{pizza}, idx.Products(restaurantB))
	assert.Equal(t, []int64{cola}, idx.Products(restaurantC))
	assert.False(t, idx.Available(restaurantB, cola))
	assert.Empty(t, idx.Products(42))
}

func TestBuildIndex_LastWriteWins(t *testing.T) {
	idx := BuildIndex([]models.MenuItem{
		{RestaurantID: restaurantA, ProductID: pizza, Availability: true},
		{RestaurantID: restaurantA, ProductID: pizza, Availability: false},
		{RestaurantID: restaurantB, ProductID: pizza, Availability: false},
		{RestaurantID: restaurantB, ProductID: pizza, Availability: true},
	})

	assert.False(t, idx.Available(restaurantA, pizza))
	assert.True(t, idx.Available(restaurantB, pizza))
	assert.Equal(t, []int64{restaurantB}, idx.Restaurants(pizza))
}

func TestMatch_PizzaColaScenario(t *testing.T) {
	idx := BuildIndex(pizzaColaMenu())

	assert.Equal(t, []int64{restaurantA}, idx.Match(orderWith(pizza, cola)))
	assert.Equal(t, []int64{restaurantA, restaurantB}, idx.Match(orderWith(pizza)))
	assert.Equal(t, []int64{restaurantA, restaurantC}, idx.Match(orderWith(cola)))
}

func TestMatch_DuplicateItemsIgnored(t *testing.T) {
	idx := BuildIndex(pizzaColaMenu())

	assert.Equal(t, []int64{restaurantA}, idx.Match(orderWith(pizza, cola, pizza, cola)))
}

func TestMatch_EmptyOrder(t *testing.T) {
	idx := BuildIndex(pizzaColaMenu())

	result := idx.Match(orderWith())
	require.NotNil(t, result)
	assert.Empty(t, result)
}

func TestMatch_NoRestaurantCarriesEverything(t *testing.T) {
	idx := BuildIndex(pizzaColaMenu())

	assert.Empty(t, idx.Match(orderWith(pizza, cola, 99)))
}

func TestMatch_AssignedRestaurantBypassesMatching(t *testing.T) {
	idx := BuildIndex(pizzaColaMenu())
	order := orderWith(pizza)
	assigned := restaurantB
	order.RestaurantID = &assigned

	result := idx.Match(order)
	require.NotNil(t, result)
	assert.Empty(t, result)
}

// на случайном меню сверяем Match с пересечением множеств в лоб
func TestMatch_EqualsIntersection(t *testing.T) {
	faker := gofakeit.New(7)

	for run := 0; run < 50; run++ {
		var items []models.MenuItem
		for i := 0; i < faker.Number(0, 60); i++ {
			items = append(items, models.MenuItem{
				RestaurantID: int64(faker.Number(1, 6)),
				ProductID:    int64(faker.Number(1, 8)),
				Availability: faker.Bool(),
			})
		}
		idx := BuildIndex(items)

		var products []int64
		for i := 0; i < faker.Number(1, 4); i++ {
			products = append(products, int64(faker.Number(1, 8)))
		}

		expected := []int64{}
		for r := int64(1); r <= 6; r++ {
			all := true
			for _, p := range products {
				if !idx.Available(r, p) {
					all = false
					break
				}
			}
			if all {
				expected = append(expected, r)
			}
		}

		assert.Equal(t, expected, idx.Match(orderWith(products...)), "run %d", run)
	}
}
