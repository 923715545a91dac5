package models

type Restaurant struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Address      string `json:"address"`
	ContactPhone string `json:"contact_phone,omitempty"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Category      *Category `json:"category"`
	Price         float64   `json:"price"`
	Image         string    `json:"image,omitempty"`
	SpecialStatus bool      `json:"special_status"`
	Description   string    `json:"description,omitempty"`
}

// MenuItem связь ресторан-товар; в индекс попадают только availability=true
type MenuItem struct {
	RestaurantID int64 `json:"restaurant_id"`
	ProductID    int64 `json:"product_id"`
	Availability bool  `json:"availability"`
}
