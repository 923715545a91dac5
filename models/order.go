package models

import "time"

type OrderStatus string

const (
	StatusNew        OrderStatus = "NEW"
	StatusPicking    OrderStatus = "PICKING"
	StatusDelivering OrderStatus = "DELIVERING"
	StatusClosed     OrderStatus = "CLOSED"
	StatusCanceled   OrderStatus = "CANCELED"
)

// ActiveStatuses заказы в этих статусах ещё ждут выполнения
var ActiveStatuses = []OrderStatus{StatusNew, StatusPicking, StatusDelivering}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentCashless PaymentMethod = "CASHLESS"
)

type Order struct {
	ID           int64         `json:"id"`
	Address      string        `json:"address" validate:"required,max=200"`
	Firstname    string        `json:"firstname" validate:"required,max=30"`
	Lastname     string        `json:"lastname" validate:"required,max=50"`
	Phonenumber  string        `json:"phonenumber" validate:"required,phone"`
	Comment      string        `json:"comment,omitempty"`
	Status       OrderStatus   `json:"status,omitempty"`
	Payment      PaymentMethod `json:"payment,omitempty" validate:"omitempty,oneof=CASH CASHLESS"`
	RestaurantID *int64        `json:"restaurant_id,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ProcessedAt  *time.Time    `json:"processed_at,omitempty"`
	FinishedAt   *time.Time    `json:"finished_at,omitempty"`
	Items        []OrderItem   `json:"products" validate:"required,min=1,dive"`
}

// OrderItem позиция корзины, цена фиксируется в момент оформления
type OrderItem struct {
	ProductID int64   `json:"product" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0,lte=100"`
	Price     float64 `json:"price,omitempty" validate:"gte=0"`
}

// Cost сумма заказа по зафиксированным ценам
func (o *Order) Cost() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// ProductIDs уникальные товары заказа в порядке первого появления
func (o *Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Items))
	ids := make([]int64, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func (o *Order) Active() bool {
	for _, s := range ActiveStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}
