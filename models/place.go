package models

import "time"

type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place запись кэша геокодера. Coordinates == nil при Failed == true.
type Place struct {
	Address     string       `json:"address"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Failed      bool         `json:"failed"`
}

// Candidate ресторан, способный собрать заказ целиком
type Candidate struct {
	RestaurantID int64   `json:"restaurant_id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	DistanceKm   float64 `json:"distance_km"`
	Distance     string  `json:"distance"`
}

type OrderCandidates struct {
	Order         Order       `json:"order"`
	Cost          float64     `json:"cost"`
	Candidates    []Candidate `json:"candidates"`
	DistanceError bool        `json:"distance_error"`
}
