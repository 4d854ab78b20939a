package models

import "time"

// Resource categories.
const (
	CategoryRoom      = "room"
	CategoryVehicle   = "vehicle"
	CategoryEquipment = "equipment"
)

// Resource is a rentable service: a room, vehicle or piece of equipment.
// Granularity decides which availability algorithm applies to it.
type Resource struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Category     string      `json:"category"`
	Granularity  Granularity `json:"granularity"`
	Description  string      `json:"description,omitempty"`
	PricePerUnit int64       `json:"price_per_unit"` // per night or per hour
	IsActive     bool        `json:"is_active"`
	SortOrder    int64       `json:"sort_order"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
