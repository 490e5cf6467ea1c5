package models

import (
	"time"

	"github.com/google/uuid"
)

// CourierStatus представляет статус курьера
type CourierStatus string

const (
	CourierStatusActive   CourierStatus = "active"
	CourierStatusInactive CourierStatus = "inactive"
	CourierStatusBusy     CourierStatus = "busy"
)

// Courier представляет курьера в системе
type Courier struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	Name            string        `json:"name" db:"name"`
	Email           string        `json:"email" db:"email"`
	Phone           *string       `json:"phone" db:"phone"`
	VehicleType     *string       `json:"vehicle_type" db:"vehicle_type"`
	VehiclePlate    *string       `json:"vehicle_plate" db:"vehicle_plate"`
	Status          CourierStatus `json:"status" db:"status"`
	IsAvailable     bool          `json:"is_available" db:"is_available"`
	Rating          float64       `json:"rating" db:"rating"`
	TotalDeliveries int           `json:"total_deliveries" db:"total_deliveries"`
	UpdatedAt       time.Time     `json:"updated_at" db:"updated_at"`
}

// SetAvailabilityRequest представляет запрос на переключение доступности
type SetAvailabilityRequest struct {
	IsAvailable *bool `json:"is_available"`
}

// AssignPickupRequest представляет запрос диспетчера на назначение заявки
type AssignPickupRequest struct {
	PickupID uuid.UUID `json:"pickup_id"`
}
