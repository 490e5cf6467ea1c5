package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupStatus представляет статус заявки на вывоз
type PickupStatus string

const (
	PickupStatusPending   PickupStatus = "pending"
	PickupStatusOnTheWay  PickupStatus = "on_the_way"
	PickupStatusDone      PickupStatus = "done"
	PickupStatusCancelled PickupStatus = "cancelled"
)

// pickupTransitions - допустимые переходы. Статусы без исходящих
// переходов терминальные.
var pickupTransitions = map[PickupStatus][]PickupStatus{
	PickupStatusPending:  {PickupStatusOnTheWay, PickupStatusCancelled},
	PickupStatusOnTheWay: {PickupStatusDone},
}

// CourierQueueOrder задает порядок статусов в списке заявок курьера
var CourierQueueOrder = []PickupStatus{
	PickupStatusOnTheWay,
	PickupStatusPending,
	PickupStatusDone,
	PickupStatusCancelled,
}

// ActivePickupStatuses - статусы, при которых заявка занимает курьера
var ActivePickupStatuses = []PickupStatus{PickupStatusPending, PickupStatusOnTheWay}

// Valid проверяет, что статус известен
func (s PickupStatus) Valid() bool {
	switch s {
	case PickupStatusPending, PickupStatusOnTheWay, PickupStatusDone, PickupStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo проверяет переход по таблице pickupTransitions
func (s PickupStatus) CanTransitionTo(next PickupStatus) bool {
	for _, allowed := range pickupTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal сообщает, что из статуса нет переходов
func (s PickupStatus) IsTerminal() bool {
	return len(pickupTransitions[s]) == 0
}

// PickupRequest представляет заявку на вывоз отходов
type PickupRequest struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	UserID             uuid.UUID      `json:"user_id" db:"user_id"`
	CourierID          *uuid.UUID     `json:"courier_id,omitempty" db:"courier_id"`
	Status             PickupStatus   `json:"status" db:"status"`
	Address            string         `json:"address" db:"address"`
	Latitude           *float64       `json:"latitude" db:"latitude"`
	Longitude          *float64       `json:"longitude" db:"longitude"`
	PickupDate         string         `json:"pickup_date" db:"pickup_date"`
	PickupTime         string         `json:"pickup_time" db:"pickup_time"`
	Notes              *string        `json:"notes" db:"notes"`
	PointsAwarded      int            `json:"points_awarded" db:"points_awarded"`
	EstimatedWeightKg  *float64       `json:"estimated_weight_kg" db:"estimated_weight_kg"`
	CompletedAt        *time.Time     `json:"completed_at" db:"completed_at"`
	CancelledAt        *time.Time     `json:"cancelled_at" db:"cancelled_at"`
	CancellationReason *string        `json:"cancellation_reason" db:"cancellation_reason"`
	CreatedAt          time.Time      `json:"created_at" db:"created_at"`
	TrashTypes         []PickupItem   `json:"trash_types"`
	Customer           *CustomerBrief `json:"customer,omitempty"`
}

// PickupItem представляет одну категорию отходов в заявке
type PickupItem struct {
	ID                uuid.UUID `json:"-" db:"id"`
	PickupID          uuid.UUID `json:"-" db:"pickup_request_id"`
	CategoryID        uuid.UUID `json:"id" db:"waste_category_id"`
	Type              string    `json:"type"`
	Label             string    `json:"label"`
	Emoji             string    `json:"emoji"`
	EstimatedWeightKg *float64  `json:"estimated_weight_kg,omitempty" db:"estimated_weight_kg"`
}

// CustomerBrief - данные заказчика, которые видит курьер
type CustomerBrief struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Phone *string   `json:"phone"`
}

// CreatePickupRequest представляет запрос на создание заявки
type CreatePickupRequest struct {
	Address    string   `json:"address"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	PickupDate string   `json:"pickup_date"`
	PickupTime string   `json:"pickup_time"`
	Notes      *string  `json:"notes,omitempty"`
	TrashTypes []string `json:"trash_types"`
}

// UpdatePickupStatusRequest представляет запрос курьера на смену статуса
type UpdatePickupStatusRequest struct {
	Status PickupStatus `json:"status"`
}

// CancelRequest представляет запрос на отмену заявки или заказа
type CancelRequest struct {
	Reason *string `json:"reason,omitempty"`
}
