package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType представляет тип события
type EventType string

const (
	EventTypePickupCreated       EventType = "pickup.created"
	EventTypePickupStatusChanged EventType = "pickup.status_changed"
	EventTypeCourierAssigned     EventType = "courier.assigned"
	EventTypeCourierAvailability EventType = "courier.availability_changed"
	EventTypeOrderCreated        EventType = "order.created"
	EventTypeOrderStatusChanged  EventType = "order.status_changed"
	EventTypeWishlistToggled     EventType = "wishlist.toggled"
)

// Event представляет базовое событие
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// PickupCreatedEvent представляет событие создания заявки
type PickupCreatedEvent struct {
	PickupID   uuid.UUID `json:"pickup_id"`
	UserID     uuid.UUID `json:"user_id"`
	PickupDate string    `json:"pickup_date"`
	TrashTypes []string  `json:"trash_types"`
}

// PickupStatusChangedEvent представляет событие изменения статуса заявки
type PickupStatusChangedEvent struct {
	PickupID      uuid.UUID    `json:"pickup_id"`
	UserID        uuid.UUID    `json:"user_id"`
	OldStatus     PickupStatus `json:"old_status"`
	NewStatus     PickupStatus `json:"new_status"`
	CourierID     *uuid.UUID   `json:"courier_id,omitempty"`
	PointsAwarded int          `json:"points_awarded,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// CourierAssignedEvent представляет событие назначения курьера
type CourierAssignedEvent struct {
	PickupID  uuid.UUID `json:"pickup_id"`
	CourierID uuid.UUID `json:"courier_id"`
	Timestamp time.Time `json:"timestamp"`
}

// CourierAvailabilityEvent представляет событие смены доступности курьера
type CourierAvailabilityEvent struct {
	CourierID   uuid.UUID `json:"courier_id"`
	IsAvailable bool      `json:"is_available"`
	Timestamp   time.Time `json:"timestamp"`
}

// OrderCreatedEvent представляет событие создания заказа
type OrderCreatedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	BuyerID    uuid.UUID `json:"buyer_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	TotalPrice string    `json:"total_price"`
	Quantity   int       `json:"quantity"`
}

// OrderStatusChangedEvent представляет событие изменения статуса заказа
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID   `json:"order_id"`
	BuyerID   uuid.UUID   `json:"buyer_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	Timestamp time.Time   `json:"timestamp"`
}

// WishlistToggledEvent представляет событие переключения закладки
type WishlistToggledEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	ListingID  uuid.UUID `json:"listing_id"`
	Wishlisted bool      `json:"wishlisted"`
}
