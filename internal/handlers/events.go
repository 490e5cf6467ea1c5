package handlers

import (
	"pickup-market/internal/models"

	"github.com/google/uuid"
)

// EventPublisher публикует доменные события. Реализуется kafka.Producer.
type EventPublisher interface {
	PublishPickupCreated(pickup *models.PickupRequest) error
	PublishPickupStatusChanged(pickup *models.PickupRequest, oldStatus models.PickupStatus) error
	PublishCourierAssigned(pickupID, courierID uuid.UUID) error
	PublishCourierAvailability(courier *models.Courier) error
	PublishOrderCreated(order *models.Order) error
	PublishOrderStatusChanged(order *models.Order, oldStatus models.OrderStatus) error
	PublishWishlistToggled(userID, listingID uuid.UUID, wishlisted bool) error
}
