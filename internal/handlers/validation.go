package handlers

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"pickup-market/internal/models"
	"pickup-market/internal/services"

	"github.com/google/uuid"
)

const (
	maxAddressLength     = 500
	maxNotesLength       = 1000
	maxOrderTextLength   = 500
	maxListingNameLength = 255
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", services.ErrValidation, fmt.Sprintf(format, args...))
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// validateCreatePickup проверяет заявку на вывоз. today - дата в формате YYYY-MM-DD.
func validateCreatePickup(req *models.CreatePickupRequest, today string) error {
	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		return invalid("address is required")
	}
	if utf8.RuneCountInString(req.Address) > maxAddressLength {
		return invalid("address must not exceed %d characters", maxAddressLength)
	}

	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return invalid("latitude must be between -90 and 90")
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return invalid("longitude must be between -180 and 180")
	}

	if _, err := time.Parse("2006-01-02", req.PickupDate); err != nil {
		return invalid("pickup_date must be in YYYY-MM-DD format")
	}
	// даты в формате YYYY-MM-DD сравниваются лексикографически
	if req.PickupDate < today {
		return invalid("pickup_date must be today or later")
	}
	if _, err := time.Parse("15:04", req.PickupTime); err != nil {
		return invalid("pickup_time must be in HH:MM format")
	}

	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > maxNotesLength {
		return invalid("notes must not exceed %d characters", maxNotesLength)
	}

	if len(req.TrashTypes) == 0 {
		return invalid("at least one trash type is required")
	}
	var unknown []string
	for _, slug := range req.TrashTypes {
		if !models.IsKnownTrashType(slug) {
			unknown = append(unknown, slug)
		}
	}
	if len(unknown) > 0 {
		return invalid("unknown trash types: %s (allowed: %s)",
			strings.Join(unknown, ", "), strings.Join(models.TrashTypes, ", "))
	}

	return nil
}

func validatePickupStatus(req *models.UpdatePickupStatusRequest) error {
	if req.Status != models.PickupStatusOnTheWay && req.Status != models.PickupStatusDone {
		return invalid("status must be '%s' or '%s'", models.PickupStatusOnTheWay, models.PickupStatusDone)
	}
	return nil
}

func validateCreateListing(req *models.CreateListingRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return invalid("name is required")
	}
	if utf8.RuneCountInString(req.Name) > maxListingNameLength {
		return invalid("name must not exceed %d characters", maxListingNameLength)
	}
	if strings.TrimSpace(req.Description) == "" {
		return invalid("description is required")
	}
	if req.Price.LessThan(models.MinListingPrice) {
		return invalid("price must be at least %s", models.MinListingPrice)
	}
	if !contains(models.ListingCategories, req.Category) {
		return invalid("category must be one of: %s", strings.Join(models.ListingCategories, ", "))
	}
	if !contains(models.ListingConditions, req.Condition) {
		return invalid("condition must be one of: %s", strings.Join(models.ListingConditions, ", "))
	}
	return nil
}

func validateUpdateListing(req *models.UpdateListingRequest) error {
	if req.IsEmpty() {
		return invalid("at least one field must be provided")
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || utf8.RuneCountInString(name) > maxListingNameLength {
			return invalid("name must be 1-%d characters", maxListingNameLength)
		}
		req.Name = &name
	}
	if req.Description != nil && strings.TrimSpace(*req.Description) == "" {
		return invalid("description must not be empty")
	}
	if req.Price != nil && req.Price.LessThan(models.MinListingPrice) {
		return invalid("price must be at least %s", models.MinListingPrice)
	}
	if req.Category != nil && !contains(models.ListingCategories, *req.Category) {
		return invalid("category must be one of: %s", strings.Join(models.ListingCategories, ", "))
	}
	if req.Condition != nil && !contains(models.ListingConditions, *req.Condition) {
		return invalid("condition must be one of: %s", strings.Join(models.ListingConditions, ", "))
	}
	return nil
}

func validateCreateOrder(req *models.CreateOrderRequest) error {
	if req.ListingID == uuid.Nil {
		return invalid("listing_id is required")
	}
	if q := req.QuantityOrDefault(); q < models.MinOrderQuantity || q > models.MaxOrderQuantity {
		return invalid("quantity must be between %d and %d", models.MinOrderQuantity, models.MaxOrderQuantity)
	}
	req.ShippingAddress = strings.TrimSpace(req.ShippingAddress)
	if req.ShippingAddress == "" {
		return invalid("shipping_address is required")
	}
	if utf8.RuneCountInString(req.ShippingAddress) > maxAddressLength {
		return invalid("shipping_address must not exceed %d characters", maxAddressLength)
	}
	if req.Notes != nil && utf8.RuneCountInString(*req.Notes) > maxOrderTextLength {
		return invalid("notes must not exceed %d characters", maxOrderTextLength)
	}
	return nil
}

func validatePayOrder(req *models.PayOrderRequest) error {
	switch req.PaymentMethod {
	case models.PaymentTransfer, models.PaymentEwallet, models.PaymentCOD:
	default:
		return invalid("payment_method must be one of: %s, %s, %s",
			models.PaymentTransfer, models.PaymentEwallet, models.PaymentCOD)
	}
	if req.PaymentProof != nil && utf8.RuneCountInString(*req.PaymentProof) > maxOrderTextLength {
		return invalid("payment_proof must not exceed %d characters", maxOrderTextLength)
	}
	return nil
}

// validateCancel проверяет причину отмены заявки или заказа
func validateCancel(req *models.CancelRequest) error {
	if req.Reason != nil && utf8.RuneCountInString(*req.Reason) > maxOrderTextLength {
		return invalid("reason must not exceed %d characters", maxOrderTextLength)
	}
	return nil
}
