package handlers

import (
	"strings"
	"testing"

	"pickup-market/internal/models"
	"pickup-market/internal/services"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validPickup() models.CreatePickupRequest {
	return models.CreatePickupRequest{
		Address:    "  Jl. Merdeka 1  ",
		PickupDate: "2030-01-15",
		PickupTime: "09:30",
		TrashTypes: []string{"plastic", "glass"},
	}
}

func TestValidateCreatePickup(t *testing.T) {
	req := validPickup()
	require.NoError(t, validateCreatePickup(&req, "2030-01-15"))
	assert.Equal(t, "Jl. Merdeka 1", req.Address)

	lat := 91.0
	cases := map[string]func(r *models.CreatePickupRequest){
		"empty address":  func(r *models.CreatePickupRequest) { r.Address = " " },
		"long address":   func(r *models.CreatePickupRequest) { r.Address = strings.Repeat("a", 501) },
		"latitude":       func(r *models.CreatePickupRequest) { r.Latitude = &lat },
		"date format":    func(r *models.CreatePickupRequest) { r.PickupDate = "15/01/2030" },
		"date in past":   func(r *models.CreatePickupRequest) { r.PickupDate = "2030-01-14" },
		"time format":    func(r *models.CreatePickupRequest) { r.PickupTime = "9am" },
		"no trash types": func(r *models.CreatePickupRequest) { r.TrashTypes = nil },
		"unknown slug":   func(r *models.CreatePickupRequest) { r.TrashTypes = []string{"plastic", "metal"} },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validPickup()
			mutate(&req)
			assert.ErrorIs(t, validateCreatePickup(&req, "2030-01-15"), services.ErrValidation)
		})
	}
}

func TestValidateUnknownSlugNamesIt(t *testing.T) {
	req := validPickup()
	req.TrashTypes = []string{"metal", "plastic"}

	err := validateCreatePickup(&req, "2030-01-01")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "metal")
}

func TestValidateCreateListing(t *testing.T) {
	valid := models.CreateListingRequest{
		Name:        "Oak table",
		Description: "Solid oak",
		Price:       decimal.NewFromInt(1000),
		Category:    "furniture",
		Condition:   "good",
	}
	require.NoError(t, validateCreateListing(&valid))

	cheap := valid
	cheap.Price = decimal.NewFromInt(999)
	assert.ErrorIs(t, validateCreateListing(&cheap), services.ErrValidation)

	badCategory := valid
	badCategory.Category = "cars"
	assert.ErrorIs(t, validateCreateListing(&badCategory), services.ErrValidation)

	badCondition := valid
	badCondition.Condition = "broken"
	assert.ErrorIs(t, validateCreateListing(&badCondition), services.ErrValidation)
}

func TestValidateUpdateListing(t *testing.T) {
	assert.ErrorIs(t, validateUpdateListing(&models.UpdateListingRequest{}), services.ErrValidation)

	price := decimal.NewFromInt(500)
	assert.ErrorIs(t, validateUpdateListing(&models.UpdateListingRequest{Price: &price}), services.ErrValidation)

	name := "  Chair "
	req := models.UpdateListingRequest{Name: &name}
	require.NoError(t, validateUpdateListing(&req))
	assert.Equal(t, "Chair", *req.Name)
}

func TestValidatePayOrder(t *testing.T) {
	for _, method := range []string{models.PaymentTransfer, models.PaymentEwallet, models.PaymentCOD} {
		assert.NoError(t, validatePayOrder(&models.PayOrderRequest{PaymentMethod: method}))
	}
	assert.ErrorIs(t, validatePayOrder(&models.PayOrderRequest{PaymentMethod: "crypto"}), services.ErrValidation)

	proof := strings.Repeat("p", 500)
	assert.NoError(t, validatePayOrder(&models.PayOrderRequest{PaymentMethod: models.PaymentTransfer, PaymentProof: &proof}))

	tooLong := strings.Repeat("p", 501)
	err := validatePayOrder(&models.PayOrderRequest{PaymentMethod: models.PaymentTransfer, PaymentProof: &tooLong})
	assert.ErrorIs(t, err, services.ErrValidation)
	assert.Contains(t, err.Error(), "payment_proof")
}

func TestValidateOrderTextLimits(t *testing.T) {
	limit := strings.Repeat("n", 500)
	over := strings.Repeat("n", 501)

	order := models.CreateOrderRequest{ListingID: uuid.New(), ShippingAddress: "Jl. Sudirman 5", Notes: &limit}
	require.NoError(t, validateCreateOrder(&order))
	order.Notes = &over
	assert.ErrorIs(t, validateCreateOrder(&order), services.ErrValidation)

	require.NoError(t, validateCancel(&models.CancelRequest{Reason: &limit}))
	assert.ErrorIs(t, validateCancel(&models.CancelRequest{Reason: &over}), services.ErrValidation)

	// у заявки на вывоз лимит заметок больше
	pickup := validPickup()
	pickupNotes := strings.Repeat("n", 1000)
	pickup.Notes = &pickupNotes
	assert.NoError(t, validateCreatePickup(&pickup, "2030-01-15"))
}
