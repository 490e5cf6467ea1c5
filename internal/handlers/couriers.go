package handlers

import (
	"net/http"

	"pickup-market/internal/logger"
	"pickup-market/internal/models"
	"pickup-market/internal/services"

	"github.com/google/uuid"
)

// CourierHandler представляет обработчик запросов курьера и диспетчера
type CourierHandler struct {
	courierService *services.CourierService
	pickupService  *services.PickupService
	events         EventPublisher
	log            *logger.Logger
}

// NewCourierHandler создает новый обработчик курьеров
func NewCourierHandler(courierService *services.CourierService, pickupService *services.PickupService, events EventPublisher, log *logger.Logger) *CourierHandler {
	return &CourierHandler{
		courierService: courierService,
		pickupService:  pickupService,
		events:         events,
		log:            log,
	}
}

// GetProfile возвращает профиль текущего курьера
func (h *CourierHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	courier, err := h.courierService.GetProfile(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get courier profile")
		return
	}

	writeJSONResponse(w, http.StatusOK, courier)
}

// ListPickups возвращает очередь заявок курьера
func (h *CourierHandler) ListPickups(w http.ResponseWriter, r *http.Request) {
	pickups, err := h.courierService.ListAssigned(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list courier pickups")
		return
	}

	writeJSONResponse(w, http.StatusOK, pickups)
}

// SetAvailability вручную переключает доступность курьера
func (h *CourierHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req models.SetAvailabilityRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsAvailable == nil {
		writeServiceError(w, h.log, invalid("is_available is required"), "Failed to update availability")
		return
	}

	courier, err := h.courierService.SetAvailability(r.Context(), subjectID(r), *req.IsAvailable)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update availability")
		return
	}

	if err := h.events.PublishCourierAvailability(courier); err != nil {
		h.log.WithError(err).Error("Failed to publish courier availability event")
	}

	writeJSONResponse(w, http.StatusOK, courier)
}

// UpdatePickupStatus продвигает заявку курьера: on_the_way или done
func (h *CourierHandler) UpdatePickupStatus(w http.ResponseWriter, r *http.Request) {
	pickupID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdatePickupStatusRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePickupStatus(&req); err != nil {
		writeServiceError(w, h.log, err, "Failed to update pickup status")
		return
	}

	courierID := subjectID(r)
	transition, err := h.pickupService.AdvanceStatus(r.Context(), courierID, pickupID, req.Status)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update pickup status")
		return
	}

	if err := h.events.PublishPickupStatusChanged(transition.Pickup, transition.From); err != nil {
		h.log.WithError(err).Error("Failed to publish pickup status changed event")
	}

	writeJSONResponse(w, http.StatusOK, transition.Pickup)
}

// AssignPickup назначает заявку курьеру (диспетчер)
func (h *CourierHandler) AssignPickup(w http.ResponseWriter, r *http.Request) {
	courierID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.AssignPickupRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.PickupID == uuid.Nil {
		writeServiceError(w, h.log, invalid("pickup_id is required"), "Failed to assign pickup")
		return
	}

	if err := h.courierService.AssignPickup(r.Context(), courierID, req.PickupID); err != nil {
		writeServiceError(w, h.log, err, "Failed to assign pickup")
		return
	}

	if err := h.events.PublishCourierAssigned(req.PickupID, courierID); err != nil {
		h.log.WithError(err).Error("Failed to publish courier assigned event")
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message":    "Pickup assigned successfully",
		"courier_id": courierID,
		"pickup_id":  req.PickupID,
	})
}
