package handlers

import (
	"net/http"
	"time"

	"pickup-market/internal/logger"
	"pickup-market/internal/models"
	"pickup-market/internal/services"
)

// PickupHandler представляет обработчик заявок на вывоз
type PickupHandler struct {
	pickupService *services.PickupService
	events        EventPublisher
	log           *logger.Logger
	now           func() time.Time
}

// NewPickupHandler создает новый обработчик заявок
func NewPickupHandler(pickupService *services.PickupService, events EventPublisher, log *logger.Logger) *PickupHandler {
	return &PickupHandler{
		pickupService: pickupService,
		events:        events,
		log:           log,
		now:           time.Now,
	}
}

// CreatePickup создает заявку на вывоз
func (h *PickupHandler) CreatePickup(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePickupRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateCreatePickup(&req, h.now().Format("2006-01-02")); err != nil {
		writeServiceError(w, h.log, err, "Failed to create pickup")
		return
	}

	pickup, err := h.pickupService.Create(r.Context(), subjectID(r), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create pickup")
		return
	}

	if err := h.events.PublishPickupCreated(pickup); err != nil {
		h.log.WithError(err).Error("Failed to publish pickup created event")
	}

	writeJSONResponse(w, http.StatusCreated, pickup)
}

// ListPickups возвращает заявки текущего пользователя
func (h *PickupHandler) ListPickups(w http.ResponseWriter, r *http.Request) {
	pickups, err := h.pickupService.List(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list pickups")
		return
	}

	writeJSONResponse(w, http.StatusOK, pickups)
}

// GetPickup возвращает заявку текущего пользователя
func (h *PickupHandler) GetPickup(w http.ResponseWriter, r *http.Request) {
	pickupID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	pickup, err := h.pickupService.Get(r.Context(), subjectID(r), pickupID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get pickup")
		return
	}

	writeJSONResponse(w, http.StatusOK, pickup)
}

// CancelPickup отменяет заявку, пока она в статусе pending
func (h *PickupHandler) CancelPickup(w http.ResponseWriter, r *http.Request) {
	pickupID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.CancelRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateCancel(&req); err != nil {
		writeServiceError(w, h.log, err, "Failed to cancel pickup")
		return
	}

	pickup, err := h.pickupService.Cancel(r.Context(), subjectID(r), pickupID, req.Reason)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to cancel pickup")
		return
	}

	if err := h.events.PublishPickupStatusChanged(pickup, models.PickupStatusPending); err != nil {
		h.log.WithError(err).Error("Failed to publish pickup status changed event")
	}

	writeJSONResponse(w, http.StatusOK, pickup)
}
