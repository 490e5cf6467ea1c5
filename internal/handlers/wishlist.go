package handlers

import (
	"net/http"

	"pickup-market/internal/logger"
	"pickup-market/internal/models"
	"pickup-market/internal/services"

	"github.com/google/uuid"
)

// IdempotencyKeyHeader - заголовок для безопасного повтора запроса
const IdempotencyKeyHeader = "Idempotency-Key"

// WishlistHandler представляет обработчик закладок
type WishlistHandler struct {
	wishlistService *services.WishlistService
	idempotency     *services.IdempotencyService
	events          EventPublisher
	log             *logger.Logger
}

// NewWishlistHandler создает новый обработчик закладок
func NewWishlistHandler(wishlistService *services.WishlistService, idempotency *services.IdempotencyService, events EventPublisher, log *logger.Logger) *WishlistHandler {
	return &WishlistHandler{
		wishlistService: wishlistService,
		idempotency:     idempotency,
		events:          events,
		log:             log,
	}
}

// ListWishlist возвращает объявления в закладках пользователя
func (h *WishlistHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	listings, err := h.wishlistService.List(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list wishlist")
		return
	}

	writeJSONResponse(w, http.StatusOK, listings)
}

// Toggle добавляет объявление в закладки или убирает его оттуда.
// Повтор с тем же Idempotency-Key возвращает первый результат без повторного переключения.
func (h *WishlistHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req models.ToggleWishlistRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ListingID == uuid.Nil {
		writeServiceError(w, h.log, invalid("listing_id is required"), "Failed to toggle wishlist")
		return
	}

	userID := subjectID(r)
	result, replayed, err := services.RunIdempotent(r.Context(), h.idempotency,
		"wishlist:"+userID.String(), r.Header.Get(IdempotencyKeyHeader),
		func() (models.WishlistToggleResult, error) {
			wishlisted, err := h.wishlistService.Toggle(r.Context(), userID, req.ListingID)
			if err != nil {
				return models.WishlistToggleResult{}, err
			}
			message := "Removed from wishlist"
			if wishlisted {
				message = "Added to wishlist"
			}
			return models.WishlistToggleResult{Wishlisted: wishlisted, Message: message}, nil
		})
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to toggle wishlist")
		return
	}

	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	} else if err := h.events.PublishWishlistToggled(userID, req.ListingID, result.Wishlisted); err != nil {
		h.log.WithError(err).Error("Failed to publish wishlist toggled event")
	}

	writeJSONResponse(w, http.StatusOK, result)
}
