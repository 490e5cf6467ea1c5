package handlers

import (
	"net/http"
	"strings"

	"pickup-market/internal/logger"
	"pickup-market/internal/models"
	"pickup-market/internal/services"
)

// ListingHandler представляет обработчик объявлений маркетплейса
type ListingHandler struct {
	listingService *services.ListingService
	log            *logger.Logger
}

// NewListingHandler создает новый обработчик объявлений
func NewListingHandler(listingService *services.ListingService, log *logger.Logger) *ListingHandler {
	return &ListingHandler{
		listingService: listingService,
		log:            log,
	}
}

// ListListings возвращает активные объявления с фильтрами category и search
func (h *ListingHandler) ListListings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.ListingFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if filter.Category == "all" {
		filter.Category = ""
	}

	listings, err := h.listingService.List(r.Context(), subjectID(r), filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list listings")
		return
	}

	writeJSONResponse(w, http.StatusOK, listings)
}

// MyListings возвращает все объявления продавца
func (h *ListingHandler) MyListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listingService.Mine(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list own listings")
		return
	}

	writeJSONResponse(w, http.StatusOK, listings)
}

// GetListing возвращает объявление и увеличивает счетчик просмотров
func (h *ListingHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	listing, err := h.listingService.Get(r.Context(), subjectID(r), listingID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get listing")
		return
	}

	writeJSONResponse(w, http.StatusOK, listing)
}

// CreateListing публикует объявление
func (h *ListingHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req models.CreateListingRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateCreateListing(&req); err != nil {
		writeServiceError(w, h.log, err, "Failed to create listing")
		return
	}

	listing, err := h.listingService.Create(r.Context(), subjectID(r), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create listing")
		return
	}

	writeJSONResponse(w, http.StatusCreated, listing)
}

// UpdateListing меняет поля объявления продавца
func (h *ListingHandler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateListingRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateUpdateListing(&req); err != nil {
		writeServiceError(w, h.log, err, "Failed to update listing")
		return
	}

	listing, err := h.listingService.Update(r.Context(), subjectID(r), listingID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update listing")
		return
	}

	writeJSONResponse(w, http.StatusOK, listing)
}

// DeleteListing снимает объявление с публикации
func (h *ListingHandler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	listingID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.listingService.Destroy(r.Context(), subjectID(r), listingID); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete listing")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Listing deleted"})
}
