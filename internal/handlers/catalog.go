package handlers

import (
	"net/http"

	"pickup-market/internal/logger"
	"pickup-market/internal/services"
)

// CatalogHandler отдает справочник категорий и баланс баллов
type CatalogHandler struct {
	categoryService *services.CategoryService
	pointsService   *services.PointsService
	log             *logger.Logger
}

// NewCatalogHandler создает обработчик справочников
func NewCatalogHandler(categoryService *services.CategoryService, pointsService *services.PointsService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		categoryService: categoryService,
		pointsService:   pointsService,
		log:             log,
	}
}

// ListCategories возвращает активные категории отходов
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.ListActive(r.Context())
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list waste categories")
		return
	}

	writeJSONResponse(w, http.StatusOK, categories)
}

// GetRewards возвращает баланс и историю баллов пользователя
func (h *CatalogHandler) GetRewards(w http.ResponseWriter, r *http.Request) {
	summary, err := h.pointsService.Summary(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get rewards")
		return
	}

	writeJSONResponse(w, http.StatusOK, summary)
}
