package handlers

import (
	"net/http"
	"time"

	"pickup-market/internal/logger"
	"pickup-market/internal/middleware"
	"pickup-market/internal/services"
)

// RateLimitHandler обрабатывает запросы связанные с rate limiting
type RateLimitHandler struct {
	rateLimiter *services.RateLimiterService
	log         *logger.Logger
}

// NewRateLimitHandler создает новый RateLimitHandler
func NewRateLimitHandler(rateLimiter *services.RateLimiterService, log *logger.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		rateLimiter: rateLimiter,
		log:         log,
	}
}

// GetStatus возвращает текущий статус лимита для вызывающего без инкремента счетчика
func (h *RateLimitHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	subject, elevated := middleware.RateSubject(r)

	result, err := h.rateLimiter.GetStatus(r.Context(), subject, elevated)
	if err != nil {
		h.log.WithError(err).WithField("subject", subject).Error("Failed to get rate limit status")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to get rate limit status")
		return
	}

	response := map[string]interface{}{
		"subject":   subject,
		"limit":     result.Limit,
		"remaining": result.Remaining,
		"reset_at":  result.ResetAt.Format(time.RFC3339),
		"is_banned": !result.Allowed,
	}
	if !result.Allowed {
		response["banned_until"] = result.BannedUntil.Format(time.RFC3339)
		response["retry_after"] = result.RetryAfter
	}

	writeJSONResponse(w, http.StatusOK, response)
}

// Reset сбрасывает лимит и бан субъекта (администратор)
func (h *RateLimitHandler) Reset(w http.ResponseWriter, r *http.Request) {
	subject := r.PathValue("subject")
	if subject == "" {
		writeErrorResponse(w, http.StatusBadRequest, "subject is required")
		return
	}

	if err := h.rateLimiter.ResetLimit(r.Context(), subject); err != nil {
		h.log.WithError(err).WithField("subject", subject).Error("Failed to reset rate limit")
		writeErrorResponse(w, http.StatusInternalServerError, "Failed to reset rate limit")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Rate limit reset", "subject": subject})
}
