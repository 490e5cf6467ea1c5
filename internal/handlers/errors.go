package handlers

import (
	"errors"
	"net/http"

	"pickup-market/internal/logger"
	"pickup-market/internal/services"
)

// statusForError сопоставляет ошибку сервиса HTTP статусу.
// ErrListingUnavailable проверяется раньше ErrNotFound, который он оборачивает.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrListingUnavailable),
		errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrSelfPurchase),
		errors.Is(err, services.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeServiceError пишет ответ для ошибки сервиса. Внутренние ошибки логируются,
// клиент получает только fallback.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error, fallback string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error(fallback)
		writeErrorResponse(w, status, fallback)
		return
	}
	writeErrorResponse(w, status, err.Error())
}
