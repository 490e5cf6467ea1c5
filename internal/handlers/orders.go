package handlers

import (
	"net/http"

	"pickup-market/internal/logger"
	"pickup-market/internal/models"
	"pickup-market/internal/services"
)

// OrderHandler представляет обработчик заказов
type OrderHandler struct {
	orderService *services.OrderService
	events       EventPublisher
	log          *logger.Logger
}

// NewOrderHandler создает новый обработчик заказов
func NewOrderHandler(orderService *services.OrderService, events EventPublisher, log *logger.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		events:       events,
		log:          log,
	}
}

// CreateOrder создает заказ на объявление
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := validateCreateOrder(&req); err != nil {
		writeServiceError(w, h.log, err, "Failed to create order")
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), subjectID(r), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create order")
		return
	}

	// Заказ уже создан, ошибка публикации клиенту не возвращается
	if err := h.events.PublishOrderCreated(order); err != nil {
		h.log.WithError(err).Error("Failed to publish order created event")
	}

	writeJSONResponse(w, http.StatusCreated, order)
}

// ListOrders возвращает заказы покупателя
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderService.List(r.Context(), subjectID(r))
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list orders")
		return
	}

	writeJSONResponse(w, http.StatusOK, orders)
}

// GetOrder возвращает заказ покупателя
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.orderService.Get(r.Context(), subjectID(r), orderID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get order")
		return
	}

	writeJSONResponse(w, http.StatusOK, order)
}

// PayOrder симулирует оплату и подтверждает заказ
func (h *OrderHandler) PayOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.PayOrderRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePayOrder(&req); err != nil {
		writeServiceError(w, h.log, err, "Failed to pay order")
		return
	}

	order, err := h.orderService.Pay(r.Context(), subjectID(r), orderID, &req)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to pay order")
		return
	}

	if err := h.events.PublishOrderStatusChanged(order, models.OrderStatusPending); err != nil {
		h.log.WithError(err).Error("Failed to publish order status changed event")
	}

	writeJSONResponse(w, http.StatusOK, order)
}

// CancelOrder отменяет заказ в статусе pending и возвращает объявление в продажу
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathUUID(r, "id")
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
		writeServiceError(w, h.log, err, "Failed to cancel order")
		return
	}

	order, err := h.orderService.Cancel(r.Context(), subjectID(r), orderID, req.Reason)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to cancel order")
		return
	}

	if err := h.events.PublishOrderStatusChanged(order, models.OrderStatusPending); err != nil {
		h.log.WithError(err).Error("Failed to publish order status changed event")
	}

	writeJSONResponse(w, http.StatusOK, order)
}
