package jobs

import (
	"context"
	"time"

	"pickup-market/internal/models"

	"github.com/google/uuid"
)

// OrderCompleter завершает подтвержденные заказы. Реализуется services.OrderService.
type OrderCompleter interface {
	AutoComplete(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CompleteOverdue(ctx context.Context, olderThan time.Duration) ([]*models.Order, error)
}

// OrderEvents публикует смену статуса заказа. Реализуется kafka.Producer.
type OrderEvents interface {
	PublishOrderStatusChanged(order *models.Order, oldStatus models.OrderStatus) error
}

// RegisterOrderJobs регистрирует автозавершение заказа и проверку просроченных.
// Каждое завершение публикует order.status_changed.
func RegisterOrderJobs(w *Worker, orders OrderCompleter, events OrderEvents, autoCompleteDelay, sweepEvery time.Duration) {
	publish := func(order *models.Order) {
		if err := events.PublishOrderStatusChanged(order, models.OrderStatusConfirmed); err != nil {
			// ошибка публикации не ведет к повтору задачи
			w.log.WithError(err).WithField("order_id", order.ID).Error("Failed to publish order status changed event")
		}
	}

	w.RegisterHandler(KindOrderAutoComplete, func(ctx context.Context, orderID uuid.UUID) error {
		order, err := orders.AutoComplete(ctx, orderID)
		if err != nil {
			return err
		}
		if order != nil {
			publish(order)
		}
		return nil
	})

	// Подбирает подтвержденные заказы, чьи задачи потерялись
	w.RegisterSweep("orders-overdue", sweepEvery, func(ctx context.Context) error {
		completed, err := orders.CompleteOverdue(ctx, autoCompleteDelay)
		if err != nil {
			return err
		}
		for _, order := range completed {
			publish(order)
		}
		return nil
	})
}
