package kafka

import (
	"context"

	"pickup-market/internal/models"

	"github.com/sirupsen/logrus"
)

// Notifier доставляет уведомление пользователю
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Notification - текст уведомления для конкретного получателя
type Notification struct {
	RecipientID string
	Kind        models.EventType
	Message     string
}

// LogNotifier пишет уведомления в лог вместо push/e-mail
type LogNotifier struct {
	log *logrus.Entry
}

// NewLogNotifier создает notifier поверх записи лога
func NewLogNotifier(log *logrus.Entry) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify реализует Notifier
func (n *LogNotifier) Notify(_ context.Context, notification Notification) error {
	n.log.WithFields(logrus.Fields{
		"recipient_id": notification.RecipientID,
		"kind":         notification.Kind,
	}).Info(notification.Message)
	return nil
}

// RegisterNotificationHandlers подписывает notifier на пользовательские события
func RegisterNotificationHandlers(c *Consumer, notifier Notifier) {
	c.RegisterHandler(models.EventTypePickupStatusChanged, func(ctx context.Context, event *models.Event) error {
		var data models.PickupStatusChangedEvent
		if err := DecodeData(event, &data); err != nil {
			return err
		}
		return notifier.Notify(ctx, Notification{
			RecipientID: data.UserID.String(),
			Kind:        event.Type,
			Message:     pickupMessage(data),
		})
	})

	c.RegisterHandler(models.EventTypeCourierAssigned, func(ctx context.Context, event *models.Event) error {
		var data models.CourierAssignedEvent
		if err := DecodeData(event, &data); err != nil {
			return err
		}
		return notifier.Notify(ctx, Notification{
			RecipientID: data.CourierID.String(),
			Kind:        event.Type,
			Message:     "New pickup assigned to you",
		})
	})

	c.RegisterHandler(models.EventTypeOrderStatusChanged, func(ctx context.Context, event *models.Event) error {
		var data models.OrderStatusChangedEvent
		if err := DecodeData(event, &data); err != nil {
			return err
		}
		return notifier.Notify(ctx, Notification{
			RecipientID: data.BuyerID.String(),
			Kind:        event.Type,
			Message:     orderMessage(data.NewStatus),
		})
	})
}

func pickupMessage(data models.PickupStatusChangedEvent) string {
	switch data.NewStatus {
	case models.PickupStatusOnTheWay:
		return "Courier is on the way to pick up your waste"
	case models.PickupStatusDone:
		if data.PointsAwarded > 0 {
			return "Pickup completed, points have been added to your balance"
		}
		return "Pickup completed"
	case models.PickupStatusCancelled:
		return "Pickup request cancelled"
	}
	return "Pickup status updated to " + string(data.NewStatus)
}

func orderMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderStatusConfirmed:
		return "Payment received, your order is confirmed"
	case models.OrderStatusCompleted:
		return "Order completed"
	case models.OrderStatusCancelled:
		return "Order cancelled"
	}
	return "Order status updated to " + string(status)
}
