package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Producer представляет Kafka producer
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   config.Topics
}

// NewProducer создает новый Kafka producer
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll       // Ждем подтверждения от всех реплик
	config.Producer.Retry.Max = 3                          // Максимум 3 попытки
	config.Producer.Return.Successes = true                // Возвращаем успешные результаты
	config.Producer.Compression = sarama.CompressionSnappy // Сжатие данных

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Info("Kafka producer created successfully")

	return newProducer(producer, cfg.Topics, log), nil
}

func newProducer(producer sarama.SyncProducer, topics config.Topics, log *logger.Logger) *Producer {
	return &Producer{
		producer: producer,
		log:      log,
		topics:   topics,
	}
}

// Close закрывает producer
func (p *Producer) Close() error {
	return p.producer.Close()
}

// PublishPickupCreated публикует событие создания заявки
func (p *Producer) PublishPickupCreated(pickup *models.PickupRequest) error {
	types := make([]string, 0, len(pickup.TrashTypes))
	for _, item := range pickup.TrashTypes {
		types = append(types, item.Type)
	}

	return p.publishEvent(p.topics.Pickups, pickup.ID, models.EventTypePickupCreated, models.PickupCreatedEvent{
		PickupID:   pickup.ID,
		UserID:     pickup.UserID,
		PickupDate: pickup.PickupDate,
		TrashTypes: types,
	})
}

// PublishPickupStatusChanged публикует событие изменения статуса заявки
func (p *Producer) PublishPickupStatusChanged(pickup *models.PickupRequest, oldStatus models.PickupStatus) error {
	return p.publishEvent(p.topics.Pickups, pickup.ID, models.EventTypePickupStatusChanged, models.PickupStatusChangedEvent{
		PickupID:      pickup.ID,
		UserID:        pickup.UserID,
		OldStatus:     oldStatus,
		NewStatus:     pickup.Status,
		CourierID:     pickup.CourierID,
		PointsAwarded: pickup.PointsAwarded,
		Timestamp:     time.Now(),
	})
}

// PublishCourierAssigned публикует событие назначения курьера
func (p *Producer) PublishCourierAssigned(pickupID, courierID uuid.UUID) error {
	return p.publishEvent(p.topics.Pickups, pickupID, models.EventTypeCourierAssigned, models.CourierAssignedEvent{
		PickupID:  pickupID,
		CourierID: courierID,
		Timestamp: time.Now(),
	})
}

// PublishCourierAvailability публикует событие смены доступности курьера
func (p *Producer) PublishCourierAvailability(courier *models.Courier) error {
	return p.publishEvent(p.topics.Pickups, courier.ID, models.EventTypeCourierAvailability, models.CourierAvailabilityEvent{
		CourierID:   courier.ID,
		IsAvailable: courier.IsAvailable,
		Timestamp:   time.Now(),
	})
}

// PublishOrderCreated публикует событие создания заказа
func (p *Producer) PublishOrderCreated(order *models.Order) error {
	return p.publishEvent(p.topics.Orders, order.ID, models.EventTypeOrderCreated, models.OrderCreatedEvent{
		OrderID:    order.ID,
		BuyerID:    order.BuyerID,
		ListingID:  order.ListingID,
		TotalPrice: order.TotalPrice.String(),
		Quantity:   order.Quantity,
	})
}

// PublishOrderStatusChanged публикует событие изменения статуса заказа
func (p *Producer) PublishOrderStatusChanged(order *models.Order, oldStatus models.OrderStatus) error {
	return p.publishEvent(p.topics.Orders, order.ID, models.EventTypeOrderStatusChanged, models.OrderStatusChangedEvent{
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		OldStatus: oldStatus,
		NewStatus: order.Status,
		Timestamp: time.Now(),
	})
}

// PublishWishlistToggled публикует событие переключения закладки
func (p *Producer) PublishWishlistToggled(userID, listingID uuid.UUID, wishlisted bool) error {
	return p.publishEvent(p.topics.Marketplace, listingID, models.EventTypeWishlistToggled, models.WishlistToggledEvent{
		UserID:     userID,
		ListingID:  listingID,
		Wishlisted: wishlisted,
	})
}

// publishEvent публикует событие в указанный топик с ключом по ID сущности
func (p *Producer) publishEvent(topic string, entityID uuid.UUID, eventType models.EventType, data interface{}) error {
	event := models.Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(entityID.String()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
			{
				Key:   []byte("timestamp"),
				Value: []byte(event.Timestamp.Format(time.RFC3339)),
			},
		},
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}

	p.log.WithFields(logrus.Fields{
		"topic":      topic,
		"partition":  partition,
		"offset":     offset,
		"event_type": event.Type,
		"event_id":   event.ID,
	}).Debug("Event published successfully")

	return nil
}
