package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"pickup-market/internal/config"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testTopics = config.Topics{Pickups: "pickups", Orders: "orders", Marketplace: "marketplace"}

type notifierMock struct {
	mock.Mock
}

func (m *notifierMock) Notify(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func TestPublishOrderCreatedCarriesTotal(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	producer := newProducer(sp, testTopics, logger.Discard())
	order := &models.Order{
		ID:         uuid.New(),
		BuyerID:    uuid.New(),
		ListingID:  uuid.New(),
		TotalPrice: decimal.NewFromInt(100000),
		Quantity:   2,
	}

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var event struct {
			Type models.EventType         `json:"type"`
			Data models.OrderCreatedEvent `json:"data"`
		}
		if err := json.Unmarshal(val, &event); err != nil {
			return err
		}
		if event.Type != models.EventTypeOrderCreated {
			return errors.New("unexpected event type " + string(event.Type))
		}
		if event.Data.TotalPrice != "100000" || event.Data.Quantity != 2 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	require.NoError(t, producer.PublishOrderCreated(order))
	require.NoError(t, producer.Close())
}

func TestPublishFailureIsReturned(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	producer := newProducer(sp, testTopics, logger.Discard())
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := producer.PublishWishlistToggled(uuid.New(), uuid.New(), true)

	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Contains(t, err.Error(), "marketplace")
	require.NoError(t, producer.Close())
}

func TestHandleMessageRoutesPickupNotification(t *testing.T) {
	consumer := newConsumer(nil, nil, logger.Discard())
	notifier := new(notifierMock)
	RegisterNotificationHandlers(consumer, notifier)

	userID := uuid.New()
	payload, err := json.Marshal(models.Event{
		ID:   uuid.New(),
		Type: models.EventTypePickupStatusChanged,
		Data: models.PickupStatusChangedEvent{
			PickupID:      uuid.New(),
			UserID:        userID,
			OldStatus:     models.PickupStatusOnTheWay,
			NewStatus:     models.PickupStatusDone,
			PointsAwarded: 10,
		},
	})
	require.NoError(t, err)

	notifier.On("Notify", mock.Anything, Notification{
		RecipientID: userID.String(),
		Kind:        models.EventTypePickupStatusChanged,
		Message:     "Pickup completed, points have been added to your balance",
	}).Return(nil).Once()

	err = consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Topic: "pickups", Value: payload})

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestHandleMessageSkipsUnknownEvents(t *testing.T) {
	consumer := newConsumer(nil, nil, logger.Discard())
	payload, err := json.Marshal(models.Event{ID: uuid.New(), Type: models.EventTypeWishlistToggled})
	require.NoError(t, err)

	assert.NoError(t, consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: payload}))
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	consumer := newConsumer(nil, nil, logger.Discard())

	err := consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")})

	assert.Error(t, err)
}

func TestHandleMessageWrapsHandlerError(t *testing.T) {
	consumer := newConsumer(nil, nil, logger.Discard())
	notifier := new(notifierMock)
	RegisterNotificationHandlers(consumer, notifier)
	boom := errors.New("smtp down")
	notifier.On("Notify", mock.Anything, mock.Anything).Return(boom)

	payload, err := json.Marshal(models.Event{
		ID:   uuid.New(),
		Type: models.EventTypeOrderStatusChanged,
		Data: models.OrderStatusChangedEvent{OrderID: uuid.New(), BuyerID: uuid.New(), NewStatus: models.OrderStatusConfirmed},
	})
	require.NoError(t, err)

	err = consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: payload})

	require.ErrorIs(t, err, boom)
}
