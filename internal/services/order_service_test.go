package services

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type schedulerMock struct {
	mock.Mock
}

func (m *schedulerMock) ScheduleAutoComplete(ctx context.Context, orderID uuid.UUID, delay time.Duration) error {
	args := m.Called(ctx, orderID, delay)
	return args.Error(0)
}

func newOrderService(t *testing.T) (*OrderService, sqlmock.Sqlmock, *schedulerMock) {
	t.Helper()

	db, sqlMock := newMockDB(t)
	scheduler := &schedulerMock{}
	svc := NewOrderService(db, scheduler, config.JobsConfig{AutoCompleteDelay: time.Minute}, logger.Discard())
	return svc, sqlMock, scheduler
}

func orderRow(orderID, buyerID uuid.UUID, status string, listing listingFixture) *sqlmock.Rows {
	values := []driver.Value{
		orderID.String(), buyerID.String(), listing.ID.String(), status, "100000", 2,
		"Jl. Sudirman 5", nil, nil, nil, time.Now(),
		nil, nil, nil, nil,
	}
	return sqlmock.NewRows(orderRowColumns).AddRow(append(values, listing.values()...)...)
}

func TestCreateOrderMarksListingSoldAndComputesTotal(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	buyerID := uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true}
	quantity := 2

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id = .+ FOR UPDATE").
		WithArgs(listing.ID).
		WillReturnRows(listingRows(listing))
	sqlMock.ExpectExec("UPDATE marketplace_listings SET is_sold = TRUE").
		WithArgs(sqlmock.AnyArg(), listing.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), buyerID, listing.ID, models.OrderStatusPending,
			decimal.NewFromInt(100000), 2, "Jl. Sudirman 5", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	order, err := svc.CreateOrder(context.Background(), buyerID, &models.CreateOrderRequest{
		ListingID:       listing.ID,
		Quantity:        &quantity,
		ShippingAddress: "Jl. Sudirman 5",
	})

	require.NoError(t, err)
	assert.True(t, order.TotalPrice.Equal(decimal.NewFromInt(100000)), order.TotalPrice.String())
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.NotNil(t, order.Listing)
	assert.True(t, order.Listing.IsSold)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderDefaultsQuantityToOne(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "12500.50", IsActive: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(listingRows(listing))
	sqlMock.ExpectExec("UPDATE marketplace_listings SET is_sold = TRUE").WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	order, err := svc.CreateOrder(context.Background(), uuid.New(), &models.CreateOrderRequest{
		ListingID:       listing.ID,
		ShippingAddress: "Jl. Sudirman 5",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, order.Quantity)
	assert.Equal(t, "12500.5", order.TotalPrice.String())
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderOnSoldListingCreatesNoOrder(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(listingRows(listing))
	sqlMock.ExpectRollback()

	order, err := svc.CreateOrder(context.Background(), uuid.New(), &models.CreateOrderRequest{
		ListingID:       listing.ID,
		ShippingAddress: "Jl. Sudirman 5",
	})

	require.ErrorIs(t, err, ErrListingUnavailable)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, order)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderOnInactiveListing(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: false}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(listingRows(listing))
	sqlMock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), &models.CreateOrderRequest{ListingID: listing.ID})

	require.ErrorIs(t, err, ErrListingUnavailable)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderOnMissingListing(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(sqlmock.NewRows(listingRowColumns))
	sqlMock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), &models.CreateOrderRequest{ListingID: uuid.New()})

	require.ErrorIs(t, err, ErrListingUnavailable)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderSelfPurchase(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	sellerID := uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: sellerID, Price: "50000", IsActive: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(listingRows(listing))
	sqlMock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), sellerID, &models.CreateOrderRequest{ListingID: listing.ID})

	require.ErrorIs(t, err, ErrSelfPurchase)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderLosesCompareAndSet(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(listingRows(listing))
	sqlMock.ExpectExec("UPDATE marketplace_listings SET is_sold = TRUE").WillReturnResult(sqlmock.NewResult(0, 0))
	sqlMock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), &models.CreateOrderRequest{ListingID: listing.ID})

	require.ErrorIs(t, err, ErrListingUnavailable)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCreateOrderUniqueViolationIsUnavailable(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM marketplace_listings l WHERE l.id").WillReturnRows(listingRows(listing))
	sqlMock.ExpectExec("UPDATE marketplace_listings SET is_sold = TRUE").WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec("INSERT INTO orders").WillReturnError(&pq.Error{Code: pgUniqueViolation})
	sqlMock.ExpectRollback()

	_, err := svc.CreateOrder(context.Background(), uuid.New(), &models.CreateOrderRequest{ListingID: listing.ID})

	require.ErrorIs(t, err, ErrListingUnavailable)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPayConfirmsAndSchedulesAutoComplete(t *testing.T) {
	svc, sqlMock, scheduler := newOrderService(t)
	orderID, buyerID := uuid.New(), uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").
		WithArgs(orderID, buyerID).
		WillReturnRows(orderRow(orderID, buyerID, "pending", listing))
	sqlMock.ExpectExec("UPDATE orders SET status = .+, confirmed_at").
		WithArgs(models.OrderStatusConfirmed, sqlmock.AnyArg(), models.PaymentEwallet, nil, orderID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	scheduler.On("ScheduleAutoComplete", mock.Anything, orderID, time.Minute).Return(nil).Once()

	order, err := svc.Pay(context.Background(), buyerID, orderID, &models.PayOrderRequest{PaymentMethod: models.PaymentEwallet})

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.NotNil(t, order.ConfirmedAt)
	scheduler.AssertExpectations(t)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPayScheduleFailureStillConfirms(t *testing.T) {
	svc, sqlMock, scheduler := newOrderService(t)
	orderID, buyerID := uuid.New(), uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").
		WillReturnRows(orderRow(orderID, buyerID, "pending", listing))
	sqlMock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	scheduler.On("ScheduleAutoComplete", mock.Anything, orderID, time.Minute).Return(errors.New("redis down"))

	order, err := svc.Pay(context.Background(), buyerID, orderID, &models.PayOrderRequest{PaymentMethod: models.PaymentCOD})

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestPayRejectsNonPendingOrder(t *testing.T) {
	svc, sqlMock, scheduler := newOrderService(t)
	orderID, buyerID := uuid.New(), uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").
		WillReturnRows(orderRow(orderID, buyerID, "confirmed", listing))
	sqlMock.ExpectRollback()

	_, err := svc.Pay(context.Background(), buyerID, orderID, &models.PayOrderRequest{PaymentMethod: models.PaymentTransfer})

	require.ErrorIs(t, err, ErrInvalidState)
	assert.Contains(t, err.Error(), "confirmed")
	scheduler.AssertNotCalled(t, "ScheduleAutoComplete", mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCancelOrderReleasesListing(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	orderID, buyerID := uuid.New(), uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").
		WillReturnRows(orderRow(orderID, buyerID, "pending", listing))
	sqlMock.ExpectExec("UPDATE orders SET status = .+, cancelled_at").WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec("UPDATE marketplace_listings SET is_sold = FALSE").
		WithArgs(sqlmock.AnyArg(), listing.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectCommit()

	order, err := svc.Cancel(context.Background(), buyerID, orderID, nil)

	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.False(t, order.Listing.IsSold)
	assert.True(t, order.Listing.Purchasable())
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCancelOrderListingUpdateFailureRollsBack(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	orderID, buyerID := uuid.New(), uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").
		WillReturnRows(orderRow(orderID, buyerID, "pending", listing))
	sqlMock.ExpectExec("UPDATE orders SET status").WillReturnResult(sqlmock.NewResult(0, 1))
	sqlMock.ExpectExec("UPDATE marketplace_listings SET is_sold = FALSE").WillReturnError(errors.New("lock timeout"))
	sqlMock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), buyerID, orderID, nil)

	require.Error(t, err)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCancelConfirmedOrderIsRejected(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	orderID, buyerID := uuid.New(), uuid.New()
	listing := listingFixture{ID: uuid.New(), SellerID: uuid.New(), Price: "50000", IsActive: true, IsSold: true}

	sqlMock.ExpectBegin()
	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").
		WillReturnRows(orderRow(orderID, buyerID, "confirmed", listing))
	sqlMock.ExpectRollback()

	_, err := svc.Cancel(context.Background(), buyerID, orderID, nil)

	require.ErrorIs(t, err, ErrInvalidState)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestAutoCompleteSkipsCancelledOrder(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	orderID := uuid.New()

	sqlMock.ExpectQuery("UPDATE orders SET status = .+, completed_at .+ RETURNING buyer_id").
		WithArgs(models.OrderStatusCompleted, sqlmock.AnyArg(), orderID, models.OrderStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"buyer_id", "listing_id"}))

	order, err := svc.AutoComplete(context.Background(), orderID)

	require.NoError(t, err)
	assert.Nil(t, order)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestAutoCompleteConfirmedOrder(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	orderID, buyerID, listingID := uuid.New(), uuid.New(), uuid.New()

	sqlMock.ExpectQuery("UPDATE orders SET status").
		WithArgs(models.OrderStatusCompleted, sqlmock.AnyArg(), orderID, models.OrderStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"buyer_id", "listing_id"}).AddRow(buyerID.String(), listingID.String()))

	order, err := svc.AutoComplete(context.Background(), orderID)

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, orderID, order.ID)
	assert.Equal(t, buyerID, order.BuyerID)
	assert.Equal(t, models.OrderStatusCompleted, order.Status)
	assert.NotNil(t, order.CompletedAt)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestCompleteOverdue(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)
	rows := sqlmock.NewRows([]string{"id", "buyer_id", "listing_id"})
	for i := 0; i < 3; i++ {
		rows.AddRow(uuid.NewString(), uuid.NewString(), uuid.NewString())
	}

	sqlMock.ExpectQuery("UPDATE orders SET status .+ WHERE status = .+ AND confirmed_at .+ RETURNING id, buyer_id").
		WithArgs(models.OrderStatusCompleted, sqlmock.AnyArg(), models.OrderStatusConfirmed, sqlmock.AnyArg()).
		WillReturnRows(rows)

	orders, err := svc.CompleteOverdue(context.Background(), time.Minute)

	require.NoError(t, err)
	require.Len(t, orders, 3)
	for _, o := range orders {
		assert.Equal(t, models.OrderStatusCompleted, o.Status)
		assert.NotEqual(t, uuid.Nil, o.BuyerID)
	}
	require.NoError(t, sqlMock.ExpectationsWereMet())
}

func TestGetOrderOfAnotherBuyer(t *testing.T) {
	svc, sqlMock, _ := newOrderService(t)

	sqlMock.ExpectQuery("FROM orders o JOIN marketplace_listings l").WillReturnRows(sqlmock.NewRows(orderRowColumns))

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())

	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, sqlMock.ExpectationsWereMet())
}
