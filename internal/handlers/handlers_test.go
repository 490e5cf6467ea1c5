package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pickup-market/internal/auth"
	"pickup-market/internal/config"
	"pickup-market/internal/database"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"
	"pickup-market/internal/services"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	pickupRowColumns = []string{
		"id", "user_id", "courier_id", "status", "address", "latitude", "longitude",
		"pickup_date", "pickup_time", "notes", "points_awarded",
		"estimated_weight_kg", "completed_at", "cancelled_at", "cancellation_reason", "created_at",
	}
	listingRowColumns = []string{
		"id", "seller_id", "seller_name", "seller_rating", "name", "description",
		"price", "category", "condition", "image_path", "is_active", "is_sold", "views_count", "created_at",
	}
)

type eventsMock struct {
	mock.Mock
}

func (m *eventsMock) PublishPickupCreated(p *models.PickupRequest) error {
	return m.Called(p).Error(0)
}

func (m *eventsMock) PublishPickupStatusChanged(p *models.PickupRequest, old models.PickupStatus) error {
	return m.Called(p, old).Error(0)
}

func (m *eventsMock) PublishCourierAssigned(pickupID, courierID uuid.UUID) error {
	return m.Called(pickupID, courierID).Error(0)
}

func (m *eventsMock) PublishCourierAvailability(c *models.Courier) error {
	return m.Called(c).Error(0)
}

func (m *eventsMock) PublishOrderCreated(o *models.Order) error {
	return m.Called(o).Error(0)
}

func (m *eventsMock) PublishOrderStatusChanged(o *models.Order, old models.OrderStatus) error {
	return m.Called(o, old).Error(0)
}

func (m *eventsMock) PublishWishlistToggled(userID, listingID uuid.UUID, wishlisted bool) error {
	return m.Called(userID, listingID, wishlisted).Error(0)
}

type stubChecker struct {
	err error
}

func (s stubChecker) Health(context.Context) error { return s.err }

type testEnv struct {
	sql    sqlmock.Sqlmock
	events *eventsMock
	jwt    *auth.JWTService
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, logger.Discard())
}

func newTestEnvWithLogger(t *testing.T, log *logger.Logger) *testEnv {
	t.Helper()

	sqlDB, sqlMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := database.New(sqlDB)
	events := new(eventsMock)
	jwtService := auth.NewJWTService(config.AuthConfig{Secret: "secret", Issuer: "pickup-market", TokenTTL: time.Hour})

	cache := services.NewCacheService(nil, &config.CacheConfig{DefaultTTL: 300, HotDataTTL: 60}, log)
	categories := services.NewCategoryService(db, cache, log)
	points := services.NewPointsService(db, log)
	couriers := services.NewCourierService(db, cache, log)
	pickups := services.NewPickupService(db, categories, points, couriers, config.RewardsConfig{PickupCompletionPoints: 10}, log)
	wishlist := services.NewWishlistService(db, log)
	listings := services.NewListingService(db, wishlist, log)
	orders := services.NewOrderService(db, nil, config.JobsConfig{AutoCompleteDelay: time.Minute}, log)
	limiter := services.NewRateLimiterService(nil, &config.RateLimitConfig{}, log)

	router := NewRouter(Handlers{
		Health:    NewHealthHandler(stubChecker{}, stubChecker{}),
		Catalog:   NewCatalogHandler(categories, points, log),
		Pickups:   NewPickupHandler(pickups, events, log),
		Couriers:  NewCourierHandler(couriers, pickups, events, log),
		Listings:  NewListingHandler(listings, log),
		Orders:    NewOrderHandler(orders, events, log),
		Wishlist:  NewWishlistHandler(wishlist, services.NewIdempotencyService(nil, log), events, log),
		Cache:     NewCacheHandler(cache, log),
		RateLimit: NewRateLimitHandler(limiter, log),
	}, jwtService, limiter, log)

	return &testEnv{sql: sqlMock, events: events, jwt: jwtService, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, subject uuid.UUID, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		token, err := e.jwt.GenerateToken(subject, role)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&services.TransitionError{Entity: "pickup", From: "pending", To: "done"}, http.StatusUnprocessableEntity},
		{&services.InvalidCategoryError{Missing: []string{"metal"}}, http.StatusUnprocessableEntity},
		{&services.StateError{Entity: "order", Operation: "pay", Current: "cancelled", Required: "pending"}, http.StatusUnprocessableEntity},
		{services.ErrSelfPurchase, http.StatusUnprocessableEntity},
		{services.ErrListingUnavailable, http.StatusUnprocessableEntity},
		{fmt.Errorf("order x: %w", services.ErrNotFound), http.StatusNotFound},
		{services.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("listing sold: %w", services.ErrConflict), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, statusForError(tc.err), tc.err.Error())
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()

	writeServiceError(rec, logger.Discard(), errors.New("pq: password authentication failed"), "Failed to create order")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to create order", decodeError(t, rec).Message)
}

func TestRoutesRequireRole(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/pickups", uuid.Nil, "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/pickups", uuid.New(), auth.RoleCourier, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/couriers/"+uuid.NewString()+"/assign", uuid.New(), auth.RoleUser,
		models.AssignPickupRequest{PickupID: uuid.New()})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestAdvancePendingPickupToDoneReturns422WithBothStatuses(t *testing.T) {
	env := newTestEnv(t)
	courierID, pickupID := uuid.New(), uuid.New()

	env.sql.ExpectBegin()
	env.sql.ExpectQuery("FROM pickup_requests p WHERE p.id").
		WithArgs(pickupID, courierID).
		WillReturnRows(sqlmock.NewRows(pickupRowColumns).AddRow(
			pickupID.String(), uuid.NewString(), courierID.String(), "pending", "Jl. Merdeka 1", nil, nil,
			"2030-01-15", "09:30", nil, 0, nil, nil, nil, nil, time.Now()))
	env.sql.ExpectRollback()

	rec := env.do(t, http.MethodPatch, "/api/courier/pickups/"+pickupID.String()+"/status", courierID, auth.RoleCourier,
		models.UpdatePickupStatusRequest{Status: models.PickupStatusDone})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	msg := decodeError(t, rec).Message
	assert.Contains(t, msg, "pending")
	assert.Contains(t, msg, "done")
	env.events.AssertNotCalled(t, "PublishPickupStatusChanged", mock.Anything, mock.Anything)
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestAdvanceToCancelledIsValidationError(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPatch, "/api/courier/pickups/"+uuid.NewString()+"/status", uuid.New(), auth.RoleCourier,
		models.UpdatePickupStatusRequest{Status: models.PickupStatusCancelled})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestCreateOrderSelfPurchaseReturns422(t *testing.T) {
	env := newTestEnv(t)
	sellerID, listingID := uuid.New(), uuid.New()

	env.sql.ExpectBegin()
	env.sql.ExpectQuery("FROM marketplace_listings l WHERE l.id").
		WillReturnRows(sqlmock.NewRows(listingRowColumns).AddRow(
			listingID.String(), sellerID.String(), "Seller", 4.8, "Oak table", "Solid oak",
			"50000", "furniture", "good", nil, true, false, 3, time.Now()))
	env.sql.ExpectRollback()

	rec := env.do(t, http.MethodPost, "/api/orders", sellerID, auth.RoleUser, models.CreateOrderRequest{
		ListingID:       listingID,
		ShippingAddress: "Jl. Sudirman 5",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, services.ErrSelfPurchase.Error(), decodeError(t, rec).Message)
	env.events.AssertNotCalled(t, "PublishOrderCreated", mock.Anything)
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestCreateOrderLogsSuccessOnce(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnvWithLogger(t, logger.NewWithWriter(&logs))
	buyerID, listingID := uuid.New(), uuid.New()

	env.sql.ExpectBegin()
	env.sql.ExpectQuery("FROM marketplace_listings l WHERE l.id").
		WillReturnRows(sqlmock.NewRows(listingRowColumns).AddRow(
			listingID.String(), uuid.NewString(), "Seller", 4.8, "Oak table", "Solid oak",
			"50000", "furniture", "good", nil, true, false, 3, time.Now()))
	env.sql.ExpectExec("UPDATE marketplace_listings SET is_sold = TRUE").WillReturnResult(sqlmock.NewResult(0, 1))
	env.sql.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	env.sql.ExpectCommit()
	env.events.On("PublishOrderCreated", mock.AnythingOfType("*models.Order")).Return(nil).Once()

	rec := env.do(t, http.MethodPost, "/api/orders", buyerID, auth.RoleUser, models.CreateOrderRequest{
		ListingID:       listingID,
		ShippingAddress: "Jl. Sudirman 5",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, strings.Count(logs.String(), "Order created successfully"))
	env.events.AssertExpectations(t)
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestCacheMetricsIncludeKeysPerPrefix(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/cache/metrics", uuid.New(), auth.RoleAdmin, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var metrics services.CacheMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Contains(t, metrics.Keys, "categories")
	assert.Contains(t, metrics.Keys, "courier")
}

func TestCreateOrderRejectsQuantityOverTen(t *testing.T) {
	env := newTestEnv(t)
	quantity := 11

	rec := env.do(t, http.MethodPost, "/api/orders", uuid.New(), auth.RoleUser, models.CreateOrderRequest{
		ListingID:       uuid.New(),
		Quantity:        &quantity,
		ShippingAddress: "Jl. Sudirman 5",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "quantity")
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestToggleWishlistPublishesEvent(t *testing.T) {
	env := newTestEnv(t)
	userID, listingID := uuid.New(), uuid.New()

	env.sql.ExpectBegin()
	env.sql.ExpectExec("DELETE FROM wishlists").WithArgs(userID, listingID).WillReturnResult(sqlmock.NewResult(0, 0))
	env.sql.ExpectExec("INSERT INTO wishlists").WillReturnResult(sqlmock.NewResult(0, 1))
	env.sql.ExpectCommit()
	env.events.On("PublishWishlistToggled", userID, listingID, true).Return(nil).Once()

	rec := env.do(t, http.MethodPost, "/api/wishlist/toggle", userID, auth.RoleUser,
		models.ToggleWishlistRequest{ListingID: listingID})

	require.Equal(t, http.StatusOK, rec.Code)
	var result models.WishlistToggleResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Wishlisted)
	env.events.AssertExpectations(t)
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestPayOrderWithOversizedProofIsRejectedBeforeStore(t *testing.T) {
	env := newTestEnv(t)
	proof := strings.Repeat("x", 501)

	rec := env.do(t, http.MethodPost, "/api/orders/"+uuid.NewString()+"/pay", uuid.New(), auth.RoleUser,
		models.PayOrderRequest{PaymentMethod: models.PaymentTransfer, PaymentProof: &proof})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "payment_proof")
	env.events.AssertNotCalled(t, "PublishOrderStatusChanged", mock.Anything, mock.Anything)
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestCreatePickupRejectsPastDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/pickups", uuid.New(), auth.RoleUser, models.CreatePickupRequest{
		Address:    "Jl. Merdeka 1",
		PickupDate: "2001-01-01",
		PickupTime: "09:00",
		TrashTypes: []string{"plastic"},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Message, "pickup_date")
	require.NoError(t, env.sql.ExpectationsWereMet())
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	token, err := env.jwt.GenerateToken(uuid.New(), auth.RoleUser)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReportsUnhealthyRedis(t *testing.T) {
	h := NewHealthHandler(stubChecker{}, stubChecker{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Services["database"])
	assert.Contains(t, resp.Services["redis"], "connection refused")
}
