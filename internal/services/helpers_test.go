package services

import (
	"database/sql/driver"
	"testing"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/database"
	"pickup-market/internal/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	pickupRowColumns = []string{
		"id", "user_id", "courier_id", "status", "address", "latitude", "longitude",
		"pickup_date", "pickup_time", "notes", "points_awarded",
		"estimated_weight_kg", "completed_at", "cancelled_at", "cancellation_reason", "created_at",
	}
	pickupItemColumns = []string{"id", "pickup_request_id", "category_id", "type", "label", "emoji", "estimated_weight_kg"}
	listingRowColumns = []string{
		"id", "seller_id", "seller_name", "seller_rating", "name", "description",
		"price", "category", "condition", "image_path", "is_active", "is_sold", "views_count", "created_at",
	}
	orderRowColumns = append([]string{
		"o_id", "buyer_id", "listing_id", "status", "total_price", "quantity",
		"shipping_address", "notes", "payment_method", "cancellation_reason", "o_created_at",
		"confirmed_at", "shipped_at", "completed_at", "cancelled_at",
	}, listingRowColumns...)
)

func newMockDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return database.New(sqlDB), mock
}

func disabledCache() *CacheService {
	return NewCacheService(nil, &config.CacheConfig{Enabled: false, DefaultTTL: 300, HotDataTTL: 60}, logger.Discard())
}

type listingFixture struct {
	ID       uuid.UUID
	SellerID uuid.UUID
	Price    string
	IsActive bool
	IsSold   bool
}

func (f listingFixture) values() []driver.Value {
	return []driver.Value{
		f.ID.String(), f.SellerID.String(), "Seller", 4.8, "Oak table", "Solid oak",
		f.Price, "furniture", "good", nil, f.IsActive, f.IsSold, 3, time.Now(),
	}
}

func listingRows(fixtures ...listingFixture) *sqlmock.Rows {
	rows := sqlmock.NewRows(listingRowColumns)
	for _, f := range fixtures {
		rows.AddRow(f.values()...)
	}
	return rows
}

func pickupRow(id, userID uuid.UUID, courierID *uuid.UUID, status string) *sqlmock.Rows {
	var courier interface{}
	if courierID != nil {
		courier = courierID.String()
	}
	return sqlmock.NewRows(pickupRowColumns).AddRow(
		id.String(), userID.String(), courier, status, "Jl. Merdeka 1", nil, nil,
		"2030-01-15", "09:30", nil, 0,
		nil, nil, nil, nil, time.Now(),
	)
}

func itemRows(pickupID uuid.UUID, types ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(pickupItemColumns)
	for _, typ := range types {
		rows.AddRow(uuid.NewString(), pickupID.String(), uuid.NewString(), typ, typ, "", nil)
	}
	return rows
}
