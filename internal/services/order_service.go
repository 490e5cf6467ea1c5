package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/database"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ErrListingUnavailable - объявление снято, продано или не существует
var ErrListingUnavailable = fmt.Errorf("%w: listing is not available for purchase", ErrNotFound)

const orderColumns = `o.id, o.buyer_id, o.listing_id, o.status, o.total_price, o.quantity,
	o.shipping_address, o.notes, o.payment_method, o.cancellation_reason, o.created_at,
	o.confirmed_at, o.shipped_at, o.completed_at, o.cancelled_at`

const pgUniqueViolation = "23505"

// AutoCompleteScheduler ставит отложенное автозавершение оплаченного заказа
type AutoCompleteScheduler interface {
	ScheduleAutoComplete(ctx context.Context, orderID uuid.UUID, delay time.Duration) error
}

// OrderService представляет сервис для работы с заказами
type OrderService struct {
	db        *database.DB
	scheduler AutoCompleteScheduler
	delay     time.Duration
	log       *logger.Logger
}

// NewOrderService создает новый экземпляр сервиса заказов
func NewOrderService(db *database.DB, scheduler AutoCompleteScheduler, jobs config.JobsConfig, log *logger.Logger) *OrderService {
	return &OrderService{
		db:        db,
		scheduler: scheduler,
		delay:     jobs.AutoCompleteDelay,
		log:       log,
	}
}

// AutoCompleteDelay возвращает задержку автозавершения
func (s *OrderService) AutoCompleteDelay() time.Duration {
	return s.delay
}

func scanOrder(row interface{ Scan(...interface{}) error }) (*models.Order, error) {
	o := &models.Order{}
	l := &models.Listing{}
	err := row.Scan(
		&o.ID, &o.BuyerID, &o.ListingID, &o.Status, &o.TotalPrice, &o.Quantity,
		&o.ShippingAddress, &o.Notes, &o.PaymentMethod, &o.CancellationReason, &o.CreatedAt,
		&o.ConfirmedAt, &o.ShippedAt, &o.CompletedAt, &o.CancelledAt,
		&l.ID, &l.SellerID, &l.SellerName, &l.SellerRating, &l.Name, &l.Description,
		&l.Price, &l.Category, &l.Condition, &l.ImagePath, &l.IsActive, &l.IsSold, &l.ViewsCount, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Listing = l
	return o, nil
}

// lockOrder блокирует заказ покупателя (без строки объявления)
func lockOrder(ctx context.Context, tx *sql.Tx, buyerID, orderID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(tx.QueryRowContext(ctx, `
		SELECT `+orderColumns+`, `+listingColumns+`
		FROM orders o
		JOIN marketplace_listings l ON l.id = o.listing_id
		WHERE o.id = $1 AND o.buyer_id = $2
		FOR UPDATE OF o
	`, orderID, buyerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// CreateOrder создает заказ и помечает объявление проданным в одной
// транзакции. Строка объявления блокируется, а флаг is_sold меняется
// только из false, поэтому из параллельных заказов проходит один.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req *models.CreateOrderRequest) (*models.Order, error) {
	quantity := req.QuantityOrDefault()

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		listing, err := lockListing(ctx, tx, req.ListingID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrListingUnavailable
			}
			return err
		}

		if !listing.Purchasable() {
			return ErrListingUnavailable
		}
		if listing.SellerID == buyerID {
			return ErrSelfPurchase
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx, `
			UPDATE marketplace_listings
			SET is_sold = TRUE, updated_at = $1
			WHERE id = $2 AND is_sold = FALSE
		`, now, listing.ID)
		if err != nil {
			return fmt.Errorf("failed to reserve listing: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrListingUnavailable
		}

		order = &models.Order{
			ID:              uuid.New(),
			BuyerID:         buyerID,
			ListingID:       listing.ID,
			Status:          models.OrderStatusPending,
			TotalPrice:      listing.Price.Mul(decimal.NewFromInt(int64(quantity))),
			Quantity:        quantity,
			ShippingAddress: req.ShippingAddress,
			Notes:           req.Notes,
			CreatedAt:       now,
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO orders (id, buyer_id, listing_id, status, total_price, quantity,
				shipping_address, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		`, order.ID, order.BuyerID, order.ListingID, order.Status, order.TotalPrice,
			order.Quantity, order.ShippingAddress, order.Notes, now)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
				return ErrListingUnavailable
			}
			return fmt.Errorf("failed to create order: %w", err)
		}

		listing.IsSold = true
		order.Listing = listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":    order.ID,
		"buyer_id":    buyerID,
		"listing_id":  order.ListingID,
		"quantity":    quantity,
		"total_price": order.TotalPrice.String(),
	}).Info("Order created successfully")

	return order, nil
}

// Pay подтверждает ожидающий заказ (оплата симулируется) и ставит
// отложенное автозавершение
func (s *OrderService) Pay(ctx context.Context, buyerID, orderID uuid.UUID, req *models.PayOrderRequest) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, buyerID, orderID)
		if err != nil {
			return err
		}

		if o.Status != models.OrderStatusPending {
			return &StateError{
				Entity:    "order",
				Operation: "pay",
				Current:   string(o.Status),
				Required:  string(models.OrderStatusPending),
			}
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1, confirmed_at = $2, payment_method = $3, payment_proof = $4, updated_at = $2
			WHERE id = $5
		`, models.OrderStatusConfirmed, now, req.PaymentMethod, req.PaymentProof, o.ID)
		if err != nil {
			return fmt.Errorf("failed to confirm order: %w", err)
		}

		o.Status = models.OrderStatusConfirmed
		o.ConfirmedAt = &now
		o.PaymentMethod = &req.PaymentMethod
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.scheduler.ScheduleAutoComplete(ctx, order.ID, s.delay); err != nil {
		// заказ все равно завершит периодическая проверка просроченных
		s.log.WithField("order_id", order.ID).WithError(err).Error("Failed to schedule order auto-complete")
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":       order.ID,
		"payment_method": req.PaymentMethod,
	}).Info("Order paid")

	return order, nil
}

// Cancel отменяет ожидающий заказ и возвращает объявление в продажу
// в той же транзакции
func (s *OrderService) Cancel(ctx context.Context, buyerID, orderID uuid.UUID, reason *string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		o, err := lockOrder(ctx, tx, buyerID, orderID)
		if err != nil {
			return err
		}

		if o.Status != models.OrderStatusPending {
			return &StateError{
				Entity:    "order",
				Operation: "cancel",
				Current:   string(o.Status),
				Required:  string(models.OrderStatusPending),
			}
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE orders
			SET status = $1, cancelled_at = $2, cancellation_reason = $3, updated_at = $2
			WHERE id = $4
		`, models.OrderStatusCancelled, now, reason, o.ID)
		if err != nil {
			return fmt.Errorf("failed to cancel order: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE marketplace_listings SET is_sold = FALSE, updated_at = $1 WHERE id = $2
		`, now, o.ListingID)
		if err != nil {
			return fmt.Errorf("failed to release listing: %w", err)
		}

		o.Status = models.OrderStatusCancelled
		o.CancelledAt = &now
		o.CancellationReason = reason
		o.Listing.IsSold = false
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"order_id":   orderID,
		"listing_id": order.ListingID,
	}).Info("Order cancelled, listing released")

	return order, nil
}

// AutoComplete завершает заказ, только если он все еще подтвержден.
// Для заказа в любом другом статусе это no-op, возвращается nil.
func (s *OrderService) AutoComplete(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	now := time.Now()
	order := &models.Order{ID: orderID, Status: models.OrderStatusCompleted, CompletedAt: &now}

	err := s.db.QueryRowContext(ctx, `
		UPDATE orders
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING buyer_id, listing_id
	`, models.OrderStatusCompleted, now, orderID, models.OrderStatusConfirmed).Scan(&order.BuyerID, &order.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.log.WithField("order_id", orderID).Info("Auto-complete skipped: order is no longer confirmed")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to auto-complete order: %w", err)
	}

	s.log.WithField("order_id", orderID).Info("Order auto-completed")
	return order, nil
}

// CompleteOverdue завершает подтвержденные заказы старше olderThan
// и возвращает завершенные заказы
func (s *OrderService) CompleteOverdue(ctx context.Context, olderThan time.Duration) ([]*models.Order, error) {
	now := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		UPDATE orders
		SET status = $1, completed_at = $2, updated_at = $2
		WHERE status = $3 AND confirmed_at <= $4
		RETURNING id, buyer_id, listing_id
	`, models.OrderStatusCompleted, now, models.OrderStatusConfirmed, now.Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to complete overdue orders: %w", err)
	}
	defer rows.Close()

	var completed []*models.Order
	for rows.Next() {
		order := &models.Order{Status: models.OrderStatusCompleted, CompletedAt: &now}
		if err := rows.Scan(&order.ID, &order.BuyerID, &order.ListingID); err != nil {
			return nil, fmt.Errorf("failed to scan completed order: %w", err)
		}
		completed = append(completed, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read completed orders: %w", err)
	}

	if len(completed) > 0 {
		s.log.WithField("count", len(completed)).Info("Overdue orders completed")
	}
	return completed, nil
}

// List возвращает заказы покупателя, новые первыми
func (s *OrderService) List(ctx context.Context, buyerID uuid.UUID) ([]*models.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+orderColumns+`, `+listingColumns+`
		FROM orders o
		JOIN marketplace_listings l ON l.id = o.listing_id
		WHERE o.buyer_id = $1
		ORDER BY o.created_at DESC
	`, buyerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	defer rows.Close()

	orders := []*models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// Get возвращает заказ покупателя
func (s *OrderService) Get(ctx context.Context, buyerID, orderID uuid.UUID) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`, `+listingColumns+`
		FROM orders o
		JOIN marketplace_listings l ON l.id = o.listing_id
		WHERE o.id = $1 AND o.buyer_id = $2
	`, orderID, buyerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", orderID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}
