package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pickup-market/internal/database"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const courierColumns = `id, name, email, phone, vehicle_type, vehicle_plate, status,
	is_available, rating, total_deliveries, updated_at`

// CourierService представляет сервис для работы с курьерами
type CourierService struct {
	db    *database.DB
	cache *CacheService
	log   *logger.Logger
}

// NewCourierService создает новый экземпляр сервиса курьеров
func NewCourierService(db *database.DB, cache *CacheService, log *logger.Logger) *CourierService {
	return &CourierService{
		db:    db,
		cache: cache,
		log:   log,
	}
}

func scanCourier(row interface{ Scan(...interface{}) error }) (*models.Courier, error) {
	c := &models.Courier{}
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.VehicleType, &c.VehiclePlate,
		&c.Status, &c.IsAvailable, &c.Rating, &c.TotalDeliveries, &c.UpdatedAt)
	return c, err
}

// GetProfile получает профиль курьера
func (s *CourierService) GetProfile(ctx context.Context, courierID uuid.UUID) (*models.Courier, error) {
	var cached models.Courier
	if found, _ := s.cache.Get(ctx, CourierKey(courierID), &cached); found {
		return &cached, nil
	}

	courier, err := scanCourier(s.db.QueryRowContext(ctx,
		"SELECT "+courierColumns+" FROM couriers WHERE id = $1", courierID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("courier %s: %w", courierID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get courier: %w", err)
	}

	_ = s.cache.Set(ctx, CourierKey(courierID), courier, s.cache.GetDefaultTTL())
	return courier, nil
}

// queuePriority строит CASE по models.CourierQueueOrder
func queuePriority() string {
	var b strings.Builder
	b.WriteString("CASE p.status")
	for i, status := range models.CourierQueueOrder {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", status, i)
	}
	fmt.Fprintf(&b, " ELSE %d END", len(models.CourierQueueOrder))
	return b.String()
}

// ListAssigned возвращает заявки курьера: сначала в пути, затем ожидающие,
// затем история; внутри группы по дате и времени вывоза
func (s *CourierService) ListAssigned(ctx context.Context, courierID uuid.UUID) ([]*models.PickupRequest, error) {
	query := `
		SELECT ` + pickupColumns + `, u.id, u.name, u.phone
		FROM pickup_requests p
		JOIN users u ON u.id = p.user_id
		WHERE p.courier_id = $1
		ORDER BY ` + queuePriority() + `, p.pickup_date ASC, p.pickup_time ASC
	`

	rows, err := s.db.QueryContext(ctx, query, courierID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assigned pickups: %w", err)
	}
	defer rows.Close()

	pickups := []*models.PickupRequest{}
	for rows.Next() {
		customer := &models.CustomerBrief{}
		p, err := scanPickup(rows, &customer.ID, &customer.Name, &customer.Phone)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pickup: %w", err)
		}
		p.Customer = customer
		pickups = append(pickups, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get assigned pickups: %w", err)
	}

	if err := loadPickupItems(ctx, s.db, pickups); err != nil {
		return nil, err
	}

	return pickups, nil
}

// SetAvailability вручную переключает доступность курьера. Число активных
// заявок не проверяется; при гонке с освобождением побеждает последняя запись.
func (s *CourierService) SetAvailability(ctx context.Context, courierID uuid.UUID, available bool) (*models.Courier, error) {
	courier, err := scanCourier(s.db.QueryRowContext(ctx, `
		UPDATE couriers
		SET is_available = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+courierColumns, available, time.Now(), courierID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("courier %s: %w", courierID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update courier availability: %w", err)
	}

	s.Invalidate(ctx, courierID)

	s.log.WithFields(map[string]interface{}{
		"courier_id":   courierID,
		"is_available": available,
	}).Info("Courier availability updated")

	return courier, nil
}

// AssignPickup назначает ожидающую заявку доступному курьеру
func (s *CourierService) AssignPickup(ctx context.Context, courierID, pickupID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var status models.CourierStatus
		var available bool
		err := tx.QueryRowContext(ctx,
			"SELECT status, is_available FROM couriers WHERE id = $1 FOR UPDATE", courierID,
		).Scan(&status, &available)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("courier %s: %w", courierID, ErrNotFound)
			}
			return fmt.Errorf("failed to check courier status: %w", err)
		}

		if !available || status == models.CourierStatusInactive {
			return &StateError{Entity: "courier", Operation: "assign", Current: "unavailable", Required: "available"}
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx, `
			UPDATE pickup_requests
			SET courier_id = $1, updated_at = $2
			WHERE id = $3 AND status = $4 AND courier_id IS NULL
		`, courierID, now, pickupID, models.PickupStatusPending)
		if err != nil {
			return fmt.Errorf("failed to assign pickup to courier: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("pending unassigned pickup %s: %w", pickupID, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE couriers
			SET status = $1, is_available = FALSE, updated_at = $2
			WHERE id = $3
		`, models.CourierStatusBusy, now, courierID)
		if err != nil {
			return fmt.Errorf("failed to update courier status: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.Invalidate(ctx, courierID)

	s.log.WithFields(map[string]interface{}{
		"pickup_id":  pickupID,
		"courier_id": courierID,
	}).Info("Pickup assigned to courier successfully")

	return nil
}

// completeDelivery учитывает завершенную заявку и освобождает курьера,
// если у него не осталось активных заявок
func (s *CourierService) completeDelivery(ctx context.Context, tx *sql.Tx, courierID, pickupID uuid.UUID) (bool, error) {
	if err := lockCourier(ctx, tx, courierID); err != nil {
		return false, err
	}

	_, err := tx.ExecContext(ctx, `
		UPDATE couriers
		SET total_deliveries = total_deliveries + 1, updated_at = $1
		WHERE id = $2
	`, time.Now(), courierID)
	if err != nil {
		return false, fmt.Errorf("failed to update courier deliveries: %w", err)
	}

	return releaseIfIdle(ctx, tx, courierID, pickupID)
}

// lockCourier берет блокировку строки курьера. Любой подсчет активных
// заявок курьера выполняется только под ней.
func lockCourier(ctx context.Context, tx *sql.Tx, courierID uuid.UUID) error {
	var id uuid.UUID
	err := tx.QueryRowContext(ctx, "SELECT id FROM couriers WHERE id = $1 FOR UPDATE", courierID).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("courier %s: %w", courierID, ErrNotFound)
		}
		return fmt.Errorf("failed to lock courier: %w", err)
	}
	return nil
}

// releaseIfIdle возвращает курьера в {active, available}, если кроме
// excludeID у него нет заявок в активных статусах. Вызывающий держит lockCourier.
func releaseIfIdle(ctx context.Context, tx *sql.Tx, courierID, excludeID uuid.UUID) (bool, error) {
	statuses := make([]string, len(models.ActivePickupStatuses))
	for i, st := range models.ActivePickupStatuses {
		statuses[i] = string(st)
	}

	var remaining int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM pickup_requests
		WHERE courier_id = $1 AND id <> $2 AND status = ANY($3)
	`, courierID, excludeID, pq.Array(statuses)).Scan(&remaining)
	if err != nil {
		return false, fmt.Errorf("failed to count active pickups: %w", err)
	}

	if remaining > 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE couriers
		SET status = $1, is_available = TRUE, updated_at = $2
		WHERE id = $3
	`, models.CourierStatusActive, time.Now(), courierID)
	if err != nil {
		return false, fmt.Errorf("failed to release courier: %w", err)
	}

	return true, nil
}

// Invalidate сбрасывает кешированный профиль курьера
func (s *CourierService) Invalidate(ctx context.Context, courierID uuid.UUID) {
	if err := s.cache.Delete(ctx, CourierKey(courierID)); err != nil {
		s.log.WithField("courier_id", courierID).WithError(err).Warn("Failed to invalidate courier cache")
	}
}
