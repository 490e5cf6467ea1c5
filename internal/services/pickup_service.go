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
)

const pickupColumns = `p.id, p.user_id, p.courier_id, p.status, p.address, p.latitude, p.longitude,
	to_char(p.pickup_date, 'YYYY-MM-DD'), p.pickup_time, p.notes, p.points_awarded,
	p.estimated_weight_kg, p.completed_at, p.cancelled_at, p.cancellation_reason, p.created_at`

// PickupService представляет сервис заявок на вывоз отходов
type PickupService struct {
	db         *database.DB
	categories *CategoryService
	points     *PointsService
	couriers   *CourierService
	rewards    config.RewardsConfig
	log        *logger.Logger
}

// PickupTransition - результат смены статуса заявки курьером
type PickupTransition struct {
	Pickup          *models.PickupRequest
	From            models.PickupStatus
	CourierReleased bool
}

// NewPickupService создает сервис заявок
func NewPickupService(db *database.DB, categories *CategoryService, points *PointsService,
	couriers *CourierService, rewards config.RewardsConfig, log *logger.Logger) *PickupService {
	return &PickupService{
		db:         db,
		categories: categories,
		points:     points,
		couriers:   couriers,
		rewards:    rewards,
		log:        log,
	}
}

func scanPickup(row interface{ Scan(...interface{}) error }, extra ...interface{}) (*models.PickupRequest, error) {
	p := &models.PickupRequest{TrashTypes: []models.PickupItem{}}
	dest := []interface{}{
		&p.ID, &p.UserID, &p.CourierID, &p.Status, &p.Address, &p.Latitude, &p.Longitude,
		&p.PickupDate, &p.PickupTime, &p.Notes, &p.PointsAwarded,
		&p.EstimatedWeightKg, &p.CompletedAt, &p.CancelledAt, &p.CancellationReason, &p.CreatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return p, nil
}

// loadPickupItems подгружает категории всех заявок одним запросом
func loadPickupItems(ctx context.Context, q database.Querier, pickups []*models.PickupRequest) error {
	if len(pickups) == 0 {
		return nil
	}

	ids := make([]string, len(pickups))
	byID := make(map[uuid.UUID]*models.PickupRequest, len(pickups))
	for i, p := range pickups {
		ids[i] = p.ID.String()
		byID[p.ID] = p
	}

	rows, err := q.QueryContext(ctx, `
		SELECT pi.id, pi.pickup_request_id, c.id, c.type, c.label, c.emoji, pi.estimated_weight_kg
		FROM pickup_items pi
		JOIN waste_categories c ON c.id = pi.waste_category_id
		WHERE pi.pickup_request_id = ANY($1)
		ORDER BY c.type
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to get pickup items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item models.PickupItem
		if err := rows.Scan(&item.ID, &item.PickupID, &item.CategoryID, &item.Type,
			&item.Label, &item.Emoji, &item.EstimatedWeightKg); err != nil {
			return fmt.Errorf("failed to scan pickup item: %w", err)
		}
		if p, ok := byID[item.PickupID]; ok {
			p.TrashTypes = append(p.TrashTypes, item)
		}
	}

	return rows.Err()
}

// Create создает заявку с позициями по каждому слагу. Заявка, позиции и
// счетчик total_pickups пишутся в одной транзакции.
func (s *PickupService) Create(ctx context.Context, userID uuid.UUID, req *models.CreatePickupRequest) (*models.PickupRequest, error) {
	slugs := dedupeSlugs(req.TrashTypes)
	now := time.Now()

	pickup := &models.PickupRequest{
		ID:         uuid.New(),
		UserID:     userID,
		Status:     models.PickupStatusPending,
		Address:    req.Address,
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		PickupDate: req.PickupDate,
		PickupTime: req.PickupTime,
		Notes:      req.Notes,
		CreatedAt:  now,
		TrashTypes: make([]models.PickupItem, 0, len(slugs)),
	}

	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		categories, err := s.categories.Resolve(ctx, tx, slugs)
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE users SET total_pickups = total_pickups + 1, updated_at = $1 WHERE id = $2
		`, now, userID)
		if err != nil {
			return fmt.Errorf("failed to update user counters: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO pickup_requests (id, user_id, address, latitude, longitude, pickup_date,
				pickup_time, status, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		`, pickup.ID, pickup.UserID, pickup.Address, pickup.Latitude, pickup.Longitude,
			pickup.PickupDate, pickup.PickupTime, pickup.Status, pickup.Notes, now)
		if err != nil {
			return fmt.Errorf("failed to create pickup: %w", err)
		}

		for _, slug := range slugs {
			category := categories[slug]
			item := models.PickupItem{
				ID:         uuid.New(),
				PickupID:   pickup.ID,
				CategoryID: category.ID,
				Type:       category.Type,
				Label:      category.Label,
				Emoji:      category.Emoji,
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO pickup_items (id, pickup_request_id, waste_category_id)
				VALUES ($1, $2, $3)
			`, item.ID, item.PickupID, item.CategoryID)
			if err != nil {
				return fmt.Errorf("failed to create pickup item: %w", err)
			}

			pickup.TrashTypes = append(pickup.TrashTypes, item)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"pickup_id":   pickup.ID,
		"user_id":     userID,
		"trash_types": slugs,
		"pickup_date": pickup.PickupDate,
	}).Info("Pickup request created successfully")

	return pickup, nil
}

// List возвращает заявки пользователя, новые первыми
func (s *PickupService) List(ctx context.Context, userID uuid.UUID) ([]*models.PickupRequest, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pickupColumns+`
		FROM pickup_requests p
		WHERE p.user_id = $1
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pickups: %w", err)
	}
	defer rows.Close()

	pickups := []*models.PickupRequest{}
	for rows.Next() {
		p, err := scanPickup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pickup: %w", err)
		}
		pickups = append(pickups, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get pickups: %w", err)
	}

	if err := loadPickupItems(ctx, s.db, pickups); err != nil {
		return nil, err
	}
	return pickups, nil
}

// Get возвращает заявку владельца
func (s *PickupService) Get(ctx context.Context, userID, pickupID uuid.UUID) (*models.PickupRequest, error) {
	p, err := scanPickup(s.db.QueryRowContext(ctx, `
		SELECT `+pickupColumns+`
		FROM pickup_requests p
		WHERE p.id = $1 AND p.user_id = $2
	`, pickupID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("pickup %s: %w", pickupID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get pickup: %w", err)
	}

	if err := loadPickupItems(ctx, s.db, []*models.PickupRequest{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// AdvanceStatus продвигает заявку, назначенную курьеру. Переход в done
// начисляет баллы, отмечает завершение и при необходимости освобождает
// курьера в той же транзакции.
func (s *PickupService) AdvanceStatus(ctx context.Context, courierID, pickupID uuid.UUID, target models.PickupStatus) (*PickupTransition, error) {
	if target != models.PickupStatusOnTheWay && target != models.PickupStatusDone {
		return nil, validationError("courier may only set status to '%s' or '%s'",
			models.PickupStatusOnTheWay, models.PickupStatusDone)
	}

	var transition *PickupTransition
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPickup(tx.QueryRowContext(ctx, `
			SELECT `+pickupColumns+`
			FROM pickup_requests p
			WHERE p.id = $1 AND p.courier_id = $2
			FOR UPDATE
		`, pickupID, courierID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("pickup %s: %w", pickupID, ErrNotFound)
			}
			return fmt.Errorf("failed to get pickup: %w", err)
		}

		from := p.Status
		if !from.CanTransitionTo(target) {
			return &TransitionError{Entity: "pickup", From: string(from), To: string(target)}
		}

		now := time.Now()
		transition = &PickupTransition{Pickup: p, From: from}

		if target == models.PickupStatusDone {
			points := s.rewards.PickupCompletionPoints

			_, err = tx.ExecContext(ctx, `
				UPDATE pickup_requests
				SET status = $1, completed_at = $2, points_awarded = $3, updated_at = $2
				WHERE id = $4
			`, target, now, points, p.ID)
			if err != nil {
				return fmt.Errorf("failed to complete pickup: %w", err)
			}

			if err := s.points.Credit(ctx, tx, p.UserID, points, "Pickup completed", &p.ID); err != nil {
				return err
			}

			released, err := s.couriers.completeDelivery(ctx, tx, courierID, p.ID)
			if err != nil {
				return err
			}

			p.CompletedAt = &now
			p.PointsAwarded = points
			transition.CourierReleased = released
		} else {
			_, err = tx.ExecContext(ctx, `
				UPDATE pickup_requests SET status = $1, updated_at = $2 WHERE id = $3
			`, target, now, p.ID)
			if err != nil {
				return fmt.Errorf("failed to update pickup status: %w", err)
			}
		}

		p.Status = target
		return loadPickupItems(ctx, tx, []*models.PickupRequest{p})
	})
	if err != nil {
		return nil, err
	}

	if target == models.PickupStatusDone {
		s.couriers.Invalidate(ctx, courierID)
	}

	s.log.WithFields(map[string]interface{}{
		"pickup_id":        pickupID,
		"courier_id":       courierID,
		"old_status":       transition.From,
		"new_status":       target,
		"courier_released": transition.CourierReleased,
	}).Info("Pickup status updated")

	return transition, nil
}

// Cancel отменяет ожидающую заявку владельца. Если заявка уже была
// назначена, курьер освобождается по тому же правилу, что и при завершении.
func (s *PickupService) Cancel(ctx context.Context, userID, pickupID uuid.UUID, reason *string) (*models.PickupRequest, error) {
	var pickup *models.PickupRequest
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := scanPickup(tx.QueryRowContext(ctx, `
			SELECT `+pickupColumns+`
			FROM pickup_requests p
			WHERE p.id = $1 AND p.user_id = $2
			FOR UPDATE
		`, pickupID, userID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("pickup %s: %w", pickupID, ErrNotFound)
			}
			return fmt.Errorf("failed to get pickup: %w", err)
		}

		if p.Status != models.PickupStatusPending {
			return &StateError{
				Entity:    "pickup",
				Operation: "cancel",
				Current:   string(p.Status),
				Required:  string(models.PickupStatusPending),
			}
		}

		now := time.Now()
		_, err = tx.ExecContext(ctx, `
			UPDATE pickup_requests
			SET status = $1, cancelled_at = $2, cancellation_reason = $3, updated_at = $2
			WHERE id = $4
		`, models.PickupStatusCancelled, now, reason, p.ID)
		if err != nil {
			return fmt.Errorf("failed to cancel pickup: %w", err)
		}

		if p.CourierID != nil {
			if err := lockCourier(ctx, tx, *p.CourierID); err != nil {
				return err
			}
			if _, err := releaseIfIdle(ctx, tx, *p.CourierID, p.ID); err != nil {
				return err
			}
		}

		p.Status = models.PickupStatusCancelled
		p.CancelledAt = &now
		p.CancellationReason = reason
		pickup = p

		return loadPickupItems(ctx, tx, []*models.PickupRequest{p})
	})
	if err != nil {
		return nil, err
	}

	if pickup.CourierID != nil {
		s.couriers.Invalidate(ctx, *pickup.CourierID)
	}

	s.log.WithFields(map[string]interface{}{
		"pickup_id": pickupID,
		"user_id":   userID,
	}).Info("Pickup cancelled")

	return pickup, nil
}
