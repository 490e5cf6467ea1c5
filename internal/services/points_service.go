package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pickup-market/internal/database"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/google/uuid"
)

const rewardsHistoryLimit = 50

// PointsService ведет баланс и историю баллов пользователей
type PointsService struct {
	db  *database.DB
	log *logger.Logger
}

// NewPointsService создает сервис баллов
func NewPointsService(db *database.DB, log *logger.Logger) *PointsService {
	return &PointsService{
		db:  db,
		log: log,
	}
}

// Credit начисляет баллы внутри переданной транзакции: увеличивает баланс
// и пишет запись в историю.
func (s *PointsService) Credit(ctx context.Context, tx *sql.Tx, userID uuid.UUID, points int, description string, referenceID *uuid.UUID) error {
	now := time.Now()

	result, err := tx.ExecContext(ctx, `
		UPDATE users
		SET points_balance = points_balance + $1, updated_at = $2
		WHERE id = $3
	`, points, now, userID)
	if err != nil {
		return fmt.Errorf("failed to credit points: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO points_history (id, user_id, points, type, description, reference_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), userID, points, models.PointsEarned, description, referenceID, now)
	if err != nil {
		return fmt.Errorf("failed to write points history: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"user_id": userID,
		"points":  points,
	}).Info("Points credited")

	return nil
}

// Summary возвращает баланс пользователя и последние записи истории
func (s *PointsService) Summary(ctx context.Context, userID uuid.UUID) (*models.RewardsSummary, error) {
	summary := &models.RewardsSummary{History: []models.PointsEntry{}}

	err := s.db.QueryRowContext(ctx,
		"SELECT points_balance, total_pickups FROM users WHERE id = $1", userID,
	).Scan(&summary.PointsBalance, &summary.TotalPickups)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get points balance: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, points, type, description, reference_id, created_at
		FROM points_history
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, rewardsHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get points history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.PointsEntry
		var ref uuid.NullUUID
		if err := rows.Scan(&e.ID, &e.UserID, &e.Points, &e.Type, &e.Description, &ref, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan points entry: %w", err)
		}
		if ref.Valid {
			id := ref.UUID
			e.ReferenceID = &id
		}
		summary.History = append(summary.History, e)
	}

	return summary, rows.Err()
}
