package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"pickup-market/internal/database"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/google/uuid"
)

// WishlistService ведет закладки пользователя на объявления
type WishlistService struct {
	db  *database.DB
	log *logger.Logger
}

// NewWishlistService создает сервис закладок
func NewWishlistService(db *database.DB, log *logger.Logger) *WishlistService {
	return &WishlistService{
		db:  db,
		log: log,
	}
}

// Toggle удаляет закладку, если она есть, иначе создает ее.
// Возвращает итоговое состояние.
func (s *WishlistService) Toggle(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var wishlisted bool
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			"DELETE FROM wishlists WHERE user_id = $1 AND listing_id = $2", userID, listingID)
		if err != nil {
			return fmt.Errorf("failed to remove wishlist entry: %w", err)
		}
		removed, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if removed > 0 {
			wishlisted = false
			return nil
		}

		result, err = tx.ExecContext(ctx, `
			INSERT INTO wishlists (user_id, listing_id, created_at)
			SELECT $1, l.id, $3 FROM marketplace_listings l WHERE l.id = $2
			ON CONFLICT DO NOTHING
		`, userID, listingID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to add wishlist entry: %w", err)
		}
		added, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if added > 0 {
			wishlisted = true
			return nil
		}

		// Ничего не вставлено: либо объявления нет, либо параллельный запрос
		// уже создал закладку.
		var exists bool
		if err := tx.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM marketplace_listings WHERE id = $1)", listingID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check listing: %w", err)
		}
		if !exists {
			return fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
		}
		wishlisted = true
		return nil
	})
	if err != nil {
		return false, err
	}

	s.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"listing_id": listingID,
		"wishlisted": wishlisted,
	}).Info("Wishlist toggled")

	return wishlisted, nil
}

// ListingIDs возвращает множество объявлений в закладках пользователя
func (s *WishlistService) ListingIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT listing_id FROM wishlists WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}
	defer rows.Close()

	ids := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan wishlist entry: %w", err)
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// Contains проверяет, есть ли объявление в закладках
func (s *WishlistService) Contains(ctx context.Context, userID, listingID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM wishlists WHERE user_id = $1 AND listing_id = $2)", userID, listingID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check wishlist: %w", err)
	}
	return exists, nil
}

// List возвращает объявления из закладок, последние добавленные первыми
func (s *WishlistService) List(ctx context.Context, userID uuid.UUID) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM wishlists w
		JOIN marketplace_listings l ON l.id = w.listing_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get wishlist: %w", err)
	}

	listings, err := scanListings(rows)
	if err != nil {
		return nil, err
	}
	for _, l := range listings {
		l.IsWishlisted = true
	}
	return listings, nil
}
