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
)

const listingColumns = `l.id, l.seller_id, l.seller_name, l.seller_rating, l.name, l.description,
	l.price, l.category, l.condition, l.image_path, l.is_active, l.is_sold, l.views_count, l.created_at`

// ListingService представляет сервис объявлений маркетплейса
type ListingService struct {
	db       *database.DB
	wishlist *WishlistService
	log      *logger.Logger
}

// NewListingService создает сервис объявлений
func NewListingService(db *database.DB, wishlist *WishlistService, log *logger.Logger) *ListingService {
	return &ListingService{
		db:       db,
		wishlist: wishlist,
		log:      log,
	}
}

func scanListing(row interface{ Scan(...interface{}) error }) (*models.Listing, error) {
	l := &models.Listing{}
	err := row.Scan(&l.ID, &l.SellerID, &l.SellerName, &l.SellerRating, &l.Name, &l.Description,
		&l.Price, &l.Category, &l.Condition, &l.ImagePath, &l.IsActive, &l.IsSold, &l.ViewsCount, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func scanListings(rows *sql.Rows) ([]*models.Listing, error) {
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// lockListing блокирует строку объявления до конца транзакции
func lockListing(ctx context.Context, tx *sql.Tx, listingID uuid.UUID) (*models.Listing, error) {
	l, err := scanListing(tx.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM marketplace_listings l WHERE l.id = $1 FOR UPDATE", listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock listing: %w", err)
	}
	return l, nil
}

// List возвращает активные непроданные объявления, новые первыми.
// is_wishlisted вычисляется по одному снимку закладок пользователя.
func (s *ListingService) List(ctx context.Context, userID uuid.UUID, filter models.ListingFilter) ([]*models.Listing, error) {
	wishlisted, err := s.wishlist.ListingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + listingColumns + `
		FROM marketplace_listings l
		WHERE l.is_active = TRUE AND l.is_sold = FALSE
	`
	args := []interface{}{}
	argIndex := 1

	if filter.Category != "" {
		query += fmt.Sprintf(" AND l.category = $%d", argIndex)
		args = append(args, filter.Category)
		argIndex++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		query += fmt.Sprintf(" AND (l.name ILIKE $%d OR l.description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+search+"%")
	}

	query += " ORDER BY l.created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get listings: %w", err)
	}

	listings, err := scanListings(rows)
	if err != nil {
		return nil, err
	}

	for _, l := range listings {
		_, l.IsWishlisted = wishlisted[l.ID]
	}
	return listings, nil
}

// Get возвращает объявление и увеличивает счетчик просмотров.
// Ошибка счетчика только логируется.
func (s *ListingService) Get(ctx context.Context, userID, listingID uuid.UUID) (*models.Listing, error) {
	l, err := scanListing(s.db.QueryRowContext(ctx,
		"SELECT "+listingColumns+" FROM marketplace_listings l WHERE l.id = $1 AND l.is_active = TRUE", listingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE marketplace_listings SET views_count = views_count + 1 WHERE id = $1", listingID); err != nil {
		s.log.WithField("listing_id", listingID).WithError(err).Warn("Failed to increment listing views")
	} else {
		l.ViewsCount++
	}

	l.IsWishlisted, err = s.wishlist.Contains(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}

	return l, nil
}

// Mine возвращает все объявления продавца, включая проданные и снятые
func (s *ListingService) Mine(ctx context.Context, sellerID uuid.UUID) ([]*models.Listing, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+listingColumns+`
		FROM marketplace_listings l
		WHERE l.seller_id = $1
		ORDER BY l.created_at DESC
	`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seller listings: %w", err)
	}
	return scanListings(rows)
}

// Create создает объявление от имени продавца
func (s *ListingService) Create(ctx context.Context, sellerID uuid.UUID, req *models.CreateListingRequest) (*models.Listing, error) {
	now := time.Now()

	l, err := scanListing(s.db.QueryRowContext(ctx, `
		INSERT INTO marketplace_listings AS l (id, seller_id, seller_name, name, description, price,
			category, condition, created_at, updated_at)
		SELECT $1, u.id, u.name, $3, $4, $5, $6, $7, $8, $8
		FROM users u
		WHERE u.id = $2
		RETURNING `+listingColumns,
		uuid.New(), sellerID, req.Name, req.Description, req.Price, req.Category, req.Condition, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("seller %s: %w", sellerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}

	s.log.WithFields(map[string]interface{}{
		"listing_id": l.ID,
		"seller_id":  sellerID,
		"price":      l.Price.String(),
	}).Info("Listing created successfully")

	return l, nil
}

// lockOwned блокирует активное объявление продавца; проданное заморожено
func lockOwned(ctx context.Context, tx *sql.Tx, sellerID, listingID uuid.UUID) error {
	l, err := lockListing(ctx, tx, listingID)
	if err != nil {
		return err
	}
	if l.SellerID != sellerID || !l.IsActive {
		return fmt.Errorf("listing %s: %w", listingID, ErrNotFound)
	}
	if l.IsSold {
		return fmt.Errorf("listing %s is sold and can no longer be changed: %w", listingID, ErrConflict)
	}
	return nil
}

// Update меняет переданные поля объявления
func (s *ListingService) Update(ctx context.Context, sellerID, listingID uuid.UUID, req *models.UpdateListingRequest) (*models.Listing, error) {
	var updated *models.Listing
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockOwned(ctx, tx, sellerID, listingID); err != nil {
			return err
		}

		sets := []string{}
		args := []interface{}{}
		add := func(column string, value interface{}) {
			args = append(args, value)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}

		if req.Name != nil {
			add("name", *req.Name)
		}
		if req.Description != nil {
			add("description", *req.Description)
		}
		if req.Price != nil {
			add("price", *req.Price)
		}
		if req.Category != nil {
			add("category", *req.Category)
		}
		if req.Condition != nil {
			add("condition", *req.Condition)
		}
		add("updated_at", time.Now())

		args = append(args, listingID)
		query := fmt.Sprintf("UPDATE marketplace_listings l SET %s WHERE l.id = $%d RETURNING %s",
			strings.Join(sets, ", "), len(args), listingColumns)

		l, err := scanListing(tx.QueryRowContext(ctx, query, args...))
		if err != nil {
			return fmt.Errorf("failed to update listing: %w", err)
		}
		updated = l
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithField("listing_id", listingID).Info("Listing updated")
	return updated, nil
}

// Destroy снимает объявление с публикации (мягкое удаление)
func (s *ListingService) Destroy(ctx context.Context, sellerID, listingID uuid.UUID) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := lockOwned(ctx, tx, sellerID, listingID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			"UPDATE marketplace_listings SET is_active = FALSE, updated_at = $1 WHERE id = $2",
			time.Now(), listingID)
		if err != nil {
			return fmt.Errorf("failed to delete listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithField("listing_id", listingID).Info("Listing deleted")
	return nil
}
