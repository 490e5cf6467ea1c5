package services

import (
	"context"
	"fmt"
	"sort"

	"pickup-market/internal/database"
	"pickup-market/internal/logger"
	"pickup-market/internal/models"

	"github.com/lib/pq"
)

// CategoryService отдает справочник категорий отходов
type CategoryService struct {
	db    *database.DB
	cache *CacheService
	log   *logger.Logger
}

// NewCategoryService создает сервис категорий
func NewCategoryService(db *database.DB, cache *CacheService, log *logger.Logger) *CategoryService {
	return &CategoryService{
		db:    db,
		cache: cache,
		log:   log,
	}
}

// ListActive возвращает активные категории, сначала из кеша
func (s *CategoryService) ListActive(ctx context.Context) ([]models.WasteCategory, error) {
	var cached []models.WasteCategory
	if found, _ := s.cache.Get(ctx, CategoriesKey(), &cached); found {
		return cached, nil
	}

	categories, err := s.loadActive(ctx)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, CategoriesKey(), categories, s.cache.GetHotDataTTL())
	return categories, nil
}

// WarmupEntry отдает функцию прогрева для CacheService.WarmupCache
func (s *CategoryService) WarmupEntry(ctx context.Context) map[string]func() (interface{}, error) {
	return map[string]func() (interface{}, error){
		CategoriesKey(): func() (interface{}, error) {
			return s.loadActive(ctx)
		},
	}
}

func (s *CategoryService) loadActive(ctx context.Context) ([]models.WasteCategory, error) {
	query := `
		SELECT id, type, label, emoji, is_active
		FROM waste_categories
		WHERE is_active = TRUE
		ORDER BY type
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get waste categories: %w", err)
	}
	defer rows.Close()

	categories := []models.WasteCategory{}
	for rows.Next() {
		var c models.WasteCategory
		if err := rows.Scan(&c.ID, &c.Type, &c.Label, &c.Emoji, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan waste category: %w", err)
		}
		categories = append(categories, c)
	}

	return categories, rows.Err()
}

// Resolve сопоставляет слаги с активными категориями. Если хотя бы один
// слаг не найден, возвращается *InvalidCategoryError со всеми пропусками.
func (s *CategoryService) Resolve(ctx context.Context, q database.Querier, slugs []string) (map[string]models.WasteCategory, error) {
	query := `
		SELECT id, type, label, emoji, is_active
		FROM waste_categories
		WHERE type = ANY($1) AND is_active = TRUE
	`

	rows, err := q.QueryContext(ctx, query, pq.Array(slugs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve waste categories: %w", err)
	}
	defer rows.Close()

	found := make(map[string]models.WasteCategory, len(slugs))
	for rows.Next() {
		var c models.WasteCategory
		if err := rows.Scan(&c.ID, &c.Type, &c.Label, &c.Emoji, &c.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan waste category: %w", err)
		}
		found[c.Type] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to resolve waste categories: %w", err)
	}

	var missing []string
	for _, slug := range slugs {
		if _, ok := found[slug]; !ok {
			missing = append(missing, slug)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &InvalidCategoryError{Missing: missing}
	}

	return found, nil
}

// dedupeSlugs убирает повторы, сохраняя порядок первого вхождения
func dedupeSlugs(slugs []string) []string {
	seen := make(map[string]struct{}, len(slugs))
	out := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
