package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/logger"
	"pickup-market/internal/redis"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CacheService управляет кешированием данных
type CacheService struct {
	redis     *redis.Client
	config    *config.CacheConfig
	logger    *logger.Logger
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// CacheMetrics представляет метрики кеширования
type CacheMetrics struct {
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	TotalReqs uint64  `json:"total_requests"`
	HitRate   float64 `json:"hit_rate"`
	CacheSize int64   `json:"cache_size"`
	// Keys - число ключей по префиксам кешируемых данных
	Keys map[string]int64 `json:"keys"`
}

var cachedPrefixes = []string{redis.KeyPrefixCategories, redis.KeyPrefixCourier}

// NewCacheService создает новый сервис кеширования
func NewCacheService(redis *redis.Client, cfg *config.CacheConfig, log *logger.Logger) *CacheService {
	return &CacheService{
		redis:  redis,
		config: cfg,
		logger: log,
	}
}

// Enabled сообщает, включен ли кеш
func (s *CacheService) Enabled() bool {
	return s.config.Enabled && s.redis != nil
}

// Get получает данные из кеша и десериализует в target
func (s *CacheService) Get(ctx context.Context, key string, target interface{}) (bool, error) {
	if !s.Enabled() {
		s.misses.Add(1)
		return false, nil
	}

	if err := s.redis.Get(ctx, key, target); err != nil {
		if errors.Is(err, redis.ErrKeyNotFound) {
			s.misses.Add(1)
			return false, nil
		}
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("Failed to get from cache")
		return false, err
	}

	s.hits.Add(1)
	return true, nil
}

// Set сохраняет данные в кеш с TTL
func (s *CacheService) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}

	if err := s.redis.Set(ctx, key, value, ttl); err != nil {
		s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Error("Failed to set cache")
		return err
	}

	return nil
}

// Delete удаляет ключи из кеша (инвалидация)
func (s *CacheService) Delete(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}

	pipe := s.redis.GetClient().Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.WithFields(logrus.Fields{"keys": keys}).WithError(err).Error("Failed to delete from cache")
		return err
	}

	s.evictions.Add(uint64(len(keys)))
	return nil
}

// GetMetrics возвращает метрики кеширования
func (s *CacheService) GetMetrics(ctx context.Context) (*CacheMetrics, error) {
	hits := s.hits.Load()
	misses := s.misses.Load()
	totalReqs := hits + misses

	var hitRate float64
	if totalReqs > 0 {
		hitRate = float64(hits) / float64(totalReqs) * 100
	}

	var cacheSize int64
	keys := make(map[string]int64, len(cachedPrefixes))
	for _, prefix := range cachedPrefixes {
		keys[prefix] = 0
	}

	if s.Enabled() {
		size, err := s.redis.GetClient().DBSize(ctx).Result()
		if err != nil {
			s.logger.WithError(err).Error("Failed to get cache size")
		}
		cacheSize = size

		for _, prefix := range cachedPrefixes {
			n, err := s.redis.CountKeys(ctx, prefix)
			if err != nil {
				s.logger.WithField("prefix", prefix).WithError(err).Error("Failed to count cache keys")
				continue
			}
			keys[prefix] = n
		}
	}

	return &CacheMetrics{
		Hits:      hits,
		Misses:    misses,
		Evictions: s.evictions.Load(),
		TotalReqs: totalReqs,
		HitRate:   hitRate,
		CacheSize: cacheSize,
		Keys:      keys,
	}, nil
}

// GetDefaultTTL возвращает TTL по умолчанию
func (s *CacheService) GetDefaultTTL() time.Duration {
	return time.Duration(s.config.DefaultTTL) * time.Second
}

// GetHotDataTTL возвращает TTL для горячих данных
func (s *CacheService) GetHotDataTTL() time.Duration {
	return time.Duration(s.config.HotDataTTL) * time.Second
}

// BuildKey создает ключ для кеша с префиксом
func BuildKey(prefix string, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// CourierKey - ключ профиля курьера
func CourierKey(id uuid.UUID) string {
	return BuildKey(redis.KeyPrefixCourier, id.String())
}

// CategoriesKey - ключ справочника активных категорий
func CategoriesKey() string {
	return BuildKey(redis.KeyPrefixCategories, "active")
}

// WarmupCache прогревает кеш при старте приложения
func (s *CacheService) WarmupCache(ctx context.Context, warmupFuncs map[string]func() (interface{}, error)) {
	if !s.Enabled() {
		s.logger.Info("Cache warming skipped (cache disabled)")
		return
	}

	s.logger.Info("Starting cache warming...")
	successCount := 0

	for key, fetchFunc := range warmupFuncs {
		data, err := fetchFunc()
		if err != nil {
			s.logger.WithField("key", key).WithError(err).Error("Failed to fetch data for cache warming")
			continue
		}

		if err := s.Set(ctx, key, data, s.GetHotDataTTL()); err != nil {
			continue
		}

		successCount++
	}

	s.logger.WithFields(logrus.Fields{
		"success": successCount,
		"total":   len(warmupFuncs),
	}).Info("Cache warming completed")
}
