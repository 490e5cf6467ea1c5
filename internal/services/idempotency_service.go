package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pickup-market/internal/logger"
	"pickup-market/internal/redis"
)

const (
	idempotencyResultTTL = 24 * time.Hour
	idempotencyLockTTL   = 30 * time.Second
)

// IdempotencyService хранит результаты запросов с заголовком Idempotency-Key
type IdempotencyService struct {
	redis *redis.Client
	log   *logger.Logger
}

// NewIdempotencyService создает сервис идемпотентности. redis может быть nil,
// тогда ключи игнорируются.
func NewIdempotencyService(redis *redis.Client, log *logger.Logger) *IdempotencyService {
	return &IdempotencyService{
		redis: redis,
		log:   log,
	}
}

// RunIdempotent выполняет fn не более одного раза на (scope, key). Повтор с тем
// же ключом возвращает сохраненный результат и replayed = true. Пока первый
// запрос не завершен, повтор получает ErrConflict. Пустой key отключает проверку.
func RunIdempotent[T any](ctx context.Context, s *IdempotencyService, scope, key string, fn func() (T, error)) (T, bool, error) {
	if key == "" || s == nil || s.redis == nil {
		v, err := fn()
		return v, false, err
	}

	resultKey := BuildKey(redis.KeyPrefixIdempotency, scope+":"+key)
	lockKey := resultKey + ":lock"

	var stored T
	err := s.redis.Get(ctx, resultKey, &stored)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, redis.ErrKeyNotFound) {
		var zero T
		return zero, false, err
	}

	acquired, err := s.redis.SetNX(ctx, lockKey, "1", idempotencyLockTTL)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if !acquired {
		var zero T
		return zero, false, fmt.Errorf("request with idempotency key %q is in progress: %w", key, ErrConflict)
	}

	v, err := fn()
	if err != nil {
		s.release(ctx, lockKey)
		return v, false, err
	}

	if err := s.redis.Set(ctx, resultKey, v, idempotencyResultTTL); err != nil {
		s.log.WithField("key", resultKey).WithError(err).Error("Failed to store idempotent result")
	}
	s.release(ctx, lockKey)

	return v, false, nil
}

func (s *IdempotencyService) release(ctx context.Context, lockKey string) {
	if err := s.redis.Delete(ctx, lockKey); err != nil {
		s.log.WithField("key", lockKey).WithError(err).Warn("Failed to release idempotency lock")
	}
}
