package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/logger"
	"pickup-market/internal/redis"

	"github.com/sirupsen/logrus"
)

// Lua скрипт: атомарно увеличивает счетчик окна и ставит TTL на первом запросе
const rateLimitLuaScript = `
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local current = redis.call('INCR', key)
if current == 1 then
    redis.call('EXPIRE', key, ttl)
end

if current > limit then
    return {0, current, limit}
end

return {1, current, limit}
`

const rateLimitWindowSeconds = 60

// RateLimiterService ограничивает частоту запросов по субъекту (пользователь или IP)
type RateLimiterService struct {
	redis  *redis.Client
	config *config.RateLimitConfig
	log    *logger.Logger
}

// RateLimitResult содержит результат проверки rate limit
type RateLimitResult struct {
	Allowed     bool
	Remaining   int
	Limit       int
	ResetAt     time.Time
	BannedUntil time.Time
	RetryAfter  int
}

// NewRateLimiterService создает сервис ограничения запросов
func NewRateLimiterService(redis *redis.Client, cfg *config.RateLimitConfig, log *logger.Logger) *RateLimiterService {
	return &RateLimiterService{
		redis:  redis,
		config: cfg,
		log:    log,
	}
}

func (s *RateLimiterService) enabled() bool {
	return s.config.Enabled && s.redis != nil
}

func (s *RateLimiterService) limitFor(elevated bool) int {
	if elevated {
		return s.config.VIPRPM
	}
	return s.config.DefaultRPM
}

func counterKey(subject string) string {
	return fmt.Sprintf("rate_limit:subject:%s", subject)
}

func banKey(subject string) string {
	return fmt.Sprintf("rate_limit:ban:%s", subject)
}

func unlimited() *RateLimitResult {
	return &RateLimitResult{Allowed: true, Remaining: math.MaxInt, Limit: math.MaxInt}
}

// CheckLimit учитывает запрос субъекта и решает, пропускать ли его.
// Ошибки Redis не блокируют запрос.
func (s *RateLimiterService) CheckLimit(ctx context.Context, subject string, elevated bool) (*RateLimitResult, error) {
	if !s.enabled() {
		return unlimited(), nil
	}

	client := s.redis.GetClient()
	limit := s.limitFor(elevated)

	if banned, ttl := s.banned(ctx, subject); banned {
		return &RateLimitResult{
			Allowed:     false,
			Limit:       limit,
			BannedUntil: time.Now().Add(ttl),
			RetryAfter:  int(ttl.Seconds()),
		}, nil
	}

	key := counterKey(subject)
	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, limit, rateLimitWindowSeconds).Result()
	if err != nil {
		s.log.WithField("subject", subject).WithError(err).Error("Failed to evaluate rate limit script")
		return &RateLimitResult{Allowed: true, Remaining: limit, Limit: limit}, nil
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		s.log.WithFields(logrus.Fields{"subject": subject, "result": result}).Error("Unexpected rate limit script result")
		return &RateLimitResult{Allowed: true, Remaining: limit, Limit: limit}, nil
	}

	allowed := values[0].(int64) == 1
	current := int(values[1].(int64))

	if !allowed {
		ban := time.Duration(s.config.BanDuration) * time.Second
		if err := client.Set(ctx, banKey(subject), "1", ban).Err(); err != nil {
			s.log.WithField("subject", subject).WithError(err).Error("Failed to store rate limit ban")
		}

		s.log.WithFields(logrus.Fields{
			"subject":      subject,
			"count":        current,
			"limit":        limit,
			"ban_duration": s.config.BanDuration,
		}).Warn("Rate limit exceeded, subject banned")

		return &RateLimitResult{
			Allowed:     false,
			Limit:       limit,
			BannedUntil: time.Now().Add(ban),
			RetryAfter:  s.config.BanDuration,
		}, nil
	}

	ttl, _ := client.TTL(ctx, key).Result()

	return &RateLimitResult{
		Allowed:   true,
		Remaining: limit - current,
		Limit:     limit,
		ResetAt:   time.Now().Add(ttl),
	}, nil
}

// GetStatus возвращает состояние лимита без учета запроса
func (s *RateLimiterService) GetStatus(ctx context.Context, subject string, elevated bool) (*RateLimitResult, error) {
	if !s.enabled() {
		return unlimited(), nil
	}

	client := s.redis.GetClient()
	limit := s.limitFor(elevated)

	if banned, ttl := s.banned(ctx, subject); banned {
		return &RateLimitResult{
			Allowed:     false,
			Limit:       limit,
			BannedUntil: time.Now().Add(ttl),
			RetryAfter:  int(ttl.Seconds()),
		}, nil
	}

	key := counterKey(subject)
	count, err := client.Get(ctx, key).Int()
	if err != nil {
		count = 0
	}

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}

	var resetAt time.Time
	if ttl, _ := client.TTL(ctx, key).Result(); ttl > 0 {
		resetAt = time.Now().Add(ttl)
	}

	return &RateLimitResult{
		Allowed:   count < limit,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   resetAt,
	}, nil
}

// ResetLimit снимает счетчик и бан субъекта
func (s *RateLimiterService) ResetLimit(ctx context.Context, subject string) error {
	if !s.enabled() {
		return nil
	}

	pipe := s.redis.GetClient().Pipeline()
	pipe.Del(ctx, counterKey(subject))
	pipe.Del(ctx, banKey(subject))
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.WithField("subject", subject).WithError(err).Error("Failed to reset rate limit")
		return err
	}

	s.log.WithField("subject", subject).Info("Rate limit reset")
	return nil
}

func (s *RateLimiterService) banned(ctx context.Context, subject string) (bool, time.Duration) {
	client := s.redis.GetClient()
	val, err := client.Get(ctx, banKey(subject)).Result()
	if err != nil || val == "" {
		return false, 0
	}
	ttl, _ := client.TTL(ctx, banKey(subject)).Result()
	return true, ttl
}
