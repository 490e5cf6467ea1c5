package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pickup-market/internal/redis"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Kind представляет тип отложенной задачи
type Kind string

const (
	KindOrderAutoComplete Kind = "order.auto_complete"
)

// Job представляет отложенную задачу над одной сущностью
type Job struct {
	ID       uuid.UUID `json:"id"`
	Kind     Kind      `json:"kind"`
	EntityID uuid.UUID `json:"entity_id"`
	RunAt    time.Time `json:"run_at"`
	Attempt  int       `json:"attempt"`

	member string
}

// Queue - очередь отложенных задач с доставкой at-least-once
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Claim забирает до limit задач со сроком <= now. Забранная задача
	// скрывается на время видимости и возвращается, если не была подтверждена.
	Claim(ctx context.Context, now time.Time, limit int) ([]Job, error)
	Ack(ctx context.Context, job Job) error
}

const claimLuaScript = `
local items = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, member in ipairs(items) do
    redis.call('ZADD', KEYS[1], ARGV[3], member)
end
return items
`

// RedisQueue хранит задачи в sorted set, score - время запуска в мс
type RedisQueue struct {
	client     *redis.Client
	key        string
	visibility time.Duration
}

// NewRedisQueue создает очередь в ключе jobs:<name>
func NewRedisQueue(client *redis.Client, name string, visibility time.Duration) *RedisQueue {
	return &RedisQueue{
		client:     client,
		key:        fmt.Sprintf("%s:%s", redis.KeyPrefixJobs, name),
		visibility: visibility,
	}
}

// Enqueue добавляет задачу
func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.client.GetClient().ZAdd(ctx, q.key, &goredis.Z{
		Score:  float64(job.RunAt.UnixMilli()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}
	return nil
}

// Claim атомарно забирает созревшие задачи и сдвигает их на время видимости
func (q *RedisQueue) Claim(ctx context.Context, now time.Time, limit int) ([]Job, error) {
	hideUntil := now.Add(q.visibility).UnixMilli()

	result, err := q.client.GetClient().Eval(ctx, claimLuaScript, []string{q.key},
		now.UnixMilli(), limit, hideUntil).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}

	members, ok := result.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected claim result %T", result)
	}

	jobs := make([]Job, 0, len(members))
	for _, m := range members {
		raw, ok := m.(string)
		if !ok {
			continue
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			// битую запись удаляем, чтобы она не всплывала бесконечно
			q.client.GetClient().ZRem(ctx, q.key, raw)
			continue
		}
		job.member = raw
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Ack удаляет выполненную задачу
func (q *RedisQueue) Ack(ctx context.Context, job Job) error {
	member := job.member
	if member == "" {
		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		member = string(data)
	}

	if err := q.client.GetClient().ZRem(ctx, q.key, member).Err(); err != nil {
		return fmt.Errorf("failed to ack job %s: %w", job.ID, err)
	}
	return nil
}
