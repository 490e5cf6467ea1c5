package jobs

import (
	"context"
	"time"

	"pickup-market/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Scheduler ставит отложенные задачи предметной области
type Scheduler struct {
	queue Queue
	log   *logger.Logger
}

// NewScheduler создает планировщик поверх очереди
func NewScheduler(queue Queue, log *logger.Logger) *Scheduler {
	return &Scheduler{
		queue: queue,
		log:   log,
	}
}

// ScheduleAutoComplete ставит автозавершение заказа через delay
func (s *Scheduler) ScheduleAutoComplete(ctx context.Context, orderID uuid.UUID, delay time.Duration) error {
	job := Job{
		ID:       uuid.New(),
		Kind:     KindOrderAutoComplete,
		EntityID: orderID,
		RunAt:    time.Now().Add(delay),
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"order_id": orderID,
		"run_at":   job.RunAt,
	}).Debug("Order auto-complete scheduled")

	return nil
}
