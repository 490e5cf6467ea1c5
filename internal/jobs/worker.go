package jobs

import (
	"context"
	"fmt"
	"time"

	"pickup-market/internal/config"
	"pickup-market/internal/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	maxAttempts  = 5
	retryBackoff = 10 * time.Second
)

// Handler обрабатывает задачу по идентификатору сущности
type Handler func(ctx context.Context, entityID uuid.UUID) error

type sweep struct {
	name  string
	every time.Duration
	fn    func(ctx context.Context) error
}

// Worker периодически выбирает созревшие задачи из очереди и выполняет их
type Worker struct {
	queue    Queue
	config   config.JobsConfig
	log      *logrus.Entry
	handlers map[Kind]Handler
	sweeps   []sweep
	now      func() time.Time
}

// NewWorker создает воркер отложенных задач
func NewWorker(queue Queue, cfg config.JobsConfig, log *logger.Logger) *Worker {
	return &Worker{
		queue:    queue,
		config:   cfg,
		log:      log.Component("jobs"),
		handlers: make(map[Kind]Handler),
		now:      time.Now,
	}
}

// RegisterHandler регистрирует обработчик для типа задач
func (w *Worker) RegisterHandler(kind Kind, h Handler) {
	w.handlers[kind] = h
}

// RegisterSweep регистрирует периодическую страховочную проверку
func (w *Worker) RegisterSweep(name string, every time.Duration, fn func(ctx context.Context) error) {
	w.sweeps = append(w.sweeps, sweep{name: name, every: every, fn: fn})
}

// Run запускает планировщик и блокируется до отмены ctx
func (w *Worker) Run(ctx context.Context) error {
	scheduler, err := w.schedule(ctx)
	if err != nil {
		return err
	}

	scheduler.Start()
	w.log.WithFields(logrus.Fields{
		"poll_interval": w.config.PollInterval,
		"sweeps":        len(w.sweeps),
	}).Info("Jobs worker started")

	<-ctx.Done()

	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to shutdown jobs scheduler: %w", err)
	}
	w.log.Info("Jobs worker stopped")
	return nil
}

func (w *Worker) schedule(ctx context.Context) (gocron.Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create jobs scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(w.config.PollInterval),
		gocron.NewTask(func() { w.RunDue(ctx) }),
		gocron.WithName("poll-due-jobs"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule job polling: %w", err)
	}

	for _, s := range w.sweeps {
		s := s
		_, err = scheduler.NewJob(
			gocron.DurationJob(s.every),
			gocron.NewTask(func() {
				if err := s.fn(ctx); err != nil {
					w.log.WithError(err).WithField("sweep", s.name).Error("Sweep failed")
				}
			}),
			gocron.WithName(s.name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule sweep %s: %w", s.name, err)
		}
	}

	return scheduler, nil
}

// RunDue выполняет одну порцию созревших задач и возвращает число успешно обработанных
func (w *Worker) RunDue(ctx context.Context) int {
	jobs, err := w.queue.Claim(ctx, w.now(), w.batchSize())
	if err != nil {
		w.log.WithError(err).Error("Failed to claim due jobs")
		return 0
	}

	done := 0
	for _, job := range jobs {
		if w.process(ctx, job) {
			done++
		}
	}
	return done
}

func (w *Worker) process(ctx context.Context, job Job) bool {
	entry := w.log.WithFields(logrus.Fields{
		"job_id":    job.ID,
		"kind":      job.Kind,
		"entity_id": job.EntityID,
		"attempt":   job.Attempt,
	})

	handler, ok := w.handlers[job.Kind]
	if !ok {
		entry.Warn("No handler for job kind, dropping")
		w.ack(ctx, job, entry)
		return false
	}

	if err := handler(ctx, job.EntityID); err != nil {
		entry.WithError(err).Error("Job failed")
		w.retry(ctx, job, entry)
		return false
	}

	w.ack(ctx, job, entry)
	entry.Debug("Job completed")
	return true
}

func (w *Worker) retry(ctx context.Context, job Job, entry *logrus.Entry) {
	if job.Attempt+1 >= maxAttempts {
		entry.Error("Job exhausted retries, dropping")
		w.ack(ctx, job, entry)
		return
	}

	next := job
	next.member = ""
	next.Attempt++
	next.RunAt = w.now().Add(retryBackoff * time.Duration(next.Attempt))
	if err := w.queue.Enqueue(ctx, next); err != nil {
		// без ack задача вернется в очередь после истечения видимости
		entry.WithError(err).Error("Failed to reschedule job")
		return
	}
	w.ack(ctx, job, entry)
}

func (w *Worker) ack(ctx context.Context, job Job, entry *logrus.Entry) {
	if err := w.queue.Ack(ctx, job); err != nil {
		entry.WithError(err).Error("Failed to ack job")
	}
}

func (w *Worker) batchSize() int {
	if w.config.BatchSize <= 0 {
		return 50
	}
	return w.config.BatchSize
}
