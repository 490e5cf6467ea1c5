package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pickup-market/internal/auth"
	"pickup-market/internal/config"
	"pickup-market/internal/database"
	"pickup-market/internal/handlers"
	"pickup-market/internal/jobs"
	"pickup-market/internal/kafka"
	"pickup-market/internal/logger"
	"pickup-market/internal/redis"
	"pickup-market/internal/services"

	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout     = 30 * time.Second
	jobVisibilityWindow = 30 * time.Second
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Инициализация логгера
	log := logger.New(&cfg.Logger)
	log.Info("Starting pickup market server...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.MigrateOnStart {
		if err := database.Migrate(&cfg.Database, log); err != nil {
			log.WithError(err).Fatal("Failed to apply migrations")
		}
	}

	// Подключение к базе данных
	db, err := database.Connect(&cfg.Database, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Подключение к Redis
	redisClient, err := redis.Connect(&cfg.Redis, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Создание Kafka producer
	producer, err := kafka.NewProducer(&cfg.Kafka, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create Kafka producer")
	}
	defer producer.Close()

	// Создание Kafka consumer
	consumer, err := kafka.NewConsumer(&cfg.Kafka, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to create Kafka consumer")
	}
	defer consumer.Stop()

	// Отложенные задачи
	queue := jobs.NewRedisQueue(redisClient, "orders", jobVisibilityWindow)
	worker := jobs.NewWorker(queue, cfg.Jobs, log)

	// Инициализация сервисов
	cacheService := services.NewCacheService(redisClient, &cfg.Cache, log)
	rateLimiter := services.NewRateLimiterService(redisClient, &cfg.RateLimit, log)
	idempotency := services.NewIdempotencyService(redisClient, log)
	categoryService := services.NewCategoryService(db, cacheService, log)
	pointsService := services.NewPointsService(db, log)
	courierService := services.NewCourierService(db, cacheService, log)
	pickupService := services.NewPickupService(db, categoryService, pointsService, courierService, cfg.Rewards, log)
	wishlistService := services.NewWishlistService(db, log)
	listingService := services.NewListingService(db, wishlistService, log)
	orderService := services.NewOrderService(db, jobs.NewScheduler(queue, log), cfg.Jobs, log)

	cacheService.WarmupCache(ctx, categoryService.WarmupEntry(ctx))

	jobs.RegisterOrderJobs(worker, orderService, producer, cfg.Jobs.AutoCompleteDelay, cfg.Jobs.OverdueSweepPeriod)

	// Регистрация обработчиков событий Kafka
	kafka.RegisterNotificationHandlers(consumer, kafka.NewLogNotifier(log.Component("notifications")))

	// Запуск Kafka consumer
	if err := consumer.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start Kafka consumer")
	}

	router := handlers.NewRouter(handlers.Handlers{
		Health:    handlers.NewHealthHandler(db, redisClient),
		Catalog:   handlers.NewCatalogHandler(categoryService, pointsService, log),
		Pickups:   handlers.NewPickupHandler(pickupService, producer, log),
		Couriers:  handlers.NewCourierHandler(courierService, pickupService, producer, log),
		Listings:  handlers.NewListingHandler(listingService, log),
		Orders:    handlers.NewOrderHandler(orderService, producer, log),
		Wishlist:  handlers.NewWishlistHandler(wishlistService, idempotency, producer, log),
		Cache:     handlers.NewCacheHandler(cacheService, log),
		RateLimit: handlers.NewRateLimitHandler(rateLimiter, log),
	}, auth.NewJWTService(cfg.Auth), rateLimiter, log)

	// Создание HTTP сервера
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("address", server.Addr).Info("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Server stopped with error")
	}

	log.Info("Server exited")
}
