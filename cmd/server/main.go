package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/taskhub/backend/api/handler"
	"github.com/taskhub/backend/internal/config"
	"github.com/taskhub/backend/internal/infrastructure/buffer"
	"github.com/taskhub/backend/internal/infrastructure/monitor"
	pgInfra "github.com/taskhub/backend/internal/infrastructure/postgres"
	redisInfra "github.com/taskhub/backend/internal/infrastructure/redis"
	"github.com/taskhub/backend/internal/middleware"
	"github.com/taskhub/backend/internal/mq"
	"github.com/taskhub/backend/internal/router"
	"github.com/taskhub/backend/internal/services"
	"github.com/taskhub/backend/internal/services/lifecycle"
	"github.com/taskhub/backend/pkg/httpcontext"
	"github.com/taskhub/backend/pkg/logger"
	"github.com/taskhub/backend/repository/postgres"
	redisRepo "github.com/taskhub/backend/repository/redis"
	"github.com/taskhub/backend/usecase"
	"github.com/taskhub/backend/usecase/identity"
	statsUC "github.com/taskhub/backend/usecase/stats"
	taskUC "github.com/taskhub/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outbox, err := buffer.Open(cfg.Events.OutboxPath, "events")
	if err != nil {
		zapLogger.Fatal("failed to open event outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outbox.Close()
	})

	var broker mq.Backend
	if cfg.RabbitMQ.Enabled {
		// The client dials lazily and redials after connection loss, so a
		// broker that is down at boot only means events spill to the outbox
		// until the drain tick finds it reachable again.
		client, err := mq.NewRabbitMQClient(mq.RabbitMQConfig{
			URL:             cfg.RabbitMQ.URL,
			QueueDurable:    cfg.RabbitMQ.QueueDurable,
			QueueAutoDelete: cfg.RabbitMQ.QueueAutoDelete,
		})
		if err != nil {
			zapLogger.Warn("rabbitmq misconfigured, events will be buffered", zap.Error(err))
		} else {
			broker = client
			manager.Register("rabbitmq", func(ctx context.Context) error {
				return client.Close()
			})
		}
	}

	mon := monitor.New(pool, redisClient, outbox, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	userRepo := postgres.NewUserRepository(pool)
	taskRepo := postgres.NewTaskRepository(pool)

	publisher := services.NewEventPublisher(broker, outbox, cfg.RabbitMQ.Queue, zapLogger)

	processor := services.NewEventProcessor(outbox, broker, zapLogger, services.ProcessorConfig{
		Interval:   cfg.Events.DrainInterval,
		BatchSize:  cfg.Events.BatchSize,
		MaxRetries: cfg.Events.MaxRetries,
		Retention:  cfg.Events.Retention,
	})
	processor.Start()
	manager.Register("event_processor", func(ctx context.Context) error {
		processor.Stop(ctx)
		return nil
	})

	var statsCache usecase.StatsCache
	if cfg.StatsCache.Enabled {
		statsCache = redisRepo.NewStatsCache(redisClient, cfg.StatsCache.TTL)
	}

	resolver := identity.New(userRepo, zapLogger)
	taskUseCase := taskUC.New(taskRepo, resolver, publisher, statsCache, zapLogger)
	statsUseCase := statsUC.New(taskRepo, resolver, statsCache, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Stats:  apiHandler.NewStatsHandler(statsUseCase, ctxAdapter, zapLogger),
		Health: apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	var limit router.Middleware
	if cfg.RateLimit.Enabled {
		limit = middleware.RateLimit(redisClient, cfg.RateLimit.Limit, cfg.RateLimit.Window, zapLogger)
	}
	r := router.New(handlers, limit)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
