// Command worker consumes the task event queue. Processing is deliberately a
// no-op: each event is logged and acknowledged. Notification delivery and
// other side effects are out of scope for now.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/taskhub/backend/internal/config"
	"github.com/taskhub/backend/internal/mq"
	"github.com/taskhub/backend/internal/services"
	"github.com/taskhub/backend/internal/services/lifecycle"
	"github.com/taskhub/backend/pkg/logger"
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

	client, err := mq.NewRabbitMQClient(mq.RabbitMQConfig{
		URL:             cfg.RabbitMQ.URL,
		QueueDurable:    cfg.RabbitMQ.QueueDurable,
		QueueAutoDelete: cfg.RabbitMQ.QueueAutoDelete,
		PrefetchCount:   cfg.RabbitMQ.PrefetchCount,
	})
	if err != nil {
		zapLogger.Fatal("rabbitmq misconfigured", zap.Error(err))
	}
	manager.Register("rabbitmq", func(ctx context.Context) error {
		return client.Close()
	})

	zapLogger.Info("worker started, waiting for task events", zap.String("queue", cfg.RabbitMQ.Queue))

	handle := func(ctx context.Context, msg mq.Message) error {
		var event services.TaskEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			zapLogger.Error("discarding malformed task event",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			// Ack malformed payloads; redelivery cannot fix them.
			return nil
		}

		fields := []zap.Field{
			zap.String("message_id", msg.ID),
			zap.String("event", event.Event),
			zap.Time("occurred_at", event.OccurredAt),
		}
		if event.Task != nil {
			fields = append(fields,
				zap.Int64("task_id", event.Task.ID),
				zap.Int64("user_id", event.Task.UserID),
				zap.String("status", string(event.Task.Status)))
		}
		zapLogger.Info("task event processed", fields...)
		return nil
	}

	// A lost connection ends Subscribe with an error; back off and
	// resubscribe until shutdown. The client redials on the next attempt.
	backoff := time.Second
	for appCtx.Err() == nil {
		err := client.Subscribe(appCtx, cfg.RabbitMQ.Queue, handle)
		if errors.Is(err, context.Canceled) || appCtx.Err() != nil {
			break
		}
		zapLogger.Warn("subscription lost, reconnecting",
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-appCtx.Done():
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
