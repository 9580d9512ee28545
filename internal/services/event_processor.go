package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/taskhub/backend/internal/infrastructure/buffer"
	"github.com/taskhub/backend/internal/mq"
)

// ProcessorConfig controls how frequently the event outbox is drained.
type ProcessorConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// EventProcessor replays spilled task events from the bolt outbox into the
// broker on a cron schedule.
type EventProcessor struct {
	store   *buffer.Store
	backend mq.Backend
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     ProcessorConfig
}

func NewEventProcessor(store *buffer.Store, backend mq.Backend, logger *zap.Logger, cfg ProcessorConfig) *EventProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ep := &EventProcessor{
		store:   store,
		backend: backend,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = ep.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := ep.Drain(ctx); err != nil {
			ep.logger.Error("event outbox drain failed", zap.Error(err))
		}
	})

	return ep
}

// Start launches the cron scheduler.
func (ep *EventProcessor) Start() {
	if ep == nil || ep.cron == nil {
		return
	}
	ep.cron.Start()
	ep.logger.Info("event processor started")
}

// Stop gracefully stops the scheduler.
func (ep *EventProcessor) Stop(ctx context.Context) {
	if ep == nil || ep.cron == nil {
		return
	}
	stopCtx := ep.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	ep.logger.Info("event processor stopped")
}

// Drain replays buffered events synchronously. Retention cleanup runs even
// without a backend so the outbox cannot grow unbounded through a long
// broker outage.
func (ep *EventProcessor) Drain(ctx context.Context) error {
	if ep == nil || ep.store == nil {
		return nil
	}

	if err := ep.store.Cleanup(time.Now().Add(-ep.cfg.Retention)); err != nil {
		ep.logger.Warn("outbox retention cleanup failed", zap.Error(err))
	}

	if ep.backend == nil {
		return nil
	}

	items, err := ep.store.GetBatch(ep.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		_, err := ep.backend.Publish(ctx, item.Queue, item.Payload, map[string]string{"event": item.Event})
		if err != nil {
			ep.logger.Error("failed to replay buffered event",
				zap.String("item_id", item.ID),
				zap.String("event", item.Event),
				zap.Error(err))

			item.Retries++
			if item.Retries >= ep.cfg.MaxRetries {
				ep.logger.Warn("dropping buffered event (max retries reached)", zap.String("item_id", item.ID))
				_ = ep.store.Remove(item)
				continue
			}

			if err := ep.store.Remove(item); err != nil {
				ep.logger.Warn("failed to remove buffered event", zap.Error(err))
			}
			if err := ep.store.Requeue(item); err != nil {
				ep.logger.Error("failed to requeue buffered event", zap.Error(err))
			}
			continue
		}

		if err := ep.store.Remove(item); err != nil {
			ep.logger.Warn("failed to purge replayed event", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of buffered events.
func (ep *EventProcessor) Size() int {
	if ep == nil || ep.store == nil {
		return 0
	}
	size, err := ep.store.Size()
	if err != nil {
		return 0
	}
	return size
}
