package services

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/internal/infrastructure/buffer"
	"github.com/taskhub/backend/internal/mq"
)

// TaskEvent is the wire shape published on the task event queue.
type TaskEvent struct {
	Event      string       `json:"event"`
	Task       *domain.Task `json:"task"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// EventPublisher delivers task events to the broker. Delivery is best-effort:
// when the broker rejects a publish the event is spilled into the bolt outbox
// and replayed later by the EventProcessor. Publish never returns a broker
// error to the caller, only outbox failures.
type EventPublisher struct {
	backend mq.Backend
	store   *buffer.Store
	queue   string
	logger  *zap.Logger
}

func NewEventPublisher(backend mq.Backend, store *buffer.Store, queue string, logger *zap.Logger) *EventPublisher {
	if queue == "" {
		queue = "task_events"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventPublisher{
		backend: backend,
		store:   store,
		queue:   queue,
		logger:  logger,
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event string, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	payload, err := json.Marshal(TaskEvent{
		Event:      event,
		Task:       task,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	if p.backend != nil {
		_, err := p.backend.Publish(ctx, p.queue, payload, map[string]string{"event": event})
		if err == nil {
			return nil
		}
		p.logger.Warn("broker publish failed, spilling event to outbox",
			zap.String("event", event),
			zap.Error(err))
	}

	if p.store == nil {
		p.logger.Error("event dropped, no outbox configured", zap.String("event", event))
		return nil
	}

	return p.store.Enqueue(buffer.Item{
		Queue:   p.queue,
		Event:   event,
		Payload: payload,
	})
}
