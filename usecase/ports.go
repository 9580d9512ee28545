package usecase

import (
	"context"

	"github.com/taskhub/backend/domain"
)

// Task event names published on the queue side-channel.
const (
	EventTaskCreated   = "task.created"
	EventTaskUpdated   = "task.updated"
	EventTaskCompleted = "task.completed"
	EventTaskDeleted   = "task.deleted"
)

// TaskEvents is a best-effort sink for task lifecycle events. Implementations
// must never fail a caller's request: delivery problems are absorbed
// downstream (buffered or dropped with a log line).
type TaskEvents interface {
	Publish(ctx context.Context, event string, task *domain.Task) error
}

// StatsCache caches per-user statistics snapshots. All methods are optional
// fast paths; callers treat errors as a cache bypass, never as a failure.
type StatsCache interface {
	Get(ctx context.Context, userID int64) (*domain.TaskStats, bool, error)
	Set(ctx context.Context, userID int64, stats *domain.TaskStats) error
	Invalidate(ctx context.Context, userID int64) error
}
