package repository

import (
	"context"

	"github.com/taskhub/backend/domain"
)

// TaskFilter narrows and pages a task listing. Page is 1-based; PageSize is
// expected to be within [1,100] by the caller contract.
type TaskFilter struct {
	UserID   int64
	Status   domain.TaskStatus
	Page     int
	PageSize int
}

// TaskRepository owns durable task storage. Every read and mutation except
// SoftDelete itself sees only rows with is_deleted = false, scoped to the
// owning user.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	GetByID(ctx context.Context, userID, taskID int64) (*domain.Task, error)
	// List returns a page of tasks ordered by created_at descending plus the
	// total number of matching rows disregarding pagination.
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, int, error)
	Update(ctx context.Context, task *domain.Task) error
	SoftDelete(ctx context.Context, userID, taskID int64) (bool, error)
	// CountByStatus counts non-deleted tasks in the given status; an empty
	// status counts every non-deleted task for the user.
	CountByStatus(ctx context.Context, userID int64, status domain.TaskStatus) (int, error)
}
