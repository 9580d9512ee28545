// Package task implements the task lifecycle service: create, read, list,
// update, complete and soft-delete, always scoped to the caller's resolved
// identity.
package task

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
	"github.com/taskhub/backend/usecase"
	"github.com/taskhub/backend/usecase/identity"
)

// CreateParams carries the validated input for task creation.
type CreateParams struct {
	Title       string              `validate:"required,max=255"`
	Description string              `validate:"max=2000"`
	Priority    domain.TaskPriority `validate:"omitempty,oneof=low medium high urgent"`
}

// UpdateParams is a partial update: nil fields are left untouched, non-nil
// fields overwrite. A non-nil empty Description clears it, which keeps
// "omitted" and "explicitly cleared" distinguishable.
type UpdateParams struct {
	Title       *string              `validate:"omitempty,min=1,max=255"`
	Description *string              `validate:"omitempty,max=2000"`
	Status      *domain.TaskStatus   `validate:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority    *domain.TaskPriority `validate:"omitempty,oneof=low medium high urgent"`
}

// Page is one slice of a task listing.
type Page struct {
	Items    []domain.Task `json:"items"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
	Pages    int           `json:"pages"`
}

type UseCase struct {
	tasks      repository.TaskRepository
	identities *identity.Resolver
	events     usecase.TaskEvents
	cache      usecase.StatsCache
	validate   *validator.Validate
	logger     *zap.Logger
}

func New(
	tasks repository.TaskRepository,
	identities *identity.Resolver,
	events usecase.TaskEvents,
	cache usecase.StatsCache,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:      tasks,
		identities: identities,
		events:     events,
		cache:      cache,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Create resolves the identity (creating the user on first contact) and
// persists a new pending task.
func (uc *UseCase) Create(ctx context.Context, ident domain.Identity, params CreateParams) (*domain.Task, error) {
	if err := uc.validate.Struct(params); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid task payload", err)
	}

	user, err := uc.identities.Resolve(ctx, ident)
	if err != nil {
		return nil, err
	}

	priority := params.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	created, err := uc.tasks.Create(ctx, &domain.Task{
		UserID:      user.ID,
		Title:       params.Title,
		Description: params.Description,
		Status:      domain.StatusPending,
		Priority:    priority,
	})
	if err != nil {
		return nil, err
	}

	uc.invalidateStats(ctx, user.ID)
	uc.publish(ctx, usecase.EventTaskCreated, created)
	return created, nil
}

// Get returns one of the caller's tasks. Unknown identities, deleted tasks
// and tasks owned by someone else all look the same: not found.
func (uc *UseCase) Get(ctx context.Context, telegramID, taskID int64) (*domain.Task, error) {
	user, err := uc.identities.Find(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	return uc.tasks.GetByID(ctx, user.ID, taskID)
}

// List returns a page of the caller's tasks ordered newest first. An unknown
// identity yields an empty page rather than an error.
func (uc *UseCase) List(ctx context.Context, telegramID int64, status domain.TaskStatus, page, pageSize int) (*Page, error) {
	if page < 1 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "page must be >= 1")
	}
	if pageSize < 1 || pageSize > 100 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "page_size must be within [1,100]")
	}
	if status != "" && !status.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown status filter")
	}

	user, err := uc.identities.Find(ctx, telegramID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return &Page{Items: []domain.Task{}, Page: page, PageSize: pageSize}, nil
		}
		return nil, err
	}

	items, total, err := uc.tasks.List(ctx, repository.TaskFilter{
		UserID:   user.ID,
		Status:   status,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Task{}
	}

	pages := 0
	if total > 0 {
		pages = (total + pageSize - 1) / pageSize
	}

	return &Page{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    pages,
	}, nil
}

// Update applies a partial update. When the status transitions to completed
// and completed_at is unset, the completion timestamp is recorded; once set
// it is never overwritten.
func (uc *UseCase) Update(ctx context.Context, telegramID, taskID int64, params UpdateParams) (*domain.Task, error) {
	if err := uc.validate.Struct(params); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "invalid task payload", err)
	}

	user, err := uc.identities.Find(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	task, err := uc.tasks.GetByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		task.Status = *params.Status
	}
	if params.Priority != nil {
		task.Priority = *params.Priority
	}

	if task.Status == domain.StatusCompleted && task.CompletedAt == nil {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.invalidateStats(ctx, user.ID)
	uc.publish(ctx, usecase.EventTaskUpdated, task)
	return task, nil
}

// Complete marks the task completed. Re-completing is a no-op for the
// timestamp: completed_at keeps its first value.
func (uc *UseCase) Complete(ctx context.Context, telegramID, taskID int64) (*domain.Task, error) {
	user, err := uc.identities.Find(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	task, err := uc.tasks.GetByID(ctx, user.ID, taskID)
	if err != nil {
		return nil, err
	}

	task.Status = domain.StatusCompleted
	if task.CompletedAt == nil {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	uc.invalidateStats(ctx, user.ID)
	uc.publish(ctx, usecase.EventTaskCompleted, task)
	return task, nil
}

// Delete soft-deletes the task after the usual visibility check.
func (uc *UseCase) Delete(ctx context.Context, telegramID, taskID int64) error {
	user, err := uc.identities.Find(ctx, telegramID)
	if err != nil {
		return err
	}

	task, err := uc.tasks.GetByID(ctx, user.ID, taskID)
	if err != nil {
		return err
	}

	affected, err := uc.tasks.SoftDelete(ctx, user.ID, task.ID)
	if err != nil {
		return err
	}
	if !affected {
		return domain.ErrTaskNotFound
	}

	uc.invalidateStats(ctx, user.ID)
	uc.publish(ctx, usecase.EventTaskDeleted, task)
	return nil
}

func (uc *UseCase) publish(ctx context.Context, event string, task *domain.Task) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, event, task); err != nil {
		uc.logger.Error("failed to publish task event",
			zap.String("event", event),
			zap.Int64("task_id", task.ID),
			zap.Error(err))
	}
}

func (uc *UseCase) invalidateStats(ctx context.Context, userID int64) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Invalidate(ctx, userID); err != nil {
		uc.logger.Warn("failed to invalidate stats cache",
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
}
