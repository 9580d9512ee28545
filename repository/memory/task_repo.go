package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
)

type taskRepository struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]domain.Task
}

// NewTaskRepository creates an empty in-memory task repository.
func NewTaskRepository() repository.TaskRepository {
	return &taskRepository{
		nextID: 1,
		tasks:  make(map[int64]domain.Task),
	}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	task.ID = r.nextID
	r.nextID++
	task.CreatedAt = now
	task.UpdatedAt = now

	r.tasks[task.ID] = *task
	return task, nil
}

func (r *taskRepository) GetByID(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok || task.IsDeleted || task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []domain.Task
	for _, task := range r.tasks {
		if task.IsDeleted || task.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		matched = append(matched, *cloneTask(task))
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 100
	}

	start := (page - 1) * size
	if start >= total {
		return nil, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok || stored.IsDeleted || stored.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}

	stored.Title = task.Title
	stored.Description = task.Description
	stored.Status = task.Status
	stored.Priority = task.Priority
	stored.CompletedAt = task.CompletedAt
	stored.UpdatedAt = time.Now()

	r.tasks[task.ID] = stored
	task.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, userID, taskID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok || task.IsDeleted || task.UserID != userID {
		return false, nil
	}

	task.IsDeleted = true
	task.UpdatedAt = time.Now()
	r.tasks[taskID] = task
	return true, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context, userID int64, status domain.TaskStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, task := range r.tasks {
		if task.IsDeleted || task.UserID != userID {
			continue
		}
		if status != "" && task.Status != status {
			continue
		}
		count++
	}
	return count, nil
}

func cloneTask(task domain.Task) *domain.Task {
	if task.CompletedAt != nil {
		completed := *task.CompletedAt
		task.CompletedAt = &completed
	}
	return &task
}
