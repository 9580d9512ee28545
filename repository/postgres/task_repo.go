package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
)

type taskRepository struct {
	pool *pgxpool.Pool
}

// NewTaskRepository returns a Postgres-backed implementation of TaskRepository.
func NewTaskRepository(pool *pgxpool.Pool) repository.TaskRepository {
	return &taskRepository{pool: pool}
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}

	const query = `
	INSERT INTO tasks (user_id, title, description, status, priority)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at, updated_at
	`

	if err := r.pool.QueryRow(ctx, query,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt); err != nil {
		return nil, err
	}

	return task, nil
}

func (r *taskRepository) GetByID(ctx context.Context, userID, taskID int64) (*domain.Task, error) {
	const query = `
	SELECT id, user_id, title, description, status, priority, created_at, updated_at, completed_at
	FROM tasks
	WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE
	`
	row := r.pool.QueryRow(ctx, query, taskID, userID)
	return scanTask(row)
}

func (r *taskRepository) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, int, error) {
	const countQuery = `
	SELECT COUNT(*)
	FROM tasks
	WHERE user_id = $1
	  AND ($2 = '' OR status = $2)
	  AND is_deleted = FALSE
	`

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, filter.UserID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}

	const query = `
	SELECT id, user_id, title, description, status, priority, created_at, updated_at, completed_at
	FROM tasks
	WHERE user_id = $1
	  AND ($2 = '' OR status = $2)
	  AND is_deleted = FALSE
	ORDER BY created_at DESC, id DESC
	LIMIT $3 OFFSET $4
	`
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := clampPageSize(filter.PageSize)
	offset := (page - 1) * limit

	rows, err := r.pool.Query(ctx, query, filter.UserID, string(filter.Status), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, total, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return domain.ErrInvalidPayload
	}

	const query = `
	UPDATE tasks
	SET title = $3,
		description = $4,
		status = $5,
		priority = $6,
		completed_at = $7,
		updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE
	RETURNING updated_at
	`

	var completed interface{}
	if task.CompletedAt != nil {
		completed = *task.CompletedAt
	}

	if err := r.pool.QueryRow(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		completed,
	).Scan(&task.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrTaskNotFound
		}
		return err
	}

	return nil
}

func (r *taskRepository) SoftDelete(ctx context.Context, userID, taskID int64) (bool, error) {
	const query = `
	UPDATE tasks
	SET is_deleted = TRUE, updated_at = NOW()
	WHERE id = $1 AND user_id = $2 AND is_deleted = FALSE
	`
	tag, err := r.pool.Exec(ctx, query, taskID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *taskRepository) CountByStatus(ctx context.Context, userID int64, status domain.TaskStatus) (int, error) {
	const query = `
	SELECT COUNT(*)
	FROM tasks
	WHERE user_id = $1
	  AND ($2 = '' OR status = $2)
	  AND is_deleted = FALSE
	`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID, string(status)).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTask(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Task, error) {
	var task domain.Task
	var completed *time.Time

	if err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completed,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTaskNotFound
		}
		return nil, err
	}

	task.CompletedAt = completed
	return &task, nil
}

func clampPageSize(size int) int {
	if size <= 0 || size > 100 {
		return 100
	}
	return size
}
