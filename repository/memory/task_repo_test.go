package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
	"github.com/taskhub/backend/repository/memory"
)

func seedTask(t *testing.T, repo repository.TaskRepository, userID int64, title string, status domain.TaskStatus) *domain.Task {
	t.Helper()
	created, err := repo.Create(context.Background(), &domain.Task{
		UserID:   userID,
		Title:    title,
		Status:   status,
		Priority: domain.PriorityMedium,
	})
	require.NoError(t, err)
	return created
}

func TestTaskCreateAssignsIDAndTimestamps(t *testing.T) {
	repo := memory.NewTaskRepository()

	created := seedTask(t, repo, 1, "first", domain.StatusPending)
	assert.Equal(t, int64(1), created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, created.CreatedAt, created.UpdatedAt)

	second := seedTask(t, repo, 1, "second", domain.StatusPending)
	assert.Equal(t, int64(2), second.ID)
}

func TestTaskGetByIDScopedToOwner(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	created := seedTask(t, repo, 1, "mine", domain.StatusPending)

	got, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "mine", got.Title)

	_, err = repo.GetByID(ctx, 2, created.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestTaskGetByIDReturnsCopy(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	now := time.Now()
	created, err := repo.Create(ctx, &domain.Task{
		UserID:      1,
		Title:       "snapshot",
		Status:      domain.StatusCompleted,
		Priority:    domain.PriorityLow,
		CompletedAt: &now,
	})
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)

	// Mutating the returned copy must not leak into the store.
	got.Title = "tampered"
	*got.CompletedAt = got.CompletedAt.Add(time.Hour)

	again, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "snapshot", again.Title)
	assert.True(t, now.Equal(*again.CompletedAt))
}

func TestTaskListOrderingAndPagination(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c", "d", "e"} {
		seedTask(t, repo, 1, title, domain.StatusPending)
	}
	seedTask(t, repo, 2, "elsewhere", domain.StatusPending)

	items, total, err := repo.List(ctx, repository.TaskFilter{UserID: 1, Page: 1, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 3)
	assert.Equal(t, "e", items[0].Title)
	assert.Equal(t, "d", items[1].Title)
	assert.Equal(t, "c", items[2].Title)

	items, total, err = repo.List(ctx, repository.TaskFilter{UserID: 1, Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Title)
	assert.Equal(t, "a", items[1].Title)

	items, total, err = repo.List(ctx, repository.TaskFilter{UserID: 1, Page: 9, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, items)
}

func TestTaskListStatusFilter(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	seedTask(t, repo, 1, "open", domain.StatusPending)
	seedTask(t, repo, 1, "done", domain.StatusCompleted)

	items, total, err := repo.List(ctx, repository.TaskFilter{
		UserID: 1, Status: domain.StatusCompleted, Page: 1, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, "done", items[0].Title)
}

func TestTaskSoftDelete(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	created := seedTask(t, repo, 1, "short-lived", domain.StatusPending)

	affected, err := repo.SoftDelete(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.True(t, affected)

	_, err = repo.GetByID(ctx, 1, created.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, total, err := repo.List(ctx, repository.TaskFilter{UserID: 1, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	// Already deleted: no rows affected.
	affected, err = repo.SoftDelete(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.False(t, affected)

	// Wrong owner: no rows affected.
	other := seedTask(t, repo, 1, "guarded", domain.StatusPending)
	affected, err = repo.SoftDelete(ctx, 2, other.ID)
	require.NoError(t, err)
	assert.False(t, affected)
}

func TestTaskUpdateRejectsDeletedAndForeign(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	created := seedTask(t, repo, 1, "original", domain.StatusPending)

	created.Title = "renamed"
	require.NoError(t, repo.Update(ctx, created))

	got, err := repo.GetByID(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)

	foreign := *got
	foreign.UserID = 2
	assert.ErrorIs(t, repo.Update(ctx, &foreign), domain.ErrTaskNotFound)

	_, err = repo.SoftDelete(ctx, 1, created.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Update(ctx, created), domain.ErrTaskNotFound)
}

func TestTaskCountByStatus(t *testing.T) {
	repo := memory.NewTaskRepository()
	ctx := context.Background()

	seedTask(t, repo, 1, "p1", domain.StatusPending)
	seedTask(t, repo, 1, "p2", domain.StatusPending)
	seedTask(t, repo, 1, "c1", domain.StatusCompleted)
	seedTask(t, repo, 1, "x1", domain.StatusCancelled)
	deleted := seedTask(t, repo, 1, "gone", domain.StatusPending)
	_, err := repo.SoftDelete(ctx, 1, deleted.ID)
	require.NoError(t, err)

	total, err := repo.CountByStatus(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	pending, err := repo.CountByStatus(ctx, 1, domain.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	completed, err := repo.CountByStatus(ctx, 1, domain.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	inProgress, err := repo.CountByStatus(ctx, 1, domain.StatusInProgress)
	require.NoError(t, err)
	assert.Zero(t, inProgress)
}
