package stats_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository/memory"
	"github.com/taskhub/backend/usecase/identity"
	"github.com/taskhub/backend/usecase/stats"
	"github.com/taskhub/backend/usecase/task"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[int64]*domain.TaskStats
	failing bool
	gets    int
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[int64]*domain.TaskStats{}}
}

func (c *fakeCache) Get(ctx context.Context, userID int64) (*domain.TaskStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failing {
		return nil, false, errors.New("cache down")
	}
	cached, ok := c.entries[userID]
	return cached, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, userID int64, s *domain.TaskStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failing {
		return errors.New("cache down")
	}
	c.entries[userID] = s
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, userID)
	return nil
}

type fixture struct {
	tasks *task.UseCase
	stats *stats.UseCase
	cache *fakeCache
}

func newFixture() *fixture {
	taskRepo := memory.NewTaskRepository()
	userRepo := memory.NewUserRepository()
	resolver := identity.New(userRepo, nil)
	cache := newFakeCache()
	return &fixture{
		tasks: task.New(taskRepo, resolver, nil, cache, nil),
		stats: stats.New(taskRepo, resolver, cache, nil),
		cache: cache,
	}
}

func TestStatisticsUnknownIdentityIsAllZero(t *testing.T) {
	f := newFixture()

	got, err := f.stats.Statistics(context.Background(), 12345)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskStats{}, got)
}

func TestStatisticsCountsByStatus(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ident := domain.Identity{TelegramID: 7}

	first, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "one"})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, ident, task.CreateParams{Title: "two"})
	require.NoError(t, err)
	third, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "three"})
	require.NoError(t, err)

	_, err = f.tasks.Complete(ctx, 7, first.ID)
	require.NoError(t, err)

	inProgress := domain.StatusInProgress
	_, err = f.tasks.Update(ctx, 7, third.ID, task.UpdateParams{Status: &inProgress})
	require.NoError(t, err)

	got, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskStats{Total: 3, Completed: 1, Pending: 1, InProgress: 1}, got)
}

func TestStatisticsCancelledCountsTowardTotalOnly(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ident := domain.Identity{TelegramID: 7}

	created, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "abandoned"})
	require.NoError(t, err)

	cancelled := domain.StatusCancelled
	_, err = f.tasks.Update(ctx, 7, created.ID, task.UpdateParams{Status: &cancelled})
	require.NoError(t, err)

	got, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
	assert.Zero(t, got.Completed)
	assert.Zero(t, got.Pending)
	assert.Zero(t, got.InProgress)
}

func TestStatisticsExcludesDeletedTasks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ident := domain.Identity{TelegramID: 7}

	created, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "gone"})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, ident, task.CreateParams{Title: "kept"})
	require.NoError(t, err)

	require.NoError(t, f.tasks.Delete(ctx, 7, created.ID))

	got, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskStats{Total: 1, Pending: 1}, got)
}

func TestStatisticsReflectsCompletionImmediately(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ident := domain.Identity{TelegramID: 7}

	created, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "Buy milk"})
	require.NoError(t, err)

	// Warm the cache with the pre-completion snapshot.
	before, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskStats{Total: 1, Pending: 1}, before)

	_, err = f.tasks.Complete(ctx, 7, created.ID)
	require.NoError(t, err)

	after, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskStats{Total: 1, Completed: 1}, after)
}

func TestStatisticsSecondReadServedFromCache(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ident := domain.Identity{TelegramID: 7}

	_, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "cached"})
	require.NoError(t, err)

	first, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	setsAfterMiss := f.cache.sets

	second, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, setsAfterMiss, f.cache.sets, "cache hit must not rewrite the entry")
}

func TestStatisticsSurvivesCacheFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ident := domain.Identity{TelegramID: 7}

	_, err := f.tasks.Create(ctx, ident, task.CreateParams{Title: "resilient"})
	require.NoError(t, err)

	f.cache.failing = true

	got, err := f.stats.Statistics(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &domain.TaskStats{Total: 1, Pending: 1}, got)
}
