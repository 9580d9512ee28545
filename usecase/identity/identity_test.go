package identity_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository/memory"
	"github.com/taskhub/backend/usecase/identity"
)

func TestResolveCreatesUserOnFirstContact(t *testing.T) {
	resolver := identity.New(memory.NewUserRepository(), nil)

	user, err := resolver.Resolve(context.Background(), domain.Identity{
		TelegramID: 42,
		Username:   "alice",
		FirstName:  "Alice",
	})
	require.NoError(t, err)
	require.NotNil(t, user)

	assert.NotZero(t, user.ID)
	assert.Equal(t, int64(42), user.TelegramID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "Alice", user.FirstName)
	assert.True(t, user.IsActive)

	found, err := resolver.Find(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestResolveRefreshesChangedDisplayParts(t *testing.T) {
	resolver := identity.New(memory.NewUserRepository(), nil)
	ctx := context.Background()

	first, err := resolver.Resolve(ctx, domain.Identity{TelegramID: 7, Username: "old"})
	require.NoError(t, err)

	second, err := resolver.Resolve(ctx, domain.Identity{TelegramID: 7, Username: "new", LastName: "Smith"})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "new", second.Username)
	assert.Equal(t, "Smith", second.LastName)
}

func TestResolveIgnoresEmptyDisplayParts(t *testing.T) {
	resolver := identity.New(memory.NewUserRepository(), nil)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, domain.Identity{TelegramID: 7, Username: "keep", FirstName: "Bob"})
	require.NoError(t, err)

	// A request without display attributes must not erase the stored ones.
	user, err := resolver.Resolve(ctx, domain.Identity{TelegramID: 7})
	require.NoError(t, err)
	assert.Equal(t, "keep", user.Username)
	assert.Equal(t, "Bob", user.FirstName)
}

func TestFindDoesNotCreate(t *testing.T) {
	resolver := identity.New(memory.NewUserRepository(), nil)

	_, err := resolver.Find(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	// Still absent after the failed lookup.
	_, err = resolver.Find(context.Background(), 999)
	assert.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestConcurrentFirstContactsConvergeToOneUser(t *testing.T) {
	users := memory.NewUserRepository()
	resolver := identity.New(users, nil)
	ctx := context.Background()

	const workers = 16
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			user, err := resolver.Resolve(ctx, domain.Identity{
				TelegramID: 99,
				Username:   "racer",
			})
			errs[n] = err
			if user != nil {
				ids[n] = user.ID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, ids[0], ids[i], "worker %d resolved a different user", i)
	}

	winner, err := users.GetByTelegramID(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, ids[0], winner.ID)
}
