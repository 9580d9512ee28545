// Package memory provides mutex-guarded in-memory implementations of the
// repository contracts. They enforce the same uniqueness and soft-delete
// visibility rules as the Postgres implementations and back the unit tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
)

type userRepository struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]domain.User
	byTG   map[int64]int64
}

// NewUserRepository creates an empty in-memory user repository.
func NewUserRepository() repository.UserRepository {
	return &userRepository{
		nextID: 1,
		byID:   make(map[int64]domain.User),
		byTG:   make(map[int64]int64),
	}
}

func (r *userRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byTG[telegramID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byTG[user.TelegramID]; exists {
		return nil, domain.ErrUserExists
	}

	now := time.Now()
	user.ID = r.nextID
	r.nextID++
	user.IsActive = true
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = *user
	r.byTG[user.TelegramID] = user.ID
	return user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}

	stored.Username = user.Username
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.IsActive = user.IsActive
	stored.UpdatedAt = time.Now()

	r.byID[user.ID] = stored
	user.UpdatedAt = stored.UpdatedAt
	return nil
}
