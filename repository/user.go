package repository

import (
	"context"

	"github.com/taskhub/backend/domain"
)

// UserRepository owns durable user storage. The telegram_id column carries a
// uniqueness constraint; Create surfaces a CONFLICT domain error when two
// inserts race for the same identity so callers can converge on the winner.
type UserRepository interface {
	GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
}
