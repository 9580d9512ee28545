// Package identity maps external Telegram identities onto internal user
// records, creating them on first sight.
package identity

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
)

type Resolver struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func New(users repository.UserRepository, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		users:  users,
		logger: logger,
	}
}

// Resolve returns the user for the given identity, creating one on first
// contact. Display attributes that arrive non-empty and differ from the
// stored values overwrite them; the row is only written when something
// actually changed. Two concurrent first contacts race on the telegram_id
// uniqueness constraint; the loser re-reads the winning row so callers always
// converge on a single user.
func (r *Resolver) Resolve(ctx context.Context, ident domain.Identity) (*domain.User, error) {
	user, err := r.users.GetByTelegramID(ctx, ident.TelegramID)
	if err == nil {
		return r.refresh(ctx, user, ident)
	}
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		return nil, err
	}

	created, err := r.users.Create(ctx, &domain.User{
		TelegramID: ident.TelegramID,
		Username:   ident.Username,
		FirstName:  ident.FirstName,
		LastName:   ident.LastName,
	})
	if err == nil {
		r.logger.Info("user created",
			zap.Int64("user_id", created.ID),
			zap.Int64("telegram_id", created.TelegramID))
		return created, nil
	}
	if !domain.IsDomainError(err, domain.ErrCodeConflict) {
		return nil, err
	}

	// Lost the insert race; the winning row exists now.
	user, err = r.users.GetByTelegramID(ctx, ident.TelegramID)
	if err != nil {
		return nil, err
	}
	return r.refresh(ctx, user, ident)
}

// Find looks up the user without creating one. Read paths rely on this so an
// unknown identity stays unknown instead of being fabricated as a side effect.
func (r *Resolver) Find(ctx context.Context, telegramID int64) (*domain.User, error) {
	return r.users.GetByTelegramID(ctx, telegramID)
}

func (r *Resolver) refresh(ctx context.Context, user *domain.User, ident domain.Identity) (*domain.User, error) {
	changed := false
	if ident.Username != "" && ident.Username != user.Username {
		user.Username = ident.Username
		changed = true
	}
	if ident.FirstName != "" && ident.FirstName != user.FirstName {
		user.FirstName = ident.FirstName
		changed = true
	}
	if ident.LastName != "" && ident.LastName != user.LastName {
		user.LastName = ident.LastName
		changed = true
	}
	if !changed {
		return user, nil
	}
	if err := r.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
