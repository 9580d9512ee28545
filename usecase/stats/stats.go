// Package stats aggregates per-user task counts by status.
package stats

import (
	"context"

	"go.uber.org/zap"

	"github.com/taskhub/backend/domain"
	"github.com/taskhub/backend/repository"
	"github.com/taskhub/backend/usecase"
	"github.com/taskhub/backend/usecase/identity"
)

type UseCase struct {
	tasks      repository.TaskRepository
	identities *identity.Resolver
	cache      usecase.StatsCache
	logger     *zap.Logger
}

func New(
	tasks repository.TaskRepository,
	identities *identity.Resolver,
	cache usecase.StatsCache,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:      tasks,
		identities: identities,
		cache:      cache,
		logger:     logger,
	}
}

// Statistics returns {total, completed, pending, in_progress} over the
// caller's non-deleted tasks. Cancelled tasks count toward total only. An
// unknown identity yields all-zero counts, never an error. Cache problems
// degrade to a recount.
func (uc *UseCase) Statistics(ctx context.Context, telegramID int64) (*domain.TaskStats, error) {
	user, err := uc.identities.Find(ctx, telegramID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return &domain.TaskStats{}, nil
		}
		return nil, err
	}

	if uc.cache != nil {
		cached, hit, err := uc.cache.Get(ctx, user.ID)
		if err != nil {
			uc.logger.Warn("stats cache read failed", zap.Int64("user_id", user.ID), zap.Error(err))
		} else if hit {
			return cached, nil
		}
	}

	total, err := uc.tasks.CountByStatus(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}
	completed, err := uc.tasks.CountByStatus(ctx, user.ID, domain.StatusCompleted)
	if err != nil {
		return nil, err
	}
	pending, err := uc.tasks.CountByStatus(ctx, user.ID, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	inProgress, err := uc.tasks.CountByStatus(ctx, user.ID, domain.StatusInProgress)
	if err != nil {
		return nil, err
	}

	result := &domain.TaskStats{
		Total:      total,
		Completed:  completed,
		Pending:    pending,
		InProgress: inProgress,
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, user.ID, result); err != nil {
			uc.logger.Warn("stats cache write failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	}

	return result, nil
}
