package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskhub/backend/domain"
)

func TestTaskStatusValid(t *testing.T) {
	valid := []domain.TaskStatus{
		domain.StatusPending,
		domain.StatusInProgress,
		domain.StatusCompleted,
		domain.StatusCancelled,
	}
	for _, status := range valid {
		assert.True(t, status.Valid(), "expected %q to be valid", status)
	}

	invalid := []domain.TaskStatus{"", "done", "PENDING", "unknown"}
	for _, status := range invalid {
		assert.False(t, status.Valid(), "expected %q to be invalid", status)
	}
}

func TestTaskPriorityValid(t *testing.T) {
	valid := []domain.TaskPriority{
		domain.PriorityLow,
		domain.PriorityMedium,
		domain.PriorityHigh,
		domain.PriorityUrgent,
	}
	for _, priority := range valid {
		assert.True(t, priority.Valid(), "expected %q to be valid", priority)
	}

	invalid := []domain.TaskPriority{"", "critical", "HIGH"}
	for _, priority := range invalid {
		assert.False(t, priority.Valid(), "expected %q to be invalid", priority)
	}
}

func TestTaskIsCompleted(t *testing.T) {
	var nilTask *domain.Task
	assert.False(t, nilTask.IsCompleted())

	assert.False(t, (&domain.Task{Status: domain.StatusPending}).IsCompleted())
	assert.True(t, (&domain.Task{Status: domain.StatusCompleted}).IsCompleted())
}

func TestIsDomainError(t *testing.T) {
	assert.True(t, domain.IsDomainError(domain.ErrTaskNotFound, domain.ErrCodeNotFound))
	assert.False(t, domain.IsDomainError(domain.ErrTaskNotFound, domain.ErrCodeInvalid))

	wrapped := domain.WrapError(domain.ErrCodeConflict, "insert failed", domain.ErrUserExists)
	assert.True(t, domain.IsDomainError(wrapped, domain.ErrCodeConflict))
	assert.False(t, domain.IsDomainError(nil, domain.ErrCodeNotFound))
}
