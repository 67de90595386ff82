package repositories

import (
	"PinguinTube/models"
	"context"
	"time"
)

// Transition описывает перевод команды из PENDING в терминальный статус
type Transition struct {
	To         models.CommandStatus
	ExecutedAt *time.Time
	Reason     string
}

type CommandRepository interface {
	Create(ctx context.Context, command *models.Command) error
	FindByID(ctx context.Context, id string) (models.Command, error)
	// ListPending возвращает PENDING команды ребёнка, созданные строго позже createdAfter,
	// в порядке создания.
	ListPending(ctx context.Context, childID uint, createdAfter time.Time) ([]models.Command, error)
	// ListByChild история команд, новые первыми
	ListByChild(ctx context.Context, childID uint, limit int) ([]models.Command, error)
	// Transition атомарно применяет переход только если команда сейчас PENDING.
	// Иначе apperrors.ErrInvalidState (или ErrNotFound).
	Transition(ctx context.Context, id string, t Transition) (models.Command, error)
	// FailExpired переводит в FAILED все PENDING команды ребёнка, созданные не позже createdBefore
	FailExpired(ctx context.Context, childID uint, createdBefore time.Time, t Transition) (int64, error)
}
