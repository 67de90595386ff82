package impl

import (
	"PinguinTube/apperrors"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"time"

	"gorm.io/gorm"
)

type CommandRepositoryImpl struct {
	DB *gorm.DB
}

func NewCommandRepository(db *gorm.DB) repositories.CommandRepository {
	return &CommandRepositoryImpl{DB: db}
}

func (r *CommandRepositoryImpl) Create(ctx context.Context, command *models.Command) error {
	return r.DB.WithContext(ctx).Create(command).Error
}

func (r *CommandRepositoryImpl) FindByID(ctx context.Context, id string) (models.Command, error) {
	var command models.Command
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&command).Error; err != nil {
		return models.Command{}, translate(err, "command")
	}
	return command, nil
}

func (r *CommandRepositoryImpl) ListPending(ctx context.Context, childID uint, createdAfter time.Time) ([]models.Command, error) {
	var commands []models.Command
	err := r.DB.WithContext(ctx).
		Where("child_id = ? AND status = ? AND created_at > ?", childID, models.CommandPending, createdAfter).
		Order("created_at ASC, id ASC").
		Find(&commands).Error
	if err != nil {
		return nil, err
	}
	return commands, nil
}

func (r *CommandRepositoryImpl) ListByChild(ctx context.Context, childID uint, limit int) ([]models.Command, error) {
	var commands []models.Command
	err := r.DB.WithContext(ctx).
		Where("child_id = ?", childID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&commands).Error
	if err != nil {
		return nil, err
	}
	return commands, nil
}

// Transition делает условный UPDATE ... WHERE status = 'PENDING'.
// Из двух конкурирующих вызовов строку обновит только один, второй получит InvalidState.
func (r *CommandRepositoryImpl) Transition(ctx context.Context, id string, t repositories.Transition) (models.Command, error) {
	var command models.Command
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Command{}).
			Where("id = ? AND status = ?", id, models.CommandPending).
			Updates(transitionColumns(t))
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Where("id = ?", id).First(&command).Error; err != nil {
			return translate(err, "command")
		}
		if res.RowsAffected == 0 {
			return apperrors.InvalidState("command %s is already %s", id, command.Status)
		}
		return nil
	})
	if err != nil {
		return models.Command{}, err
	}
	return command, nil
}

func (r *CommandRepositoryImpl) FailExpired(ctx context.Context, childID uint, createdBefore time.Time, t repositories.Transition) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.Command{}).
		Where("child_id = ? AND status = ? AND created_at <= ?", childID, models.CommandPending, createdBefore).
		Updates(transitionColumns(t))
	return res.RowsAffected, res.Error
}

func transitionColumns(t repositories.Transition) map[string]interface{} {
	columns := map[string]interface{}{
		"status":         t.To,
		"failure_reason": t.Reason,
	}
	if t.ExecutedAt != nil {
		columns["executed_at"] = *t.ExecutedAt
	}
	return columns
}
