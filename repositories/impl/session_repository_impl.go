package impl

import (
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"time"

	"gorm.io/gorm"
)

type SessionRepositoryImpl struct {
	DB *gorm.DB
}

func NewSessionRepository(db *gorm.DB) repositories.SessionRepository {
	return &SessionRepositoryImpl{DB: db}
}

func (r *SessionRepositoryImpl) Create(ctx context.Context, session *models.DeviceSession) error {
	return r.DB.WithContext(ctx).Create(session).Error
}

func (r *SessionRepositoryImpl) FindByID(ctx context.Context, id string) (models.DeviceSession, error) {
	var session models.DeviceSession
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&session).Error; err != nil {
		return models.DeviceSession{}, translate(err, "session")
	}
	return session, nil
}

// Revoke идемпотентен: уже отозванная сессия сохраняет первое время отзыва
func (r *SessionRepositoryImpl) Revoke(ctx context.Context, id string, at time.Time) error {
	return r.DB.WithContext(ctx).Model(&models.DeviceSession{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Update("revoked_at", at).Error
}
