package repositories

import (
	"PinguinTube/models"
	"context"
	"time"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.DeviceSession) error
	FindByID(ctx context.Context, id string) (models.DeviceSession, error)
	Revoke(ctx context.Context, id string, at time.Time) error
}
