package repositories

import (
	"PinguinTube/models"
	"context"
	"time"
)

type ChildRepository interface {
	FindByID(ctx context.Context, id uint) (models.Child, error)
	Save(ctx context.Context, child *models.Child) error
	UpdateQRToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error
	UpdateLimits(ctx context.Context, id uint, limits models.LimitConfiguration) error
}
