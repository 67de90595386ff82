package impl

import (
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"time"

	"gorm.io/gorm"
)

type ChildRepositoryImpl struct {
	DB *gorm.DB
}

func NewChildRepository(db *gorm.DB) repositories.ChildRepository {
	return &ChildRepositoryImpl{DB: db}
}

func (r *ChildRepositoryImpl) FindByID(ctx context.Context, id uint) (models.Child, error) {
	var child models.Child
	if err := r.DB.WithContext(ctx).First(&child, id).Error; err != nil {
		return models.Child{}, translate(err, "child")
	}
	return child, nil
}

func (r *ChildRepositoryImpl) Save(ctx context.Context, child *models.Child) error {
	return r.DB.WithContext(ctx).Save(child).Error
}

func (r *ChildRepositoryImpl) UpdateQRToken(ctx context.Context, id uint, hash string, expiresAt time.Time) error {
	res := r.DB.WithContext(ctx).Model(&models.Child{}).Where("id = ?", id).Updates(map[string]interface{}{
		"qr_token_hash":       hash,
		"qr_token_expires_at": expiresAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "child")
	}
	return nil
}

// UpdateLimits пишет все три поля разом, чтобы nil лимит реально обнулял колонку
func (r *ChildRepositoryImpl) UpdateLimits(ctx context.Context, id uint, limits models.LimitConfiguration) error {
	res := r.DB.WithContext(ctx).Model(&models.Child{}).Where("id = ?", id).Updates(map[string]interface{}{
		"limit_daily_limit":  limits.DailyLimit,
		"limit_weekly_limit": limits.WeeklyLimit,
		"limit_enabled":      limits.Enabled,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "child")
	}
	return nil
}
