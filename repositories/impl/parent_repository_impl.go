package impl

import (
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"

	"gorm.io/gorm"
)

type ParentRepositoryImpl struct {
	DB *gorm.DB
}

func NewParentRepository(db *gorm.DB) repositories.ParentRepository {
	return &ParentRepositoryImpl{DB: db}
}

func (r *ParentRepositoryImpl) FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error) {
	var parent models.Parent
	if err := r.DB.WithContext(ctx).Where("firebase_uid = ?", firebaseUID).First(&parent).Error; err != nil {
		return models.Parent{}, translate(err, "parent")
	}
	return parent, nil
}

func (r *ParentRepositoryImpl) ListByFamily(ctx context.Context, familyID uint) ([]models.Parent, error) {
	var parents []models.Parent
	if err := r.DB.WithContext(ctx).Where("family_id = ?", familyID).Order("id").Find(&parents).Error; err != nil {
		return nil, err
	}
	return parents, nil
}

func (r *ParentRepositoryImpl) Save(ctx context.Context, parent *models.Parent) error {
	return r.DB.WithContext(ctx).Save(parent).Error
}
