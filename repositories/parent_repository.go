package repositories

import (
	"PinguinTube/models"
	"context"
)

type ParentRepository interface {
	FindByFirebaseUID(ctx context.Context, firebaseUID string) (models.Parent, error)
	ListByFamily(ctx context.Context, familyID uint) ([]models.Parent, error)
	Save(ctx context.Context, parent *models.Parent) error
}
