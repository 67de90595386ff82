package services

import (
	"PinguinTube/apperrors"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"errors"
)

// FamilyService отвечает на вопрос "принадлежит ли родитель/ребёнок семье"
type FamilyService struct {
	ParentRepo repositories.ParentRepository
	ChildRepo  repositories.ChildRepository
}

func NewFamilyService(parentRepo repositories.ParentRepository, childRepo repositories.ChildRepository) *FamilyService {
	return &FamilyService{ParentRepo: parentRepo, ChildRepo: childRepo}
}

func (s *FamilyService) ParentInFamily(ctx context.Context, parentUID string, familyID uint) (bool, error) {
	parent, err := s.ParentRepo.FindByFirebaseUID(ctx, parentUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return parent.FamilyID == familyID, nil
}

func (s *FamilyService) ChildInFamily(ctx context.Context, childID uint, familyID uint) (bool, error) {
	child, err := s.ChildRepo.FindByID(ctx, childID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return child.FamilyID == familyID, nil
}

// AuthorizeChild возвращает профиль ребёнка, если родитель состоит в той же семье.
// Неизвестный родитель и чужая семья дают AuthorizationError, неизвестный ребёнок NotFoundError.
func (s *FamilyService) AuthorizeChild(ctx context.Context, parentUID string, childID uint) (models.Child, error) {
	parent, err := s.ParentRepo.FindByFirebaseUID(ctx, parentUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return models.Child{}, apperrors.Authorization("parent is not registered")
		}
		return models.Child{}, err
	}

	child, err := s.ChildRepo.FindByID(ctx, childID)
	if err != nil {
		return models.Child{}, err
	}

	if child.FamilyID != parent.FamilyID {
		return models.Child{}, apperrors.Authorization("child %d does not belong to your family", childID)
	}
	return child, nil
}
