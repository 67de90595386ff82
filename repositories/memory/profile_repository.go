package memory

import (
	"PinguinTube/apperrors"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"sort"
	"time"
)

type SessionRepository struct {
	store *Store
}

var _ repositories.SessionRepository = (*SessionRepository)(nil)

func (r *SessionRepository) Create(_ context.Context, session *models.DeviceSession) error {
	r.store.sessionsMu.Lock()
	defer r.store.sessionsMu.Unlock()
	if _, exists := r.store.sessions[session.ID]; exists {
		return apperrors.InvalidState("session %s already exists", session.ID)
	}
	stored := *session
	r.store.sessions[session.ID] = &stored
	return nil
}

func (r *SessionRepository) FindByID(_ context.Context, id string) (models.DeviceSession, error) {
	r.store.sessionsMu.Lock()
	defer r.store.sessionsMu.Unlock()
	session, ok := r.store.sessions[id]
	if !ok {
		return models.DeviceSession{}, apperrors.NotFound("session not found")
	}
	return *session, nil
}

func (r *SessionRepository) Revoke(_ context.Context, id string, at time.Time) error {
	r.store.sessionsMu.Lock()
	defer r.store.sessionsMu.Unlock()
	if session, ok := r.store.sessions[id]; ok && session.RevokedAt == nil {
		revokedAt := at
		session.RevokedAt = &revokedAt
	}
	return nil
}

type ChildRepository struct {
	store *Store
}

var _ repositories.ChildRepository = (*ChildRepository)(nil)

func (r *ChildRepository) FindByID(_ context.Context, id uint) (models.Child, error) {
	r.store.profilesMu.RLock()
	defer r.store.profilesMu.RUnlock()
	child, ok := r.store.children[id]
	if !ok {
		return models.Child{}, apperrors.NotFound("child not found")
	}
	return child, nil
}

func (r *ChildRepository) Save(_ context.Context, child *models.Child) error {
	r.store.profilesMu.Lock()
	defer r.store.profilesMu.Unlock()
	if child.ID == 0 {
		r.store.nextChildID++
		child.ID = r.store.nextChildID
	} else if child.ID > r.store.nextChildID {
		r.store.nextChildID = child.ID
	}
	r.store.children[child.ID] = *child
	return nil
}

func (r *ChildRepository) UpdateQRToken(_ context.Context, id uint, hash string, expiresAt time.Time) error {
	r.store.profilesMu.Lock()
	defer r.store.profilesMu.Unlock()
	child, ok := r.store.children[id]
	if !ok {
		return apperrors.NotFound("child not found")
	}
	child.QRTokenHash = hash
	child.QRTokenExpiresAt = &expiresAt
	r.store.children[id] = child
	return nil
}

func (r *ChildRepository) UpdateLimits(_ context.Context, id uint, limits models.LimitConfiguration) error {
	r.store.profilesMu.Lock()
	defer r.store.profilesMu.Unlock()
	child, ok := r.store.children[id]
	if !ok {
		return apperrors.NotFound("child not found")
	}
	child.Limits = limits
	r.store.children[id] = child
	return nil
}

type ParentRepository struct {
	store *Store
}

var _ repositories.ParentRepository = (*ParentRepository)(nil)

func (r *ParentRepository) FindByFirebaseUID(_ context.Context, firebaseUID string) (models.Parent, error) {
	r.store.profilesMu.RLock()
	defer r.store.profilesMu.RUnlock()
	parent, ok := r.store.parents[firebaseUID]
	if !ok {
		return models.Parent{}, apperrors.NotFound("parent not found")
	}
	return parent, nil
}

func (r *ParentRepository) ListByFamily(_ context.Context, familyID uint) ([]models.Parent, error) {
	r.store.profilesMu.RLock()
	defer r.store.profilesMu.RUnlock()
	var result []models.Parent
	for _, p := range r.store.parents {
		if p.FamilyID == familyID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *ParentRepository) Save(_ context.Context, parent *models.Parent) error {
	r.store.profilesMu.Lock()
	defer r.store.profilesMu.Unlock()
	if parent.ID == 0 {
		r.store.nextParentID++
		parent.ID = r.store.nextParentID
	}
	r.store.parents[parent.FirebaseUID] = *parent
	return nil
}
