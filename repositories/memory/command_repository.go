package memory

import (
	"PinguinTube/apperrors"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"sort"
	"time"
)

type CommandRepository struct {
	store *Store
}

var _ repositories.CommandRepository = (*CommandRepository)(nil)

func (r *CommandRepository) Create(_ context.Context, command *models.Command) error {
	if command.ID == "" {
		return apperrors.Validation("command id is required")
	}
	if _, exists := r.store.commandIndex.LoadOrStore(command.ID, command.ChildID); exists {
		return apperrors.InvalidState("command %s already exists", command.ID)
	}
	now := time.Now()
	if command.CreatedAt.IsZero() {
		command.CreatedAt = now
	}
	command.UpdatedAt = now

	sh := r.store.shard(command.ChildID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	stored := *command
	sh.commands = append(sh.commands, &stored)
	return nil
}

// locate находит шард и указатель на команду; вызывающий обязан держать sh.mu
func (r *CommandRepository) locate(id string) (*childShard, bool) {
	childID, ok := r.store.commandIndex.Load(id)
	if !ok {
		return nil, false
	}
	return r.store.shard(childID.(uint)), true
}

func findCommand(sh *childShard, id string) *models.Command {
	for _, c := range sh.commands {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (r *CommandRepository) FindByID(_ context.Context, id string) (models.Command, error) {
	sh, ok := r.locate(id)
	if !ok {
		return models.Command{}, apperrors.NotFound("command not found")
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c := findCommand(sh, id)
	if c == nil {
		return models.Command{}, apperrors.NotFound("command not found")
	}
	return *c, nil
}

func (r *CommandRepository) ListPending(_ context.Context, childID uint, createdAfter time.Time) ([]models.Command, error) {
	sh := r.store.shard(childID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var result []models.Command
	for _, c := range sh.commands {
		if c.Status == models.CommandPending && c.CreatedAt.After(createdAfter) {
			result = append(result, *c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *CommandRepository) ListByChild(_ context.Context, childID uint, limit int) ([]models.Command, error) {
	sh := r.store.shard(childID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	result := make([]models.Command, 0, len(sh.commands))
	for i := len(sh.commands) - 1; i >= 0; i-- {
		result = append(result, *sh.commands[i])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *CommandRepository) Transition(_ context.Context, id string, t repositories.Transition) (models.Command, error) {
	sh, ok := r.locate(id)
	if !ok {
		return models.Command{}, apperrors.NotFound("command not found")
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()

	c := findCommand(sh, id)
	if c == nil {
		return models.Command{}, apperrors.NotFound("command not found")
	}
	if !c.CanTransition(t.To) {
		return models.Command{}, apperrors.InvalidState("command %s is already %s", id, c.Status)
	}
	applyTransition(c, t)
	return *c, nil
}

func (r *CommandRepository) FailExpired(_ context.Context, childID uint, createdBefore time.Time, t repositories.Transition) (int64, error) {
	sh := r.store.shard(childID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var n int64
	for _, c := range sh.commands {
		if c.Status == models.CommandPending && !c.CreatedAt.After(createdBefore) {
			applyTransition(c, t)
			n++
		}
	}
	return n, nil
}

func applyTransition(c *models.Command, t repositories.Transition) {
	c.Status = t.To
	c.FailureReason = t.Reason
	if t.ExecutedAt != nil {
		at := *t.ExecutedAt
		c.ExecutedAt = &at
	}
	c.UpdatedAt = time.Now()
}
