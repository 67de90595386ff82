package services

import (
	"PinguinTube/apperrors"
	"PinguinTube/interfaces"
	"PinguinTube/models"
	"PinguinTube/repositories"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// FailureReasonExpired причина, с которой ReconcileExpired закрывает просроченные команды
	FailureReasonExpired = "expired"

	maxFailureReasonLength = 255
	defaultHistoryLimit    = 50
	maxHistoryLimit        = 200
)

// CommandView команда в истории для родителя с вычисленным признаком просрочки
type CommandView struct {
	models.Command
	Expired bool `json:"expired"`
}

type CommandService struct {
	CommandRepo repositories.CommandRepository
	Family      *FamilyService
	ChildRepo   repositories.ChildRepository
	Notifier    interfaces.Notifier
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewCommandService(commandRepo repositories.CommandRepository, family *FamilyService, childRepo repositories.ChildRepository, notifier interfaces.Notifier, logger *zap.Logger) *CommandService {
	return &CommandService{
		CommandRepo: commandRepo,
		Family:      family,
		ChildRepo:   childRepo,
		Notifier:    notifier,
		Logger:      logger,
		Now:         time.Now,
	}
}

// Enqueue всегда создаёт новую PENDING команду, дубликаты не схлопываются
func (s *CommandService) Enqueue(ctx context.Context, parentUID string, childID uint, kind models.CommandKind, payload models.CommandPayload) (models.Command, error) {
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return models.Command{}, err
	}
	if err := validateCommand(kind, payload); err != nil {
		return models.Command{}, err
	}

	command := models.Command{
		ID:        uuid.NewString(),
		ChildID:   childID,
		Kind:      kind,
		Payload:   payload,
		Status:    models.CommandPending,
		CreatedAt: s.Now(),
	}
	if err := s.CommandRepo.Create(ctx, &command); err != nil {
		return models.Command{}, err
	}

	s.Logger.Info("command enqueued",
		zap.String("command_id", command.ID),
		zap.Uint("child_id", childID),
		zap.String("kind", string(kind)))
	return command, nil
}

func validateCommand(kind models.CommandKind, payload models.CommandPayload) error {
	if !kind.Valid() {
		return apperrors.Validation("unknown command kind %q", kind)
	}
	if kind == models.CommandEmergencyMessage {
		n := utf8.RuneCountInString(strings.TrimSpace(payload.Message))
		if n == 0 {
			return apperrors.Validation("EMERGENCY_MESSAGE requires a message")
		}
		if utf8.RuneCountInString(payload.Message) > models.MaxEmergencyMessageLength {
			return apperrors.Validation("message must be at most %d characters", models.MaxEmergencyMessageLength)
		}
		return nil
	}
	if !payload.IsEmpty() {
		return apperrors.Validation("%s does not accept a payload", kind)
	}
	return nil
}

// PollPending возвращает непросроченные PENDING команды, старые первыми. Состояние не меняет.
func (s *CommandService) PollPending(ctx context.Context, childID uint) ([]models.Command, error) {
	commands, err := s.CommandRepo.ListPending(ctx, childID, s.Now().Add(-models.CommandTTL))
	if err != nil {
		return nil, err
	}
	if commands == nil {
		commands = []models.Command{}
	}
	return commands, nil
}

// Acknowledge переводит команду в EXECUTED или FAILED. Команда чужого ребёнка
// выглядит как несуществующая. Просроченная, но ещё PENDING команда принимается.
func (s *CommandService) Acknowledge(ctx context.Context, childID uint, commandID string, outcome models.CommandStatus, reason string) (models.Command, error) {
	if outcome != models.CommandExecuted && outcome != models.CommandFailed {
		return models.Command{}, apperrors.Validation("outcome must be EXECUTED or FAILED")
	}
	if utf8.RuneCountInString(reason) > maxFailureReasonLength {
		return models.Command{}, apperrors.Validation("reason must be at most %d characters", maxFailureReasonLength)
	}
	if outcome == models.CommandExecuted {
		reason = ""
	}

	command, err := s.CommandRepo.FindByID(ctx, commandID)
	if err != nil {
		return models.Command{}, err
	}
	if command.ChildID != childID {
		return models.Command{}, apperrors.NotFound("command not found")
	}

	now := s.Now()
	updated, err := s.CommandRepo.Transition(ctx, commandID, repositories.Transition{
		To:         outcome,
		ExecutedAt: &now,
		Reason:     reason,
	})
	if err != nil {
		return models.Command{}, err
	}

	s.Logger.Info("command acknowledged",
		zap.String("command_id", commandID),
		zap.Uint("child_id", childID),
		zap.String("outcome", string(outcome)),
		zap.Bool("late", command.IsExpired(now)))

	if outcome == models.CommandFailed {
		s.notifyFailed(ctx, updated, now)
	}
	return updated, nil
}

func (s *CommandService) notifyFailed(ctx context.Context, command models.Command, now time.Time) {
	child, err := s.ChildRepo.FindByID(ctx, command.ChildID)
	if err != nil {
		s.Logger.Warn("failed to load child for notification", zap.Uint("child_id", command.ChildID), zap.Error(err))
		return
	}
	s.Notifier.Notify(ctx, interfaces.Event{
		Type:       interfaces.EventCommandFailed,
		FamilyID:   child.FamilyID,
		ChildID:    child.ID,
		ChildName:  child.Name,
		CommandID:  command.ID,
		Kind:       string(command.Kind),
		Reason:     command.FailureReason,
		OccurredAt: now,
	})
}

// Cancel доступен только семье, которой принадлежит команда
func (s *CommandService) Cancel(ctx context.Context, parentUID string, commandID string) (models.Command, error) {
	command, err := s.CommandRepo.FindByID(ctx, commandID)
	if err != nil {
		return models.Command{}, err
	}
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, command.ChildID); err != nil {
		return models.Command{}, err
	}

	updated, err := s.CommandRepo.Transition(ctx, commandID, repositories.Transition{To: models.CommandCancelled})
	if err != nil {
		return models.Command{}, err
	}
	s.Logger.Info("command cancelled", zap.String("command_id", commandID), zap.Uint("child_id", command.ChildID))
	return updated, nil
}

func (s *CommandService) ListCommands(ctx context.Context, parentUID string, childID uint, limit int) ([]CommandView, error) {
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return nil, apperrors.Validation("limit must be at most %d", maxHistoryLimit)
	}

	commands, err := s.CommandRepo.ListByChild(ctx, childID, limit)
	if err != nil {
		return nil, err
	}
	now := s.Now()
	views := make([]CommandView, 0, len(commands))
	for i := range commands {
		views = append(views, CommandView{Command: commands[i], Expired: commands[i].IsExpired(now)})
	}
	return views, nil
}

// ReconcileExpired явно закрывает просроченные PENDING команды как FAILED("expired").
// Автоматически этого не происходит.
func (s *CommandService) ReconcileExpired(ctx context.Context, parentUID string, childID uint) (int64, error) {
	if _, err := s.Family.AuthorizeChild(ctx, parentUID, childID); err != nil {
		return 0, err
	}
	n, err := s.CommandRepo.FailExpired(ctx, childID, s.Now().Add(-models.CommandTTL), repositories.Transition{
		To:     models.CommandFailed,
		Reason: FailureReasonExpired,
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.Logger.Info("expired commands reconciled", zap.Uint("child_id", childID), zap.Int64("count", n))
	}
	return n, nil
}
