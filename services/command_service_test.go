package services

import (
	"PinguinTube/apperrors"
	"PinguinTube/interfaces"
	"PinguinTube/models"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueuePollAcknowledgeScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)
	assert.Equal(t, models.CommandPending, cmd.Status)
	assert.NotEmpty(t, cmd.ID)

	pending, err := f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, cmd.ID, pending[0].ID)

	acked, err := f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandExecuted, "")
	require.NoError(t, err)
	assert.Equal(t, models.CommandExecuted, acked.Status)
	require.NotNil(t, acked.ExecutedAt)
	assert.True(t, acked.ExecutedAt.Equal(f.clock.Now()))

	pending, err = f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandExecuted, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestEnqueueRejectsOtherFamily(t *testing.T) {
	f := newFixture(t)

	_, err := f.commands.Enqueue(context.Background(), otherParentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestEnqueueUnknownParentIsAuthorizationError(t *testing.T) {
	f := newFixture(t)

	_, err := f.commands.Enqueue(context.Background(), "stranger", f.child.ID, models.CommandPause, models.CommandPayload{})
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}

func TestEnqueueUnknownChild(t *testing.T) {
	f := newFixture(t)

	_, err := f.commands.Enqueue(context.Background(), parentUID, 999, models.CommandPause, models.CommandPayload{})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEnqueueValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    models.CommandKind
		payload models.CommandPayload
		wantErr bool
	}{
		{"unknown kind", models.CommandKind("SELF_DESTRUCT"), models.CommandPayload{}, true},
		{"emergency without message", models.CommandEmergencyMessage, models.CommandPayload{}, true},
		{"emergency blank message", models.CommandEmergencyMessage, models.CommandPayload{Message: "   "}, true},
		{"emergency too long", models.CommandEmergencyMessage, models.CommandPayload{Message: strings.Repeat("я", models.MaxEmergencyMessageLength+1)}, true},
		{"emergency at limit", models.CommandEmergencyMessage, models.CommandPayload{Message: strings.Repeat("я", models.MaxEmergencyMessageLength)}, false},
		{"pause with message", models.CommandPause, models.CommandPayload{Message: "hi"}, true},
		{"lock", models.CommandLockDevice, models.CommandPayload{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, tt.kind, tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEnqueueDoesNotDeduplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	third, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandResume, models.CommandPayload{})
	require.NoError(t, err)

	pending, err := f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []string{first.ID, second.ID, third.ID}, []string{pending[0].ID, pending[1].ID, pending[2].ID})
}

func TestPollPendingFiltersExpiredButAckStillAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandLockDevice, models.CommandPayload{})
	require.NoError(t, err)

	f.clock.Advance(models.CommandTTL - time.Second)
	pending, err := f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	f.clock.Advance(time.Second)
	pending, err = f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Статус в хранилище не меняется
	stored, err := f.store.Commands().FindByID(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandPending, stored.Status)

	acked, err := f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandExecuted, "")
	require.NoError(t, err)
	assert.Equal(t, models.CommandExecuted, acked.Status)
}

func TestPollPendingIsScopedToChild(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.commands.Enqueue(ctx, otherParentUID, f.otherChild.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)

	pending, err := f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	assert.NotNil(t, pending)
	assert.Empty(t, pending)
}

func TestAcknowledgeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)

	_, err = f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandCancelled, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandPending, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = f.commands.Acknowledge(ctx, f.child.ID, "missing", models.CommandExecuted, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAcknowledgeOtherChildsCommandIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)

	_, err = f.commands.Acknowledge(ctx, f.otherChild.ID, cmd.ID, models.CommandExecuted, "")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	stored, err := f.store.Commands().FindByID(ctx, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandPending, stored.Status)
}

func TestAcknowledgeFailedEmitsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandLockDevice, models.CommandPayload{})
	require.NoError(t, err)

	acked, err := f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandFailed, "device admin disabled")
	require.NoError(t, err)
	assert.Equal(t, models.CommandFailed, acked.Status)
	assert.Equal(t, "device admin disabled", acked.FailureReason)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, interfaces.EventCommandFailed, events[0].Type)
	assert.Equal(t, cmd.ID, events[0].CommandID)
	assert.Equal(t, f.child.FamilyID, events[0].FamilyID)
	assert.Equal(t, "LOCK_DEVICE", events[0].Kind)
}

func TestAcknowledgeExecutedDropsReason(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)

	acked, err := f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandExecuted, "ignored")
	require.NoError(t, err)
	assert.Empty(t, acked.FailureReason)
	assert.Empty(t, f.notifier.Events())
}

func TestNoTransitionAfterTerminal(t *testing.T) {
	terminal := []struct {
		name  string
		reach func(f *fixture, id string) error
	}{
		{"executed", func(f *fixture, id string) error {
			_, err := f.commands.Acknowledge(context.Background(), f.child.ID, id, models.CommandExecuted, "")
			return err
		}},
		{"failed", func(f *fixture, id string) error {
			_, err := f.commands.Acknowledge(context.Background(), f.child.ID, id, models.CommandFailed, "")
			return err
		}},
		{"cancelled", func(f *fixture, id string) error {
			_, err := f.commands.Cancel(context.Background(), parentUID, id)
			return err
		}},
	}

	for _, tt := range terminal {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
			require.NoError(t, err)
			require.NoError(t, tt.reach(f, cmd.ID))

			_, err = f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandExecuted, "")
			assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			_, err = f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandFailed, "")
			assert.ErrorIs(t, err, apperrors.ErrInvalidState)
			_, err = f.commands.Cancel(ctx, parentUID, cmd.ID)
			assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		})
	}
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)

	_, err = f.commands.Cancel(ctx, otherParentUID, cmd.ID)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	_, err = f.commands.Cancel(ctx, parentUID, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	cancelled, err := f.commands.Cancel(ctx, parentUID, cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandCancelled, cancelled.Status)
	assert.Nil(t, cancelled.ExecutedAt)

	pending, err := f.commands.PollPending(ctx, f.child.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestConcurrentAcknowledgeOnlyOneSucceeds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cmd, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, invalid := 0, 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.commands.Acknowledge(ctx, f.child.ID, cmd.ID, models.CommandExecuted, "")
			} else {
				_, err = f.commands.Cancel(ctx, parentUID, cmd.ID)
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, apperrors.ErrInvalidState) {
				invalid++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, invalid)
}

func TestListCommandsMarksExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)
	fresh, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandResume, models.CommandPayload{})
	require.NoError(t, err)

	views, err := f.commands.ListCommands(ctx, parentUID, f.child.ID, 0)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, fresh.ID, views[0].ID)
	assert.False(t, views[0].Expired)
	assert.Equal(t, old.ID, views[1].ID)
	assert.True(t, views[1].Expired)

	_, err = f.commands.ListCommands(ctx, otherParentUID, f.child.ID, 0)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)

	_, err = f.commands.ListCommands(ctx, parentUID, f.child.ID, maxHistoryLimit+1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReconcileExpiredFailsOnlyExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandPause, models.CommandPayload{})
	require.NoError(t, err)
	f.clock.Advance(models.CommandTTL)
	fresh, err := f.commands.Enqueue(ctx, parentUID, f.child.ID, models.CommandResume, models.CommandPayload{})
	require.NoError(t, err)

	n, err := f.commands.ReconcileExpired(ctx, parentUID, f.child.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := f.store.Commands().FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandFailed, stored.Status)
	assert.Equal(t, FailureReasonExpired, stored.FailureReason)

	stored, err = f.store.Commands().FindByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CommandPending, stored.Status)

	// После сверки подтверждение уже невозможно
	_, err = f.commands.Acknowledge(ctx, f.child.ID, old.ID, models.CommandExecuted, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = f.commands.ReconcileExpired(ctx, otherParentUID, f.child.ID)
	assert.ErrorIs(t, err, apperrors.ErrAuthorization)
}
