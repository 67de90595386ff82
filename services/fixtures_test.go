package services

import (
	"PinguinTube/interfaces"
	"PinguinTube/models"
	"PinguinTube/repositories/memory"
	"PinguinTube/store"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	parentUID      = "ZEXF4HEyySaGUVUFzUifUsF6rLi2"
	otherParentUID = "OeLYNPOdTkVhnKihw8Pqns1Q6Ml1"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingNotifier сохраняет события вместо отправки
type recordingNotifier struct {
	mu     sync.Mutex
	events []interfaces.Event
}

func (n *recordingNotifier) Notify(_ context.Context, event interfaces.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []interfaces.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]interfaces.Event(nil), n.events...)
}

type fixture struct {
	store    *memory.Store
	kv       *store.MemoryKVStore
	clock    *fakeClock
	notifier *recordingNotifier
	family   *FamilyService

	commands   *CommandService
	screenTime *ScreenTimeService
	auth       *DeviceAuthService

	child      models.Child
	otherChild models.Child
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	// 10:00 по Алматы
	clock := &fakeClock{now: time.Date(2024, 3, 15, 5, 0, 0, 0, time.UTC)}
	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	st := memory.NewStore()
	kv := store.NewMemoryKVStore()
	notifier := &recordingNotifier{}
	logger := zap.NewNop()

	require.NoError(t, st.Parents().Save(ctx, &models.Parent{FamilyID: 1, FirebaseUID: parentUID, Name: "Aigerim", Lang: "ru", DeviceToken: "fcm-token-1"}))
	require.NoError(t, st.Parents().Save(ctx, &models.Parent{FamilyID: 2, FirebaseUID: otherParentUID, Name: "John", Lang: "en"}))

	child := models.Child{FamilyID: 1, Name: "Alan", Lang: "ru"}
	require.NoError(t, st.Children().Save(ctx, &child))
	otherChild := models.Child{FamilyID: 2, Name: "Kate", Lang: "en"}
	require.NoError(t, st.Children().Save(ctx, &otherChild))

	family := NewFamilyService(st.Parents(), st.Children())

	commands := NewCommandService(st.Commands(), family, st.Children(), notifier, logger)
	commands.Now = clock.Now

	screenTime := NewScreenTimeService(st.ScreenTime(), st.Children(), family, notifier, logger, loc)
	screenTime.Now = clock.Now

	auth := NewDeviceAuthService(st.Children(), st.Sessions(), family, kv, logger, "test-secret", 12*time.Hour, 24*time.Hour)
	auth.Now = clock.Now
	auth.HashCost = bcrypt.MinCost

	return &fixture{
		store:      st,
		kv:         kv,
		clock:      clock,
		notifier:   notifier,
		family:     family,
		commands:   commands,
		screenTime: screenTime,
		auth:       auth,
		child:      child,
		otherChild: otherChild,
	}
}

func (f *fixture) setLimits(t *testing.T, limits models.LimitConfiguration) {
	t.Helper()
	require.NoError(t, f.store.Children().UpdateLimits(context.Background(), f.child.ID, limits))
}

// session выпускает настоящую сессию через QR, как это делает устройство
func (f *fixture) session(t *testing.T) (models.DeviceSession, string) {
	t.Helper()
	ctx := context.Background()
	qr, _, err := f.auth.RotateQRToken(ctx, parentUID, f.child.ID)
	require.NoError(t, err)
	session, token, err := f.auth.IssueFromQR(ctx, qr, "Pixel 7")
	require.NoError(t, err)
	return session, token
}

func intPtr(v int) *int {
	return &v
}
