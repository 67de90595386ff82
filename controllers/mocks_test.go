package controllers

import (
	"PinguinTube/middlewares"
	"PinguinTube/models"
	"PinguinTube/services"
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

type MockCommandService struct {
	mock.Mock
}

func (m *MockCommandService) Enqueue(ctx context.Context, parentUID string, childID uint, kind models.CommandKind, payload models.CommandPayload) (models.Command, error) {
	args := m.Called(ctx, parentUID, childID, kind, payload)
	return args.Get(0).(models.Command), args.Error(1)
}

func (m *MockCommandService) PollPending(ctx context.Context, childID uint) ([]models.Command, error) {
	args := m.Called(ctx, childID)
	return args.Get(0).([]models.Command), args.Error(1)
}

func (m *MockCommandService) Acknowledge(ctx context.Context, childID uint, commandID string, outcome models.CommandStatus, reason string) (models.Command, error) {
	args := m.Called(ctx, childID, commandID, outcome, reason)
	return args.Get(0).(models.Command), args.Error(1)
}

func (m *MockCommandService) Cancel(ctx context.Context, parentUID string, commandID string) (models.Command, error) {
	args := m.Called(ctx, parentUID, commandID)
	return args.Get(0).(models.Command), args.Error(1)
}

func (m *MockCommandService) ListCommands(ctx context.Context, parentUID string, childID uint, limit int) ([]services.CommandView, error) {
	args := m.Called(ctx, parentUID, childID, limit)
	return args.Get(0).([]services.CommandView), args.Error(1)
}

func (m *MockCommandService) ReconcileExpired(ctx context.Context, parentUID string, childID uint) (int64, error) {
	args := m.Called(ctx, parentUID, childID)
	return args.Get(0).(int64), args.Error(1)
}

type MockScreenTimeService struct {
	mock.Mock
}

func (m *MockScreenTimeService) ReportUsage(ctx context.Context, session models.DeviceSession, minutesDelta int, sequence int64) (services.UsageResult, error) {
	args := m.Called(ctx, session, minutesDelta, sequence)
	return args.Get(0).(services.UsageResult), args.Error(1)
}

func (m *MockScreenTimeService) ResetToday(ctx context.Context, parentUID string, childID uint) error {
	args := m.Called(ctx, parentUID, childID)
	return args.Error(0)
}

func (m *MockScreenTimeService) GetSummary(ctx context.Context, parentUID string, childID uint, rangeDays int) (services.Summary, error) {
	args := m.Called(ctx, parentUID, childID, rangeDays)
	return args.Get(0).(services.Summary), args.Error(1)
}

func (m *MockScreenTimeService) ExportSummary(ctx context.Context, parentUID string, childID uint, rangeDays int) ([]byte, error) {
	args := m.Called(ctx, parentUID, childID, rangeDays)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockScreenTimeService) SetLimits(ctx context.Context, parentUID string, childID uint, limits models.LimitConfiguration) (models.LimitConfiguration, error) {
	args := m.Called(ctx, parentUID, childID, limits)
	return args.Get(0).(models.LimitConfiguration), args.Error(1)
}

type MockDeviceAuthService struct {
	mock.Mock
}

func (m *MockDeviceAuthService) IssueFromQR(ctx context.Context, qrToken string, deviceName string) (models.DeviceSession, string, error) {
	args := m.Called(ctx, qrToken, deviceName)
	return args.Get(0).(models.DeviceSession), args.String(1), args.Error(2)
}

func (m *MockDeviceAuthService) Validate(ctx context.Context, token string) (models.DeviceSession, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.DeviceSession), args.Error(1)
}

func (m *MockDeviceAuthService) Revoke(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockDeviceAuthService) RotateQRToken(ctx context.Context, parentUID string, childID uint) (string, time.Time, error) {
	args := m.Called(ctx, parentUID, childID)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

const testParentUID = "ZEXF4HEyySaGUVUFzUifUsF6rLi2"

var testSession = models.DeviceSession{ID: "5f0c8a52-7d1b-4c3e-9a51-2f3b8e1d7c40", ChildID: 7}

type testServices struct {
	commands   *MockCommandService
	screenTime *MockScreenTimeService
	auth       *MockDeviceAuthService
}

// setupTestRouter регистрирует обработчики без JWT: родитель и сессия устройства подставляются напрямую
func setupTestRouter() (*gin.Engine, testServices) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	svc := testServices{
		commands:   new(MockCommandService),
		screenTime: new(MockScreenTimeService),
		auth:       new(MockDeviceAuthService),
	}
	SetCommandService(svc.commands)
	SetScreenTimeService(svc.screenTime)
	SetDeviceAuthService(svc.auth)

	router.POST("/device/session", IssueDeviceSession)

	device := router.Group("/device", func(c *gin.Context) {
		c.Set(middlewares.DeviceSessionKey, testSession)
		c.Next()
	})
	device.GET("/commands", PollCommands)
	device.POST("/commands/:command_id/ack", AckCommand)
	device.POST("/usage", ReportUsage)

	parents := router.Group("/parents", func(c *gin.Context) {
		c.Set(middlewares.FirebaseUIDKey, testParentUID)
		c.Set(middlewares.UserTypeKey, middlewares.UserTypeParent)
		c.Next()
	})
	parents.POST("/commands/:command_id/cancel", CancelCommand)
	parents.POST("/children/:child_id/commands", EnqueueCommand)
	parents.GET("/children/:child_id/commands", ListCommands)
	parents.POST("/children/:child_id/commands/reconcile", ReconcileCommands)
	parents.POST("/children/:child_id/screen-time/reset", ResetScreenTime)
	parents.GET("/children/:child_id/screen-time/summary", GetScreenTimeSummary)
	parents.GET("/children/:child_id/screen-time/export", ExportScreenTime)
	parents.PUT("/children/:child_id/limits", SetLimits)
	parents.POST("/children/:child_id/qr-token", RotateQRToken)

	return router, svc
}
