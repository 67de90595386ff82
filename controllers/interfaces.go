package controllers

import (
	"PinguinTube/models"
	"PinguinTube/services"
	"context"
	"time"
)

// CommandServiceInterface методы очереди команд, которые нужны контроллерам
type CommandServiceInterface interface {
	Enqueue(ctx context.Context, parentUID string, childID uint, kind models.CommandKind, payload models.CommandPayload) (models.Command, error)
	PollPending(ctx context.Context, childID uint) ([]models.Command, error)
	Acknowledge(ctx context.Context, childID uint, commandID string, outcome models.CommandStatus, reason string) (models.Command, error)
	Cancel(ctx context.Context, parentUID string, commandID string) (models.Command, error)
	ListCommands(ctx context.Context, parentUID string, childID uint, limit int) ([]services.CommandView, error)
	ReconcileExpired(ctx context.Context, parentUID string, childID uint) (int64, error)
}

// ScreenTimeServiceInterface учёт экранного времени и лимиты
type ScreenTimeServiceInterface interface {
	ReportUsage(ctx context.Context, session models.DeviceSession, minutesDelta int, sequence int64) (services.UsageResult, error)
	ResetToday(ctx context.Context, parentUID string, childID uint) error
	GetSummary(ctx context.Context, parentUID string, childID uint, rangeDays int) (services.Summary, error)
	ExportSummary(ctx context.Context, parentUID string, childID uint, rangeDays int) ([]byte, error)
	SetLimits(ctx context.Context, parentUID string, childID uint, limits models.LimitConfiguration) (models.LimitConfiguration, error)
}

// DeviceAuthServiceInterface сессии устройств и QR токены
type DeviceAuthServiceInterface interface {
	IssueFromQR(ctx context.Context, qrToken string, deviceName string) (models.DeviceSession, string, error)
	Validate(ctx context.Context, token string) (models.DeviceSession, error)
	Revoke(ctx context.Context, sessionID string) error
	RotateQRToken(ctx context.Context, parentUID string, childID uint) (string, time.Time, error)
}

var (
	_ CommandServiceInterface    = (*services.CommandService)(nil)
	_ ScreenTimeServiceInterface = (*services.ScreenTimeService)(nil)
	_ DeviceAuthServiceInterface = (*services.DeviceAuthService)(nil)
)
