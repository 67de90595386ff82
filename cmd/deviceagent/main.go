// deviceagent эмулятор устройства ребёнка: привязка по QR, опрос команд и отчёты о времени.
package main

import (
	"PinguinTube/deviceclient"
	"PinguinTube/logger"
	"PinguinTube/models"
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	zlog, err := logger.NewLogger(os.Getenv("LOG_LEVEL"), "console", "deviceagent")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer zlog.Sync()

	baseURL := os.Getenv("CONTROL_PLANE_URL")
	qrToken := os.Getenv("QR_TOKEN")
	if baseURL == "" || qrToken == "" {
		zlog.Fatal("CONTROL_PLANE_URL and QR_TOKEN are required")
	}
	pollInterval := 10 * time.Second
	if raw := os.Getenv("POLL_INTERVAL"); raw != "" {
		if pollInterval, err = time.ParseDuration(raw); err != nil {
			zlog.Fatal("invalid POLL_INTERVAL", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := deviceclient.New(deviceclient.Config{BaseURL: baseURL, RetryCount: 3}, zlog)
	session, err := client.IssueSession(ctx, qrToken, os.Getenv("DEVICE_NAME"))
	if err != nil {
		zlog.Fatal("pairing failed", zap.Error(err))
	}
	zlog.Info("paired", zap.Uint("child_id", session.ChildID), zap.Time("expires_at", session.ExpiresAt))

	agent := &deviceclient.Agent{
		Client: client,
		Logger: zlog,
		Handler: func(ctx context.Context, command models.Command) error {
			zlog.Info("applying command", zap.String("id", command.ID), zap.String("kind", string(command.Kind)))
			return nil
		},
	}

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	usage := time.NewTicker(time.Minute)
	defer usage.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			if err := agent.Tick(ctx); err != nil {
				if errors.Is(err, deviceclient.ErrLoggedOut) {
					zlog.Info("logged out, scan a new QR code to pair again")
					return
				}
				zlog.Warn("poll failed", zap.Error(err))
			}
		case <-usage.C:
			result, err := agent.Report(ctx, 1)
			if err != nil {
				if errors.Is(err, deviceclient.ErrLoggedOut) {
					zlog.Info("logged out, scan a new QR code to pair again")
					return
				}
				zlog.Warn("usage report failed", zap.Error(err))
				continue
			}
			if result.Blocked {
				zlog.Info("screen time limit reached", zap.String("reason", result.Reason), zap.Int("total_today", result.TotalToday))
			}
		}
	}
}
