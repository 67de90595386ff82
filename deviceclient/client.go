// Package deviceclient HTTP клиент control plane для агента на устройстве ребёнка.
package deviceclient

import (
	"PinguinTube/models"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const kindInvalidState = "invalid_state"

// APIError ответ сервера со статусом 4xx/5xx
type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"kind"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control plane: %d %s: %s", e.Status, e.Kind, e.Message)
}

// IsAlreadyApplied команда уже в терминальном состоянии, повторять ack не нужно
func IsAlreadyApplied(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kindInvalidState
}

// IsUnauthenticated сессия истекла или отозвана, нужен новый QR
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Config struct {
	BaseURL      string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
}

type Session struct {
	SessionID string    `json:"session_id"`
	Token     string    `json:"token"`
	ChildID   uint      `json:"child_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AckResult struct {
	Command        models.Command `json:"command"`
	SessionRevoked bool           `json:"session_revoked"`
}

type UsageResult struct {
	TotalToday  int    `json:"total_today"`
	WeeklyTotal int    `json:"weekly_total"`
	Blocked     bool   `json:"blocked"`
	Reason      string `json:"reason,omitempty"`
	Duplicate   bool   `json:"duplicate,omitempty"`
}

type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger

	mu    sync.RWMutex
	token string
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryWait == 0 {
		cfg.RetryWait = 500 * time.Millisecond
	}
	if cfg.RetryMaxWait == 0 {
		cfg.RetryMaxWait = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		// повторяем только сетевые ошибки и 5xx, 4xx окончательны
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{httpClient: client, logger: logger}
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.httpClient.R().SetContext(ctx).SetError(&APIError{})
	if token := c.Token(); token != "" {
		req.SetAuthToken(token)
	}
	return req
}

func (c *Client) check(resp *resty.Response, err error, op string) error {
	if err != nil {
		c.logger.Error("control plane call failed", zap.String("op", op), zap.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{Message: resp.Status()}
	}
	apiErr.Status = resp.StatusCode()
	c.logger.Warn("control plane returned error",
		zap.String("op", op),
		zap.Int("status_code", apiErr.Status),
		zap.String("kind", apiErr.Kind))
	return apiErr
}

// IssueSession обменивает QR токен на сессию и запоминает её токен
func (c *Client) IssueSession(ctx context.Context, qrToken, deviceName string) (Session, error) {
	var session Session
	resp, err := c.request(ctx).
		SetBody(map[string]string{"qr_token": qrToken, "device_name": deviceName}).
		SetResult(&session).
		Post("/device/session")
	if err := c.check(resp, err, "issue session"); err != nil {
		return Session{}, err
	}
	c.SetToken(session.Token)
	return session, nil
}

func (c *Client) PollCommands(ctx context.Context) ([]models.Command, error) {
	var result struct {
		Commands []models.Command `json:"commands"`
	}
	resp, err := c.request(ctx).
		SetResult(&result).
		Get("/device/commands")
	if err := c.check(resp, err, "poll commands"); err != nil {
		return nil, err
	}
	return result.Commands, nil
}

// Ack после подтверждения LOGOUT сервер отзывает сессию, токен сбрасывается
func (c *Client) Ack(ctx context.Context, commandID string, outcome models.CommandStatus, reason string) (AckResult, error) {
	var result AckResult
	resp, err := c.request(ctx).
		SetPathParam("command_id", commandID).
		SetBody(map[string]string{"outcome": string(outcome), "reason": reason}).
		SetResult(&result).
		Post("/device/commands/{command_id}/ack")
	if err := c.check(resp, err, "ack command"); err != nil {
		return AckResult{}, err
	}
	if result.SessionRevoked {
		c.SetToken("")
	}
	return result, nil
}

// ReportUsage sequence 0 отключает дедупликацию на сервере
func (c *Client) ReportUsage(ctx context.Context, minutes int, sequence int64) (UsageResult, error) {
	var result UsageResult
	resp, err := c.request(ctx).
		SetBody(map[string]interface{}{"minutes": minutes, "sequence": sequence}).
		SetResult(&result).
		Post("/device/usage")
	if err := c.check(resp, err, "report usage"); err != nil {
		return UsageResult{}, err
	}
	return result, nil
}
