package interfaces

import (
	"context"
	"time"
)

// EventType тип одностороннего события для родителей
type EventType string

const (
	EventLimitExceeded EventType = "limit_exceeded"
	EventCommandFailed EventType = "command_failed"
)

// Event событие control plane. Ядро не ждёт доставки и не зависит от неё.
type Event struct {
	Type        EventType `json:"type"`
	FamilyID    uint      `json:"family_id"`
	ChildID     uint      `json:"child_id"`
	ChildName   string    `json:"child_name,omitempty"`
	CommandID   string    `json:"command_id,omitempty"`
	Kind        string    `json:"kind,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	TotalToday  int       `json:"total_today,omitempty"`
	WeeklyTotal int       `json:"weekly_total,omitempty"`
	Limit       int       `json:"limit,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier определяет интерфейс для сервиса уведомлений
type Notifier interface {
	Notify(ctx context.Context, event Event)
}
