package models

import "time"

// CommandKind тип удалённой команды для устройства ребёнка
type CommandKind string

const (
	CommandPause            CommandKind = "PAUSE"
	CommandResume           CommandKind = "RESUME"
	CommandLockDevice       CommandKind = "LOCK_DEVICE"
	CommandUnlockDevice     CommandKind = "UNLOCK_DEVICE"
	CommandLogout           CommandKind = "LOGOUT"
	CommandEmergencyMessage CommandKind = "EMERGENCY_MESSAGE"
)

var commandKinds = map[CommandKind]bool{
	CommandPause:            true,
	CommandResume:           true,
	CommandLockDevice:       true,
	CommandUnlockDevice:     true,
	CommandLogout:           true,
	CommandEmergencyMessage: true,
}

func (k CommandKind) Valid() bool {
	return commandKinds[k]
}

// CommandStatus статус команды. Переходы только PENDING -> EXECUTED | FAILED | CANCELLED.
type CommandStatus string

const (
	CommandPending   CommandStatus = "PENDING"
	CommandExecuted  CommandStatus = "EXECUTED"
	CommandFailed    CommandStatus = "FAILED"
	CommandCancelled CommandStatus = "CANCELLED"
)

func (s CommandStatus) IsTerminal() bool {
	return s == CommandExecuted || s == CommandFailed || s == CommandCancelled
}

// CommandTTL окно доставки команды. Истёкшая команда остаётся PENDING в базе,
// её просто не отдают при опросе.
const CommandTTL = 5 * time.Minute

// MaxEmergencyMessageLength ограничение на текст экстренного сообщения (в символах)
const MaxEmergencyMessageLength = 500

// CommandPayload полезная нагрузка команды. Сейчас только текст для EMERGENCY_MESSAGE,
// для остальных видов пустая.
type CommandPayload struct {
	Message string `json:"message,omitempty" gorm:"column:payload_message;type:text"`
}

func (p CommandPayload) IsEmpty() bool {
	return p.Message == ""
}

type Command struct {
	ID            string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ChildID       uint           `json:"child_id" gorm:"not null;index:idx_commands_child_status,priority:1"`
	Kind          CommandKind    `json:"kind" gorm:"type:varchar(32);not null"`
	Payload       CommandPayload `json:"payload" gorm:"embedded"`
	Status        CommandStatus  `json:"status" gorm:"type:varchar(16);not null;index:idx_commands_child_status,priority:2"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at" gorm:"index"`
	ExecutedAt    *time.Time     `json:"executed_at"`
	UpdatedAt     time.Time      `json:"-"`
}

// IsExpired true, если команда всё ещё PENDING, но вышла за CommandTTL.
// Статус при этом не меняется.
func (c *Command) IsExpired(now time.Time) bool {
	return c.Status == CommandPending && now.Sub(c.CreatedAt) >= CommandTTL
}

// CanTransition проверяет однонаправленную машину состояний
func (c *Command) CanTransition(to CommandStatus) bool {
	return c.Status == CommandPending && to.IsTerminal()
}
