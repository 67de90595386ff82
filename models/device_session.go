package models

import "time"

// DeviceSession привязка физического устройства к профилю ребёнка.
// Никогда не продлевается: после ExpiresAt нужен новый QR.
type DeviceSession struct {
	ID           string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ChildID      uint       `json:"child_id" gorm:"not null;index"`
	DeviceName   string     `json:"device_name"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	RevokedAt    *time.Time `json:"revoked_at,omitempty"`
	LastUsageSeq int64      `json:"-" gorm:"not null;default:0"`
}

// IsValid сессия действительна только в интервале [IssuedAt, ExpiresAt) и если не отозвана
func (s *DeviceSession) IsValid(now time.Time) bool {
	if s.RevokedAt != nil {
		return false
	}
	return !now.Before(s.IssuedAt) && now.Before(s.ExpiresAt)
}
