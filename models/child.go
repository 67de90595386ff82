package models

import "time"

type Child struct {
	ID               uint               `json:"id" gorm:"primary_key"`
	FamilyID         uint               `json:"family_id" gorm:"not null;index"`
	Name             string             `json:"name"`
	Lang             string             `json:"lang"`
	QRTokenHash      string             `json:"-"`
	QRTokenExpiresAt *time.Time         `json:"qr_token_expires_at"`
	Limits           LimitConfiguration `json:"limits" gorm:"embedded;embeddedPrefix:limit_"`
}

// IsQRTokenValid проверяет только срок действия QR токена, не его значение
func (c *Child) IsQRTokenValid(now time.Time) bool {
	return c.QRTokenHash != "" && c.QRTokenExpiresAt != nil && now.Before(*c.QRTokenExpiresAt)
}
