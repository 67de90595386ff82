package controllers

import (
	"PinguinTube/middlewares"
	"PinguinTube/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetLimits заменяет конфигурацию лимитов ребёнка целиком
func SetLimits(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	var input struct {
		DailyLimit  *int  `json:"daily_limit"`
		WeeklyLimit *int  `json:"weekly_limit"`
		Enabled     *bool `json:"enabled" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondValidation(c, err.Error())
		return
	}

	limits, err := screenTimeService.SetLimits(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID, models.LimitConfiguration{
		DailyLimit:  input.DailyLimit,
		WeeklyLimit: input.WeeklyLimit,
		Enabled:     *input.Enabled,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Limits updated successfully", "data": limits})
}

// RotateQRToken выдаёт новый QR токен. Открытый текст показывается только здесь.
func RotateQRToken(c *gin.Context) {
	childID, ok := childIDParam(c)
	if !ok {
		return
	}
	token, expiresAt, err := deviceAuthService.RotateQRToken(c.Request.Context(), c.GetString(middlewares.FirebaseUIDKey), childID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"qr_token": token, "expires_at": expiresAt})
}
