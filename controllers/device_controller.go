package controllers

import (
	"PinguinTube/apperrors"
	"PinguinTube/middlewares"
	"PinguinTube/models"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var deviceAuthService DeviceAuthServiceInterface

func SetDeviceAuthService(service DeviceAuthServiceInterface) {
	deviceAuthService = service
}

// IssueDeviceSession обменивает отсканированный QR токен на сессию устройства
func IssueDeviceSession(c *gin.Context) {
	var input struct {
		QRToken    string `json:"qr_token" binding:"required"`
		DeviceName string `json:"device_name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondValidation(c, err.Error())
		return
	}

	session, token, err := deviceAuthService.IssueFromQR(c.Request.Context(), input.QRToken, input.DeviceName)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"token":      token,
		"child_id":   session.ChildID,
		"expires_at": session.ExpiresAt,
	})
}

func deviceSession(c *gin.Context) (models.DeviceSession, bool) {
	session, ok := middlewares.CurrentDeviceSession(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing session", "kind": apperrors.KindUnauthenticated})
	}
	return session, ok
}

func PollCommands(c *gin.Context) {
	session, ok := deviceSession(c)
	if !ok {
		return
	}
	commands, err := commandService.PollPending(c.Request.Context(), session.ChildID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"commands": commands})
}

// AckCommand подтверждение от устройства. Выполненный LOGOUT отзывает текущую сессию.
func AckCommand(c *gin.Context) {
	session, ok := deviceSession(c)
	if !ok {
		return
	}
	var input struct {
		Outcome string `json:"outcome" binding:"required"`
		Reason  string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondValidation(c, err.Error())
		return
	}

	outcome := models.CommandStatus(strings.ToUpper(strings.TrimSpace(input.Outcome)))
	command, err := commandService.Acknowledge(c.Request.Context(), session.ChildID, c.Param("command_id"), outcome, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	revoked := false
	if command.Kind == models.CommandLogout && command.Status == models.CommandExecuted {
		if err := deviceAuthService.Revoke(c.Request.Context(), session.ID); err != nil {
			logger.Error("failed to revoke session after LOGOUT",
				zap.String("session_id", session.ID),
				zap.Error(err))
		} else {
			revoked = true
		}
	}

	c.JSON(http.StatusOK, gin.H{"command": command, "session_revoked": revoked})
}

func ReportUsage(c *gin.Context) {
	session, ok := deviceSession(c)
	if !ok {
		return
	}
	var input struct {
		Minutes  *int  `json:"minutes" binding:"required"`
		Sequence int64 `json:"sequence"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondValidation(c, err.Error())
		return
	}

	result, err := screenTimeService.ReportUsage(c.Request.Context(), session, *input.Minutes, input.Sequence)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
