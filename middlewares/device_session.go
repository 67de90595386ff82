package middlewares

import (
	"PinguinTube/apperrors"
	"PinguinTube/models"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const DeviceSessionKey = "device_session"

type SessionValidator interface {
	Validate(ctx context.Context, token string) (models.DeviceSession, error)
}

// DeviceSessionMiddleware пропускает только запросы с действующей сессией устройства.
// Ребёнок берётся из сессии, а не из запроса.
func DeviceSessionMiddleware(validator SessionValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthenticated(c, "missing session token")
			return
		}

		session, err := validator.Validate(c.Request.Context(), token)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnauthenticated {
				abortUnauthenticated(c, err.Error())
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "kind": apperrors.KindInternal})
			return
		}

		c.Set(DeviceSessionKey, session)
		c.Next()
	}
}

func CurrentDeviceSession(c *gin.Context) (models.DeviceSession, bool) {
	v, ok := c.Get(DeviceSessionKey)
	if !ok {
		return models.DeviceSession{}, false
	}
	session, ok := v.(models.DeviceSession)
	return session, ok
}
