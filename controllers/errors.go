package controllers

import (
	"PinguinTube/apperrors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

func SetLogger(l *zap.Logger) {
	logger = l
}

var statusByKind = map[apperrors.Kind]int{
	apperrors.KindValidation:        http.StatusBadRequest,
	apperrors.KindUnauthenticated:   http.StatusUnauthorized,
	apperrors.KindExpiredCredential: http.StatusUnauthorized,
	apperrors.KindAuthorization:     http.StatusForbidden,
	apperrors.KindNotFound:          http.StatusNotFound,
	apperrors.KindInvalidState:      http.StatusConflict,
}

// StatusFor HTTP статус для ошибки сервиса
func StatusFor(err error) int {
	if status, ok := statusByKind[apperrors.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// respondError отдаёт {"error": ..., "kind": ...}. Внутренние ошибки логируются и не раскрываются.
func respondError(c *gin.Context, err error) {
	status := StatusFor(err)
	kind := apperrors.KindOf(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		kind = apperrors.KindInternal
		message = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind})
}

func respondValidation(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message, "kind": apperrors.KindValidation})
}

func childIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("child_id"), 10, 64)
	if err != nil || id == 0 {
		respondValidation(c, "invalid child_id")
		return 0, false
	}
	return uint(id), true
}

// intQuery читает необязательный целочисленный query параметр
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		respondValidation(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
