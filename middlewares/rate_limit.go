package middlewares

import (
	"PinguinTube/store"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const rateLimitPrefix = "rate:device:"

// DeviceRateLimit фиксированное окно на сессию устройства. Должен стоять после DeviceSessionMiddleware.
// При недоступном KV запросы пропускаются.
func DeviceRateLimit(kv store.KVStore, limit int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if window < time.Second {
		window = time.Minute
	}
	return func(c *gin.Context) {
		session, ok := CurrentDeviceSession(c)
		if !ok || limit <= 0 {
			c.Next()
			return
		}

		bucket := time.Now().Unix() / int64(window.Seconds())
		key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, session.ID, bucket)
		count, err := kv.Incr(c.Request.Context(), key, window)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "kind": "rate_limited"})
			return
		}
		c.Next()
	}
}
