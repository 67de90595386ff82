package routes

import (
	"PinguinTube/controllers"
	"PinguinTube/middlewares"
	"PinguinTube/store"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret        string
	SessionValidator middlewares.SessionValidator
	KV               store.KVStore
	DeviceRateLimit  int
	Logger           *zap.Logger
}

func RegisterRoutes(r *gin.Engine, opts Options) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Публичный обмен QR токена на сессию
	r.POST("/device/session", controllers.IssueDeviceSession)

	// Маршруты устройства ребёнка
	device := r.Group("/device")
	device.Use(
		middlewares.DeviceSessionMiddleware(opts.SessionValidator),
		middlewares.DeviceRateLimit(opts.KV, opts.DeviceRateLimit, time.Minute, opts.Logger),
	)
	{
		device.GET("/commands", controllers.PollCommands)
		device.POST("/commands/:command_id/ack", controllers.AckCommand)
		device.POST("/usage", controllers.ReportUsage)
	}

	// Protected routes
	parents := r.Group("/parents")
	parents.Use(middlewares.AuthMiddleware(opts.JWTSecret), middlewares.ParentOnly())
	{
		parents.POST("/commands/:command_id/cancel", controllers.CancelCommand)

		children := parents.Group("/children/:child_id")
		{
			children.POST("/commands", controllers.EnqueueCommand)
			children.GET("/commands", controllers.ListCommands)
			children.POST("/commands/reconcile", controllers.ReconcileCommands)

			children.POST("/screen-time/reset", controllers.ResetScreenTime)
			children.GET("/screen-time/summary", controllers.GetScreenTimeSummary)
			children.GET("/screen-time/export", controllers.ExportScreenTime)

			children.PUT("/limits", controllers.SetLimits)
			children.POST("/qr-token", controllers.RotateQRToken)
		}
	}
}
