package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"plantcare/auth"
	"plantcare/internal/commandqueue"
	"plantcare/internal/models"
	"plantcare/internal/telemetry"
	"plantcare/internal/web/middleware"
)

// RegisterDeviceGatewayRoutes wires the device-facing boundary: credential
// exchange, telemetry ingestion and the command poll/ack loop.
func RegisterDeviceGatewayRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, authModule *auth.AuthModule, validator *telemetry.Validator, queue *commandqueue.Queue) {
	r.POST("/device/auth", func(c *gin.Context) {
		var req struct {
			DeviceID uuid.UUID `json:"device_id" binding:"required"`
			Secret   string    `json:"secret" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		token, err := authModule.AuthenticateDevice(c, req.DeviceID, req.Secret)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	})

	device := r.Group("/device")
	device.Use(mw.RequireDeviceAuth())
	{
		device.POST("/telemetry", func(c *gin.Context) {
			var req struct {
				Readings []struct {
					SensorID   uuid.UUID `json:"sensor_id" binding:"required"`
					Value      float64   `json:"value"`
					RecordedAt time.Time `json:"recorded_at"`
				} `json:"readings"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			items := make([]models.TelemetryItem, 0, len(req.Readings))
			for _, r := range req.Readings {
				items = append(items, models.TelemetryItem{SensorID: r.SensorID, Value: r.Value, RecordedAt: r.RecordedAt})
			}
			result, err := validator.Ingest(c, deviceID(c), items)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, result)
		})

		device.GET("/commands", func(c *gin.Context) {
			commands, err := queue.Poll(c, deviceID(c))
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"commands": commands})
		})

		device.POST("/commands/ack", func(c *gin.Context) {
			var req struct {
				CommandID uuid.UUID `json:"command_id" binding:"required"`
				Success   *bool     `json:"success" binding:"required"`
				Message   string    `json:"message"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			if err := queue.AcknowledgeFrom(c, deviceID(c), req.CommandID, *req.Success, req.Message); err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
}
