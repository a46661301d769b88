package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantcare/internal/metrics"
	"plantcare/internal/web/middleware"
)

func RegisterStatsRoutes(r *gin.Engine, mw *middleware.MiddlewareManager) {
	r.GET("/stats", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.Default.Snapshot())
	})
}
