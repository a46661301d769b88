package web

import (
	"plantcare/auth"
	"plantcare/internal/commandqueue"
	"plantcare/internal/db"
	"plantcare/internal/notify"
	"plantcare/internal/telemetry"
	"plantcare/internal/web/api"
	"plantcare/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

type WebServer struct {
	router *gin.Engine
}

func NewWebServer(dbConn *db.DB, authModule *auth.AuthModule, validator *telemetry.Validator, queue *commandqueue.Queue, notifier *notify.Notifier) *WebServer {
	router := gin.Default()

	middlewareManager := middleware.NewMiddlewareManager(authModule)

	api.RegisterAuthRoutes(router, authModule)
	api.RegisterDeviceGatewayRoutes(router, middlewareManager, authModule, validator, queue)
	api.RegisterDeviceRoutes(router, middlewareManager, dbConn, queue)
	api.RegisterAlertRoutes(router, middlewareManager, dbConn, notifier)
	api.RegisterStatsRoutes(router, middlewareManager)

	return &WebServer{router: router}
}

func (ws *WebServer) Start(addr string) {
	ws.router.Run(addr)
}
