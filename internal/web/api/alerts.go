package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"plantcare/internal/apperr"
	"plantcare/internal/db"
	"plantcare/internal/notify"
	"plantcare/internal/web/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func RegisterAlertRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, dbConn *db.DB, notifier *notify.Notifier) {
	alerts := r.Group("/alerts")
	alerts.Use(mw.RequireAuth())
	{
		alerts.GET("", func(c *gin.Context) {
			unresolvedOnly := c.Query("unresolved") == "true"
			list, err := dbConn.GetAlertsByUser(c, userID(c), unresolvedOnly)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"alerts": list})
		})

		alerts.PATCH("/:id/resolve", func(c *gin.Context) {
			id, ok := pathUUID(c, "id")
			if !ok {
				return
			}

			owner, err := dbConn.GetAlertOwner(c, id)
			if err != nil {
				writeError(c, err)
				return
			}
			uid := userID(c)
			if owner == nil || *owner != uid {
				writeError(c, apperr.NotFoundf("alert %s", id))
				return
			}

			if err := dbConn.ResolveAlert(c, id, time.Now().UTC()); err != nil {
				writeError(c, err)
				return
			}
			alert, err := dbConn.GetAlertByID(c, id)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, alert)
		})

		// Live alert feed for dashboards. Only events for the caller's
		// devices are forwarded.
		alerts.GET("/stream", func(c *gin.Context) {
			uid := userID(c)
			owned, err := dbConn.GetDevicesByUser(c, uid)
			if err != nil {
				writeError(c, err)
				return
			}
			mine := make(map[string]bool, len(owned))
			for _, d := range owned {
				mine[d.ID.String()] = true
			}

			conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
			if err != nil {
				log.Printf("API: websocket upgrade failed: %v", err)
				return
			}
			defer conn.Close()

			events := notifier.Subscribe()
			defer notifier.Unsubscribe(events)

			// Reader goroutine notices the client going away
			done := make(chan struct{})
			go func() {
				defer close(done)
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						return
					}
				}
			}()

			for {
				select {
				case <-done:
					return
				case event, ok := <-events:
					if !ok {
						return
					}
					if !mine[event.DeviceID] {
						continue
					}
					if err := conn.WriteJSON(event); err != nil {
						return
					}
				}
			}
		})
	}
}
