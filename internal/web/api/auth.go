package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"plantcare/auth"
)

func RegisterAuthRoutes(r *gin.Engine, authModule *auth.AuthModule) {
	group := r.Group("/auth")
	{
		group.POST("/register", func(c *gin.Context) {
			var req struct {
				Email    string `json:"email" binding:"required"`
				Password string `json:"password" binding:"required,min=8"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			user, token, err := authModule.RegisterUser(c, req.Email, req.Password)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "token": token})
		})

		group.POST("/login", func(c *gin.Context) {
			var req struct {
				Email    string `json:"email" binding:"required"`
				Password string `json:"password" binding:"required"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}

			token, err := authModule.LoginUser(c, req.Email, req.Password)
			if err != nil {
				writeError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"token": token})
		})
	}
}
