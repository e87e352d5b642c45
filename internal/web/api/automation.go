package api

import (
	"github.com/Dominicksam/SmartLiving/internal/db"
	"github.com/Dominicksam/SmartLiving/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterAutomationRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, dbConn *db.DB) {
	automations := r.Group("/automations")
	automations.Use(mw.RequireAuth())
	{
		automations.GET("/rules", func(c *gin.Context) {
			userID := c.GetString("user_id")
			rules, err := dbConn.GetRulesByOwner(c, userID)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to fetch rules"})
				return
			}
			c.JSON(200, rules)
		})
	}
}
