package api

import (
	"errors"
	"log/slog"

	"github.com/Dominicksam/SmartLiving/internal/db"
	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/web/middleware"
	webmodels "github.com/Dominicksam/SmartLiving/internal/web/models"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
)

func RegisterCommandRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, dbConn *db.DB, dispatcher *dispatch.Dispatcher) {
	authed := r.Group("/")
	authed.Use(mw.RequireAuth())
	{
		// User-initiated commands share the same lifecycle as commands
		// fired by automation rules.
		authed.POST("/devices/:id/commands", func(c *gin.Context) {
			userID := c.GetString("user_id")
			var req webmodels.CommandRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}
			cmd, err := dispatcher.Dispatch(c, dispatch.Request{
				DeviceID:    c.Param("id"),
				IssuedBy:    userID,
				CommandType: req.Command,
				Payload:     req.Parameters,
			})
			if err != nil && cmd == nil {
				c.JSON(500, gin.H{"error": "Failed to create command"})
				return
			}
			if err != nil {
				// The record exists; its status carries the outcome.
				slog.Warn("command dispatch degraded", "command_id", cmd.ID, "error", err)
			}
			c.JSON(202, cmd)
		})

		authed.GET("/commands/:id", func(c *gin.Context) {
			cmd, err := dbConn.GetCommandByID(c, c.Param("id"))
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					c.JSON(404, gin.H{"error": "Command not found"})
					return
				}
				c.JSON(500, gin.H{"error": "Failed to fetch command"})
				return
			}
			c.JSON(200, cmd)
		})
	}
}
