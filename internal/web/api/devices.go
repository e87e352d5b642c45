package api

import (
	"errors"
	"strconv"
	"time"

	"github.com/Dominicksam/SmartLiving/internal/db"
	"github.com/Dominicksam/SmartLiving/internal/ingest"
	"github.com/Dominicksam/SmartLiving/internal/registry"
	"github.com/Dominicksam/SmartLiving/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterDeviceRoutes(r *gin.Engine, mw *middleware.MiddlewareManager, dbConn *db.DB, reg *registry.Registry, cache *ingest.RedisReadingCache) {
	devices := r.Group("/devices")
	devices.Use(mw.RequireAuth())
	{
		devices.GET("/", func(c *gin.Context) {
			userID := c.GetString("user_id")
			list, err := dbConn.ListDevices(c, userID)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to fetch devices"})
				return
			}
			c.JSON(200, list)
		})

		devices.POST("/", func(c *gin.Context) {
			userID := c.GetString("user_id")
			var desc registry.Descriptor
			if err := c.ShouldBindJSON(&desc); err != nil {
				c.JSON(400, gin.H{"error": "Invalid request"})
				return
			}
			if desc.OwnerID == nil {
				desc.OwnerID = &userID
			}
			if err := reg.RegisterOrUpdate(c, desc); err != nil {
				c.JSON(500, gin.H{"error": "Failed to register device"})
				return
			}
			dev, err := reg.GetDevice(c, desc.ID)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to fetch device"})
				return
			}
			c.JSON(201, dev)
		})

		devices.GET("/:id", func(c *gin.Context) {
			dev, err := reg.GetDevice(c, c.Param("id"))
			if err != nil {
				if errors.Is(err, registry.ErrDeviceNotFound) {
					c.JSON(404, gin.H{"error": "Device not found"})
					return
				}
				c.JSON(500, gin.H{"error": "Failed to fetch device"})
				return
			}
			c.JSON(200, dev)
		})

		devices.GET("/:id/presence", func(c *gin.Context) {
			p, err := reg.Presence(c, c.Param("id"))
			if err != nil {
				if errors.Is(err, registry.ErrDeviceNotFound) {
					c.JSON(404, gin.H{"error": "Device not found"})
					return
				}
				c.JSON(500, gin.H{"error": "Failed to fetch presence"})
				return
			}
			c.JSON(200, p)
		})

		devices.GET("/:id/latest", func(c *gin.Context) {
			if cache == nil {
				c.JSON(404, gin.H{"error": "No cached reading"})
				return
			}
			ev, err := cache.GetLastReading(c, c.Param("id"))
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to read cache"})
				return
			}
			if ev == nil {
				c.JSON(404, gin.H{"error": "No cached reading"})
				return
			}
			c.JSON(200, ev)
		})

		devices.GET("/:id/telemetry", func(c *gin.Context) {
			var from, to time.Time
			if v := c.Query("from"); v != "" {
				t, err := time.Parse(time.RFC3339, v)
				if err != nil {
					c.JSON(400, gin.H{"error": "Invalid from timestamp"})
					return
				}
				from = t
			}
			if v := c.Query("to"); v != "" {
				t, err := time.Parse(time.RFC3339, v)
				if err != nil {
					c.JSON(400, gin.H{"error": "Invalid to timestamp"})
					return
				}
				to = t
			}
			limit := 100
			if v := c.Query("limit"); v != "" {
				n, err := strconv.Atoi(v)
				if err != nil || n <= 0 {
					c.JSON(400, gin.H{"error": "Invalid limit"})
					return
				}
				limit = n
			}
			events, err := dbConn.ListTelemetry(c, c.Param("id"), from, to, limit)
			if err != nil {
				c.JSON(500, gin.H{"error": "Failed to fetch telemetry"})
				return
			}
			c.JSON(200, events)
		})
	}
}
