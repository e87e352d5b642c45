package web

import (
	"github.com/Dominicksam/SmartLiving/internal/db"
	"github.com/Dominicksam/SmartLiving/internal/dispatch"
	"github.com/Dominicksam/SmartLiving/internal/fanout"
	"github.com/Dominicksam/SmartLiving/internal/ingest"
	"github.com/Dominicksam/SmartLiving/internal/registry"
	"github.com/Dominicksam/SmartLiving/internal/web/api"
	"github.com/Dominicksam/SmartLiving/internal/web/middleware"

	"github.com/gin-gonic/gin"
)

type WebServer struct {
	router *gin.Engine
}

func NewWebServer(dbConn *db.DB, reg *registry.Registry, dispatcher *dispatch.Dispatcher, hub *fanout.Hub, cache *ingest.RedisReadingCache, jwtSecret string) *WebServer {
	router := gin.Default()

	mw := middleware.NewMiddlewareManager(jwtSecret)

	api.RegisterDeviceRoutes(router, mw, dbConn, reg, cache)
	api.RegisterAutomationRoutes(router, mw, dbConn)
	api.RegisterCommandRoutes(router, mw, dbConn, dispatcher)
	api.RegisterWSRoutes(router, mw, hub)

	return &WebServer{router: router}
}

func (ws *WebServer) Start(addr string) error {
	return ws.router.Run(addr)
}
