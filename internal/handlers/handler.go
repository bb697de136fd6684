package handlers

import (
	"sync"

	"matrix_orchestrator/internal/logger"
	"matrix_orchestrator/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger

	closing   chan struct{} // closed by Close; ends every status stream
	closeOnce sync.Once
}

func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, log: log, closing: make(chan struct{})}
}

// Close ends open status streams with a going-away frame. http.Server.Shutdown
// does not wait for hijacked websocket connections, so call it first.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.closing) })
}

// InitRoutes builds the router. Every route is read-only: the orchestrator
// loop is the only thing that starts or stops programs.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	auth := router.Group("/auth")
	{
		auth.POST("/sign-in", h.signIn)
	}

	api := router.Group("/api/v1", h.operatorMiddleware)
	{
		api.GET("/status", h.getStatus)
		api.GET("/schedule", h.getSchedule)
		api.GET("/logs", h.getLogs)
	}

	// browsers cannot set headers on a websocket upgrade, so the token may come as ?access_token=
	router.GET("/ws", h.operatorMiddleware, h.wsConnect)

	return router
}
