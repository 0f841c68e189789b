// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stocktrail/internal/domain/bulk"
	"stocktrail/internal/domain/kanban"
	"stocktrail/internal/domain/location"
	"stocktrail/internal/domain/movement"
	"stocktrail/internal/infrastructure/http/v1/handlers"
	"stocktrail/internal/infrastructure/http/v1/middleware"
	"stocktrail/internal/infrastructure/storage/postgres"
	"stocktrail/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool         *postgres.Pool
	Logger       *logger.Logger
	JWTValidator middleware.JWTValidator

	Movements *movement.Service
	Bulks     *bulk.Service
	Kanbans   *kanban.Service
	Locations location.Repository
	Resolver  *location.Resolver
}

// NewRouter creates and configures the gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Order matters: recovery outermost, errors rendered last.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	base := handlers.NewBaseHandler()

	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Token-gated endpoints: the token itself is the credential.
	publicHandler := handlers.NewPublicHandler(base, cfg.Movements, cfg.Bulks)
	public := router.Group("/public")
	{
		public.GET("/movements/:token", publicHandler.GetMovement)
		public.POST("/movements/:token/confirm", publicHandler.ConfirmMovement)
		public.GET("/bulk-movements/:token", publicHandler.GetBulk)
		public.POST("/bulk-movements/:token/confirm", publicHandler.ConfirmBulk)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))
	{
		movementHandler := handlers.NewMovementHandler(base, cfg.Movements)
		v1.POST("/movements", movementHandler.Create)
		v1.GET("/movements", movementHandler.List)
		v1.GET("/movements/:id", movementHandler.Get)
		v1.POST("/movements/:id/cancel", movementHandler.Cancel)

		bulkHandler := handlers.NewBulkHandler(base, cfg.Bulks)
		v1.POST("/bulk-movements", bulkHandler.Create)
		v1.GET("/bulk-movements", bulkHandler.List)
		v1.GET("/bulk-movements/:id", bulkHandler.Get)
		v1.PUT("/bulk-movements/:id", bulkHandler.Update)
		v1.POST("/bulk-movements/:id/cancel", bulkHandler.Cancel)

		// Static segments cannot share a position with :id params, so the
		// on-demand sweeps live under their own prefix.
		v1.POST("/maintenance/expire-movements", movementHandler.ExpireStale)
		v1.POST("/maintenance/expire-bulk-movements", bulkHandler.ExpireStale)

		locationHandler := handlers.NewLocationHandler(base, cfg.Locations, cfg.Resolver)
		v1.GET("/locations", locationHandler.List)
		v1.GET("/locations/:id", locationHandler.Get)
		v1.POST("/locations/resolve-area", locationHandler.ResolveArea)

		kanbanHandler := handlers.NewKanbanHandler(base, cfg.Kanbans)
		v1.POST("/products/:id/status", kanbanHandler.ChangeStatus)
		v1.POST("/products/:id/validate", kanbanHandler.Validate)
		v1.GET("/products/:id/transfers", kanbanHandler.TransferHistory)
	}

	return router
}
