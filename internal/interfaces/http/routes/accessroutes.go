package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/secforge/billing/internal/interfaces/http/handlers"
	"github.com/secforge/billing/internal/interfaces/http/middleware"
)

// AccessRouteConfig holds dependencies for access decision and read routes.
type AccessRouteConfig struct {
	AccessHandler  *handlers.AccessHandler
	AuthMiddleware *middleware.AuthMiddleware
}

// SetupAccessRoutes configures access routes. Decisions and catalog reads
// accept anonymous callers; the per-user reads do not.
func SetupAccessRoutes(engine *gin.Engine, cfg *AccessRouteConfig) {
	accessGroup := engine.Group("/access")
	accessGroup.Use(cfg.AuthMiddleware.OptionalAuth())
	{
		accessGroup.GET("/:content_type/:content_id", cfg.AccessHandler.Decide)
		accessGroup.GET("/:content_type/:content_id/reconstruct", cfg.AccessHandler.Reconstruct)
	}

	engine.GET("/catalog/:content_type/:content_id", cfg.AccessHandler.GetRule)

	me := engine.Group("/me")
	me.Use(cfg.AuthMiddleware.RequireAuth())
	{
		me.GET("/plan", cfg.AccessHandler.GetPlan)
		me.GET("/grants/:content_type/:content_id", cfg.AccessHandler.GetGrants)
	}
}
