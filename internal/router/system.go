package router

import (
	"github.com/deppfellow/storefront/internal/handler"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/labstack/echo/v4"
)

// registerSystemRoutes registers endpoints that are not part of the
// store's business logic.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	// Health status endpoint (used by load balancers and monitors).
	r.GET("/status", h.Health.CheckHealth)
}

// registerStaticRoutes serves uploaded files and the public directory.
// Unknown paths fall through to a "Route not found" 404.
func registerStaticRoutes(r *echo.Echo, s *server.Server) {
	r.Static(s.Config.Upload.PublicPath, s.Config.Upload.Dir)
	r.Static("/", s.Config.Server.PublicDir)
}
