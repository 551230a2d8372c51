package router

import (
	"net/http"

	"github.com/deppfellow/storefront/internal/handler"
	"github.com/labstack/echo/v4"
)

// registerAPIRoutes mounts everything under /api.
func registerAPIRoutes(r *echo.Echo, h *handler.Handlers) {
	api := r.Group("/api")

	api.POST("/upload", h.Upload.Upload)
	api.POST("/example", handler.Handle(h.Example.Handler, h.Example.Validate, http.StatusOK))

	h.Brands.Register(api.Group("/brands"))
	h.Illustrations.Register(api.Group("/illustrations"))
	h.Products.Register(api.Group("/products"))
	h.Typefaces.Register(api.Group("/typefaces"))

	h.Cart.Register(api.Group("/cart"))
}
