// Package handler is the first layer. The first entry point
// for business logic after the router.
//
// It parses requests, sanitizes and validates input using the
// validation package, and calls the appropriate service layer.
// It acts as the interface between the HTTP request and the core
// business logic.
package handler

import (
	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/service"
)

// Handlers is a container that groups all HTTP handlers, so router setup
// receives one value instead of many.
type Handlers struct {
	Health        *HealthHandler
	Upload        *UploadHandler
	Example       *ExampleHandler
	Brands        *CatalogHandler[model.Brand, *model.Brand]
	Illustrations *CatalogHandler[model.Illustration, *model.Illustration]
	Products      *CatalogHandler[model.Product, *model.Product]
	Typefaces     *CatalogHandler[model.Typeface, *model.Typeface]
	Cart          *CartHandler
}

// NewHandlers constructs the handler container.
func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:        NewHealthHandler(s),
		Upload:        NewUploadHandler(s, services.Uploads),
		Example:       NewExampleHandler(s),
		Brands:        NewCatalogHandler[model.Brand, *model.Brand](s, services.Brands),
		Illustrations: NewCatalogHandler[model.Illustration, *model.Illustration](s, services.Illustrations),
		Products:      NewCatalogHandler[model.Product, *model.Product](s, services.Products),
		Typefaces:     NewCatalogHandler[model.Typeface, *model.Typeface](s, services.Typefaces),
		Cart:          NewCartHandler(s, services.Carts),
	}
}
