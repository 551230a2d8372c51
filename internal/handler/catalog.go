package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/service"
	"github.com/deppfellow/storefront/internal/validation"
	"github.com/labstack/echo/v4"
)

// ListRequest carries the paging query of a catalog listing.
// A zero limit means the default page size.
type ListRequest struct {
	Limit int64 `query:"limit" validate:"omitempty,min=1,max=100"`
	Skip  int64 `query:"skip" validate:"min=0"`
}

func (r *ListRequest) Validate() error {
	return validation.Struct(r)
}

// IDRequest carries the :id path parameter. Its format is checked by the
// service so the error names the entity.
type IDRequest struct {
	ID string `param:"id" validate:"required"`
}

func (r *IDRequest) Validate() error {
	return validation.Struct(r)
}

// CatalogService is what CatalogHandler needs from the service layer.
type CatalogService[T any] interface {
	List(ctx context.Context, limit, skip int64) (*service.Page[T], error)
	Get(ctx context.Context, hexID string) (*T, error)
	Create(ctx context.Context, doc *T) (*T, error)
	Update(ctx context.Context, hexID string, doc *T) (*T, error)
	Delete(ctx context.Context, hexID string) error
}

// CatalogHandler serves CRUD for one catalog collection. PT is the
// document pointer type, which binds and validates the request body.
type CatalogHandler[T any, PT interface {
	*T
	model.Document
}] struct {
	Handler
	service CatalogService[T]
}

func NewCatalogHandler[T any, PT interface {
	*T
	model.Document
}](s *server.Server, svc CatalogService[T]) *CatalogHandler[T, PT] {
	return &CatalogHandler[T, PT]{
		Handler: NewHandler(s),
		service: svc,
	}
}

func (h *CatalogHandler[T, PT]) List(c echo.Context, req *ListRequest) (*service.Page[T], error) {
	return h.service.List(c.Request().Context(), req.Limit, req.Skip)
}

func (h *CatalogHandler[T, PT]) Get(c echo.Context, req *IDRequest) (*T, error) {
	return h.service.Get(c.Request().Context(), req.ID)
}

func (h *CatalogHandler[T, PT]) Create(c echo.Context, doc PT) (*T, error) {
	return h.service.Create(c.Request().Context(), (*T)(doc))
}

// Update replaces the mutable fields of the document at :id.
func (h *CatalogHandler[T, PT]) Update(c echo.Context, doc PT) (*T, error) {
	return h.service.Update(c.Request().Context(), c.Param("id"), (*T)(doc))
}

func (h *CatalogHandler[T, PT]) Delete(c echo.Context, req *IDRequest) error {
	return h.service.Delete(c.Request().Context(), req.ID)
}

// Register mounts the five CRUD routes on g.
func (h *CatalogHandler[T, PT]) Register(g *echo.Group) {
	g.GET("", Handle(h.Handler, h.List, http.StatusOK))
	g.GET("/:id", Handle(h.Handler, h.Get, http.StatusOK))
	g.POST("", Handle[T, PT](h.Handler, h.Create, http.StatusCreated))
	g.PUT("/:id", Handle[T, PT](h.Handler, h.Update, http.StatusOK))
	g.DELETE("/:id", HandleNoContent(h.Handler, h.Delete, http.StatusNoContent))
}
