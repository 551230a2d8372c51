package handler

import (
	"context"
	"net/http"

	"github.com/deppfellow/storefront/internal/model"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/validation"
	"github.com/labstack/echo/v4"
)

// CartRequest identifies a cart. Cart ids are UUIDs generated by the client.
type CartRequest struct {
	CartID string `param:"cartId" json:"-" validate:"required,uuid"`
}

func (r *CartRequest) Validate() error {
	return validation.Struct(r)
}

type AddCartItemRequest struct {
	CartID    string `param:"cartId" json:"-" validate:"required,uuid"`
	ProductID string `json:"productId" mod:"trim" validate:"required,mongodb"`
	Quantity  int    `json:"quantity" validate:"required,min=1,max=99"`
}

func (r *AddCartItemRequest) Validate() error {
	return validation.Struct(r)
}

// UpdateCartItemRequest sets the quantity of a line; 0 removes it.
type UpdateCartItemRequest struct {
	CartID    string `param:"cartId" json:"-" validate:"required,uuid"`
	ProductID string `param:"productId" json:"-" validate:"required,mongodb"`
	Quantity  *int   `json:"quantity" validate:"required,min=0,max=99"`
}

func (r *UpdateCartItemRequest) Validate() error {
	return validation.Struct(r)
}

type CartItemRequest struct {
	CartID    string `param:"cartId" json:"-" validate:"required,uuid"`
	ProductID string `param:"productId" json:"-" validate:"required,mongodb"`
}

func (r *CartItemRequest) Validate() error {
	return validation.Struct(r)
}

// CartManager is what CartHandler needs from the service layer.
type CartManager interface {
	Get(ctx context.Context, cartID string) (model.CartView, error)
	AddItem(ctx context.Context, cartID, productHex string, quantity int) (model.CartView, error)
	UpdateItem(ctx context.Context, cartID, productHex string, quantity int) (model.CartView, error)
	RemoveItem(ctx context.Context, cartID, productHex string) (model.CartView, error)
	Clear(ctx context.Context, cartID string) error
}

type CartHandler struct {
	Handler
	carts CartManager
}

func NewCartHandler(s *server.Server, carts CartManager) *CartHandler {
	return &CartHandler{
		Handler: NewHandler(s),
		carts:   carts,
	}
}

func (h *CartHandler) Get(c echo.Context, req *CartRequest) (model.CartView, error) {
	return h.carts.Get(c.Request().Context(), req.CartID)
}

func (h *CartHandler) AddItem(c echo.Context, req *AddCartItemRequest) (model.CartView, error) {
	return h.carts.AddItem(c.Request().Context(), req.CartID, req.ProductID, req.Quantity)
}

func (h *CartHandler) UpdateItem(c echo.Context, req *UpdateCartItemRequest) (model.CartView, error) {
	return h.carts.UpdateItem(c.Request().Context(), req.CartID, req.ProductID, *req.Quantity)
}

func (h *CartHandler) RemoveItem(c echo.Context, req *CartItemRequest) (model.CartView, error) {
	return h.carts.RemoveItem(c.Request().Context(), req.CartID, req.ProductID)
}

func (h *CartHandler) Clear(c echo.Context, req *CartRequest) error {
	return h.carts.Clear(c.Request().Context(), req.CartID)
}

// Register mounts the cart routes on g (/api/cart).
func (h *CartHandler) Register(g *echo.Group) {
	g.GET("/:cartId", Handle(h.Handler, h.Get, http.StatusOK))
	g.POST("/:cartId/items", Handle(h.Handler, h.AddItem, http.StatusOK))
	g.PATCH("/:cartId/items/:productId", Handle(h.Handler, h.UpdateItem, http.StatusOK))
	g.DELETE("/:cartId/items/:productId", Handle(h.Handler, h.RemoveItem, http.StatusOK))
	g.DELETE("/:cartId", HandleNoContent(h.Handler, h.Clear, http.StatusNoContent))
}
