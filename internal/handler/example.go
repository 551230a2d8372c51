package handler

import (
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/validation"
	"github.com/labstack/echo/v4"
)

// ExampleRequest is the body of POST /api/example.
//
// username is trimmed and HTML-escaped, email is trimmed and lowercased,
// both before the rules run.
type ExampleRequest struct {
	Username string `json:"username" mod:"trim,escape" validate:"required,min=3"`
	Email    string `json:"email" mod:"trim,lcase" validate:"required,email"`
}

func (r *ExampleRequest) Validate() error {
	return validation.Struct(r)
}

type ExampleResponse struct {
	Message string          `json:"message"`
	Data    *ExampleRequest `json:"data"`
}

// ExampleHandler demonstrates the validation layer.
type ExampleHandler struct {
	Handler
}

func NewExampleHandler(s *server.Server) *ExampleHandler {
	return &ExampleHandler{Handler: NewHandler(s)}
}

// Validate echoes the sanitized payload once it passed every rule.
func (h *ExampleHandler) Validate(c echo.Context, req *ExampleRequest) (*ExampleResponse, error) {
	return &ExampleResponse{
		Message: "Validation passed",
		Data:    req,
	}, nil
}
