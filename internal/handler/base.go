package handler

import (
	"time"

	"github.com/deppfellow/storefront/internal/middleware"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/validation"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"
)

// Handler is the base handler type that holds shared application dependencies.
//
// Concrete handlers embed it so they can reach config, logger and the
// New Relic application through *server.Server.
type Handler struct {
	server *server.Server
}

// NewHandler constructs a base Handler.
func NewHandler(s *server.Server) Handler {
	return Handler{server: s}
}

// Payload is the constraint for request types: PReq must be a pointer to
// Req, so a fresh Req can be allocated and bound for every request.
type Payload[Req any] interface {
	*Req
	validation.Validatable
}

// responder writes a successful handler result.
type responder interface {
	respond(c echo.Context, result any) error
	operation() string
}

type jsonResponder struct {
	status int
}

func (r jsonResponder) respond(c echo.Context, result any) error {
	return c.JSON(r.status, result)
}

func (r jsonResponder) operation() string {
	return "handler"
}

type noContentResponder struct {
	status int
}

func (r noContentResponder) respond(c echo.Context, _ any) error {
	return c.NoContent(r.status)
}

func (r noContentResponder) operation() string {
	return "handler_no_content"
}

// handleRequest is the shared pipeline of every typed endpoint: bind,
// sanitize and validate the payload, run the handler, then write the
// result. Each phase is timed, logged and reported to New Relic.
// Errors are returned untouched for the global error handler.
func handleRequest[PReq validation.Validatable](
	c echo.Context,
	req PReq,
	handler func(c echo.Context, req PReq) (any, error),
	out responder,
) error {
	start := time.Now()
	route := c.Path()

	txn := newrelic.FromContext(c.Request().Context())
	if txn != nil {
		txn.AddAttribute("handler.name", route)
	}

	logger := middleware.GetLogger(c).With().
		Str("operation", out.operation()).
		Str("route", route).
		Logger()

	logger.Debug().Msg("handling request")

	validationStart := time.Now()
	if err := validation.BindAndValidate(c, req); err != nil {
		validationDuration := time.Since(validationStart)

		logger.Warn().
			Err(err).
			Dur("validation_duration", validationDuration).
			Msg("request validation failed")

		if txn != nil {
			txn.AddAttribute("validation.status", "failed")
			txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
		}
		return err
	}
	validationDuration := time.Since(validationStart)

	if txn != nil {
		txn.AddAttribute("validation.status", "success")
		txn.AddAttribute("validation.duration_ms", validationDuration.Milliseconds())
	}

	handlerStart := time.Now()
	result, err := handler(c, req)
	handlerDuration := time.Since(handlerStart)

	if err != nil {
		reportFailure(&logger, txn, err, handlerDuration, time.Since(start))
		return err
	}

	if txn != nil {
		txn.AddAttribute("handler.status", "success")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", time.Since(start).Milliseconds())
	}

	logger.Debug().
		Dur("handler_duration", handlerDuration).
		Dur("validation_duration", validationDuration).
		Dur("total_duration", time.Since(start)).
		Msg("request completed successfully")

	return out.respond(c, result)
}

func reportFailure(logger *zerolog.Logger, txn *newrelic.Transaction, err error, handlerDuration, total time.Duration) {
	logger.Error().
		Err(err).
		Dur("handler_duration", handlerDuration).
		Dur("total_duration", total).
		Msg("handler execution failed")

	if txn != nil {
		txn.AddAttribute("handler.status", "error")
		txn.AddAttribute("handler.duration_ms", handlerDuration.Milliseconds())
		txn.AddAttribute("total.duration_ms", total.Milliseconds())
	}
}

// Handle wraps a typed endpoint, which receives a bound, sanitized and
// validated request, into an echo.HandlerFunc answering with
// status and the JSON-encoded result.
//
// A new request value is allocated per call, so concurrent requests never
// share a payload:
//
//	e.POST("/api/example", handler.Handle(h.Handler, h.Validate, http.StatusOK))
func Handle[Req any, PReq Payload[Req], Res any](
	h Handler,
	handler func(c echo.Context, req PReq) (Res, error),
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, PReq(new(Req)), func(c echo.Context, req PReq) (any, error) {
			return handler(c, req)
		}, jsonResponder{status: status})
	}
}

// HandleNoContent is Handle for endpoints that answer without a body,
// e.g. a 204 after a delete.
func HandleNoContent[Req any, PReq Payload[Req]](
	h Handler,
	handler func(c echo.Context, req PReq) error,
	status int,
) echo.HandlerFunc {
	return func(c echo.Context) error {
		return handleRequest(c, PReq(new(Req)), func(c echo.Context, req PReq) (any, error) {
			return nil, handler(c, req)
		}, noContentResponder{status: status})
	}
}
