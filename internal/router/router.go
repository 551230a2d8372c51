// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"github.com/deppfellow/storefront/internal/handler"
	"github.com/deppfellow/storefront/internal/middleware"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/labstack/echo/v4"
)

// Stage is one named step of the request pipeline.
type Stage struct {
	Name       string
	Middleware echo.MiddlewareFunc
}

// Pipeline returns the global middleware in the order requests pass
// through it.
//
// The first stages set up request ids, tracing, logging and panic
// recovery so everything after them is observable. Then come the
// policy stages: CORS, security headers, rate limiting and the body
// limit, in that order. JSON bodies are decoded by the handlers' Bind
// after routing. The error handler is not a stage: NewRouter installs it
// last, after every route.
func Pipeline(mw *middleware.Middlewares) []Stage {
	return []Stage{
		{Name: "request_id", Middleware: middleware.RequestID()},
		{Name: "tracing", Middleware: mw.Tracing.NewRelicMiddleware()},
		{Name: "trace_attributes", Middleware: mw.Tracing.EnhanceTracing()},
		{Name: "context_logger", Middleware: mw.ContextEnhancer.EnhanceContext()},
		{Name: "request_logger", Middleware: mw.Global.RequestLogger()},
		{Name: "recover", Middleware: mw.Global.Recover()},
		{Name: "cors", Middleware: mw.Global.CORS()},
		{Name: "security_headers", Middleware: mw.Global.Secure()},
		{Name: "rate_limit", Middleware: mw.RateLimit.Limit()},
		{Name: "body_limit", Middleware: mw.Global.BodyLimit()},
	}
}

// NewRouter builds the echo instance serving the whole API.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	return newRouter(s, h, middleware.NewMiddlewares(s))
}

func newRouter(s *server.Server, h *handler.Handlers, mw *middleware.Middlewares) *echo.Echo {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true

	// RealIP feeds the rate limiter and logs. Forwarded headers are only
	// believed behind a trusted proxy.
	if s.Config.Server.TrustProxy {
		router.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		router.IPExtractor = echo.ExtractIPDirect()
	}

	for _, stage := range Pipeline(mw) {
		router.Use(stage.Middleware)
	}

	registerSystemRoutes(router, h)
	registerAPIRoutes(router, h)
	registerStaticRoutes(router, s)

	// Terminal: every error returned by any route or middleware above is
	// formatted here.
	router.HTTPErrorHandler = mw.Global.GlobalErrorHandler

	return router
}
