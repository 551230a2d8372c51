package middleware

import (
	"github.com/deppfellow/storefront/internal/server"
)

// Middlewares is a lightweight container that groups all middleware components
// used by the HTTP server, so router setup reads them from one place.
type Middlewares struct {
	// Global holds CORS, security headers, request logging, recovery,
	// body limit and the global error handler.
	Global *GlobalMiddlewares

	// ContextEnhancer enriches each request with a request-scoped logger.
	ContextEnhancer *ContextEnhancer

	// Tracing provides the New Relic middleware and transaction attributes.
	Tracing *TracingMiddleware

	// RateLimit enforces the per-IP request cap.
	RateLimit *RateLimitMiddleware
}

// NewMiddlewares constructs all middleware components using the application container.
//
// Without New Relic, GetApplication returns nil and tracing degrades into
// a pass-through.
func NewMiddlewares(s *server.Server) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
		Tracing:         NewTracingMiddleware(s, s.LoggerService.GetApplication()),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
