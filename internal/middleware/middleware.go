// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns
// such as CORS, security headers, rate limiting, request logging,
// tracing and panic recovery, and hold the global error handler
package middleware
