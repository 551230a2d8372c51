package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/ratelimit"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// RateLimitMessage is the plain-text body of a 429 response.
const RateLimitMessage = "Too many requests from this IP, please try again after 15 minutes"

// RateLimitMiddleware caps requests per client IP within a fixed window.
type RateLimitMiddleware struct {
	server *server.Server
	store  middleware.RateLimiterStore
}

// NewRateLimitMiddleware picks the counter store from config.
//
// The in-memory store is per process; its expired windows are swept by a
// background task once per window. The redis store shares counters across
// instances and needs server.Redis.
func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	cfg := s.Config.RateLimit

	if cfg.Store == "redis" && s.Redis != nil {
		return &RateLimitMiddleware{
			server: s,
			store:  ratelimit.NewRedisStore(s.Redis, cfg.MaxRequests, cfg.Window),
		}
	}

	memory := ratelimit.NewFixedWindowStore(cfg.MaxRequests, cfg.Window)
	if s.Tasks != nil {
		s.Tasks.Every("rate-limit-sweep", cfg.Window, func(context.Context) {
			if removed := memory.Sweep(); removed > 0 {
				s.Logger.Debug().Int("removed", removed).Msg("swept expired rate limit windows")
			}
		})
	}

	return NewRateLimitMiddlewareWithStore(s, memory)
}

// NewRateLimitMiddlewareWithStore uses the given store, e.g. one with a fake clock.
func NewRateLimitMiddlewareWithStore(s *server.Server, store middleware.RateLimiterStore) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
		store:  store,
	}
}

// Limit enforces the cap. Over the limit the request gets a 429 with
// RateLimitMessage. A failing store is a server error, not a free pass.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: r.store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return errs.NewServerIOError("Rate limiter unavailable", err)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			if err != nil {
				return errs.NewServerIOError("Rate limiter unavailable", err)
			}

			r.RecordRateLimitHit(c, identifier)
			return c.String(http.StatusTooManyRequests, RateLimitMessage)
		},
	})
}

// RecordRateLimitHit logs the rejection and reports it to New Relic.
func (r *RateLimitMiddleware) RecordRateLimitHit(c echo.Context, identifier string) {
	GetLogger(c).Warn().
		Str("identifier", identifier).
		Str("endpoint", c.Request().URL.Path).
		Msg("rate limit exceeded")

	if app := r.server.LoggerService.GetApplication(); app != nil {
		app.RecordCustomEvent("RateLimitHit", map[string]interface{}{
			"endpoint":   c.Request().URL.Path,
			"identifier": identifier,
			"timestamp":  time.Now().Unix(),
		})
	}
}
