package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/deppfellow/storefront/internal/middleware"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// pingFunc checks one dependency.
type pingFunc func(ctx context.Context) error

// HealthHandler serves GET /status for load balancers and uptime monitors.
type HealthHandler struct {
	Handler
	checks map[string]pingFunc
}

// NewHealthHandler registers the dependency checks enabled in the
// observability config. The redis check only exists when Redis is configured.
func NewHealthHandler(s *server.Server) *HealthHandler {
	checks := make(map[string]pingFunc)

	for _, name := range s.Config.Observability.HealthChecks.Checks {
		switch name {
		case "database":
			if s.DB != nil {
				checks[name] = s.DB.Ping
			}
		case "redis":
			if s.Redis != nil {
				checks[name] = func(ctx context.Context) error {
					return s.Redis.Ping(ctx).Err()
				}
			}
		}
	}

	return newHealthHandler(s, checks)
}

func newHealthHandler(s *server.Server, checks map[string]pingFunc) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
		checks:  checks,
	}
}

type checkResult struct {
	Status       string `json:"status"`
	ResponseTime string `json:"response_time"`
	Error        string `json:"error,omitempty"`
}

type healthResponse struct {
	Status      string                 `json:"status"`
	Timestamp   time.Time              `json:"timestamp"`
	Environment string                 `json:"environment"`
	Checks      map[string]checkResult `json:"checks"`
}

// CheckHealth runs every dependency check.
//
// It returns:
//   - 200 OK with status "healthy" if all checks pass
//   - 503 Service Unavailable with status "unhealthy" if any check fails
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()
	cfg := h.server.Config.Observability.HealthChecks

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := healthResponse{
		Status:      "healthy",
		Timestamp:   time.Now().UTC(),
		Environment: h.server.Config.Primary.Env,
		Checks:      make(map[string]checkResult, len(h.checks)),
	}

	if cfg.Enabled {
		for name, ping := range h.checks {
			ctx, cancel := context.WithTimeout(c.Request().Context(), cfg.Timeout)
			checkStart := time.Now()
			err := ping(ctx)
			elapsed := time.Since(checkStart)
			cancel()

			if err != nil {
				response.Status = "unhealthy"
				response.Checks[name] = checkResult{
					Status:       "unhealthy",
					ResponseTime: elapsed.String(),
					Error:        err.Error(),
				}

				logger.Error().
					Err(err).
					Str("check", name).
					Dur("response_time", elapsed).
					Msg("health check failed")

				h.recordHealthCheckError(name, err, elapsed)
				continue
			}

			response.Checks[name] = checkResult{
				Status:       "healthy",
				ResponseTime: elapsed.String(),
			}
		}
	}

	if response.Status != "healthy" {
		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("service unhealthy")
		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		return errors.Wrap(err, "failed to write health response")
	}
	return nil
}

func (h *HealthHandler) recordHealthCheckError(check string, err error, elapsed time.Duration) {
	app := h.server.LoggerService.GetApplication()
	if app == nil {
		return
	}

	app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
		"check_type":       check,
		"operation":        "health_check",
		"error_type":       check + "_unhealthy",
		"response_time_ms": elapsed.Milliseconds(),
		"error_message":    err.Error(),
	})
}
