package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/deppfellow/storefront/internal/dberr"
	"github.com/deppfellow/storefront/internal/errs"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// GlobalMiddlewares groups the middleware applied to every request and
// the global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

var (
	apiMethods    = []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
	staticMethods = []string{http.MethodGet}
)

// CORS enforces the origin allow-list.
//
// A request without Origin passes. A request whose Origin is not listed
// fails with a 403 CORS rejection that goes through the error handler.
// Allowed responses always carry the Allow-Methods, Allow-Headers and
// Allow-Credentials headers. Static upload paths only allow GET.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	cfg := global.server.Config
	allowed := make(map[string]struct{}, len(cfg.Server.CORSAllowedOrigins))
	for _, origin := range cfg.Server.CORSAllowedOrigins {
		allowed[strings.TrimRight(origin, "/")] = struct{}{}
	}

	allowOrigin := func(origin string) (bool, error) {
		if _, ok := allowed[origin]; ok {
			return true, nil
		}
		return false, errs.NewCORSRejection(origin)
	}

	policy := func(methods []string) echo.MiddlewareFunc {
		cors := middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOriginFunc:  allowOrigin,
			AllowMethods:     methods,
			AllowHeaders:     cfg.Server.CORSAllowedHeaders,
			AllowCredentials: true,
			ExposeHeaders:    []string{RequestIDHeader},
			MaxAge:           cfg.Server.CORSMaxAge,
		})
		standard := corsStandardHeaders(methods, cfg.Server.CORSAllowedHeaders)
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return cors(standard(next))
		}
	}

	api := policy(apiMethods)
	static := policy(staticMethods)
	staticPrefix := cfg.Upload.PublicPath + "/"

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		apiNext := api(next)
		staticNext := static(next)
		return func(c echo.Context) error {
			if strings.HasPrefix(c.Request().URL.Path, staticPrefix) {
				return staticNext(c)
			}
			return apiNext(c)
		}
	}
}

// corsStandardHeaders fills in the headers echo only sends on preflight.
// It runs for requests echo's CORS let through: allowed origins and
// requests without Origin.
func corsStandardHeaders(methods, headers []string) echo.MiddlewareFunc {
	allowMethods := strings.Join(methods, ",")
	allowHeaders := strings.Join(headers, ",")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			h.Set(echo.HeaderAccessControlAllowCredentials, "true")
			return next(c)
		}
	}
}

const (
	productionCSP = "default-src 'self'; base-uri 'self'; font-src 'self' https: data:; " +
		"form-action 'self'; frame-ancestors 'self'; img-src 'self' data:; object-src 'none'; " +
		"script-src 'self'; style-src 'self' https: 'unsafe-inline'; upgrade-insecure-requests"
	developmentCSP = "default-src 'self'; img-src * data: blob:; media-src *; font-src * data:; " +
		"style-src 'self' 'unsafe-inline'; script-src 'self'; object-src 'none'"

	hstsMaxAge = 180 * 24 * 60 * 60
)

// Secure sets the security headers. Production gets a strict policy;
// elsewhere images and static assets may be embedded cross-origin.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	production := global.server.Config.Primary.IsProduction()

	cfg := middleware.SecureConfig{
		XSSProtection:      "0",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		HSTSMaxAge:         hstsMaxAge,
		ReferrerPolicy:     "no-referrer",
	}

	resourcePolicy := "cross-origin"
	if production {
		cfg.ContentSecurityPolicy = productionCSP
		resourcePolicy = "same-origin"
	} else {
		cfg.ContentSecurityPolicy = developmentCSP
	}

	secure := middleware.SecureWithConfig(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return secure(func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Cross-Origin-Resource-Policy", resourcePolicy)
			h.Set("Cross-Origin-Opener-Policy", "same-origin")
			h.Set("Origin-Agent-Cluster", "?1")
			return next(c)
		})
	}
}

// BodyLimit caps request bodies at the configured size (e.g. "50M").
func (global *GlobalMiddlewares) BodyLimit() echo.MiddlewareFunc {
	return middleware.BodyLimit(global.server.Config.Server.BodyLimit)
}

// RequestLogger writes one "API" line per request, at a level matching the status.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// A returned error has not been written yet: the global error
			// handler runs after this, so derive the status it will send.
			// Reference: https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			if v.Error != nil {
				statusCode = errs.ResolveStatus(toHTTPError(v.Error).Status)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			slow := global.server.Config.Observability.Logging.SlowRequestThreshold
			if slow > 0 && v.Latency >= slow {
				e = e.Bool("slow", true)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// Recover turns panics into errors handled by the global error handler.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			GetLogger(c).Error().
				Err(err).
				Str("panic_stack", string(stack)).
				Msg("recovered from panic")
			return errors.WithStack(err)
		},
	})
}

// toHTTPError classifies any error the handlers or middleware return.
func toHTTPError(err error) *errs.HTTPError {
	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return fromEchoError(echoErr)
	}

	return errs.From(dberr.HandleError(err))
}

func fromEchoError(echoErr *echo.HTTPError) *errs.HTTPError {
	switch echoErr.Code {
	case http.StatusNotFound:
		return errs.NewNotFoundError("Route not found", nil)
	case http.StatusMethodNotAllowed:
		code := "METHOD_NOT_ALLOWED"
		e := errs.NewBadRequestError("Method not allowed", &code, nil)
		e.Status = http.StatusMethodNotAllowed
		return e
	}

	message := http.StatusText(echoErr.Code)
	if msg, ok := echoErr.Message.(string); ok && msg != "" {
		message = msg
	}

	var e *errs.HTTPError
	if echoErr.Code >= http.StatusInternalServerError {
		e = errs.NewInternalServerError(echoErr)
	} else {
		// Echo raises 4xx for oversized bodies, unsupported media types and
		// bad bind input; they are client input problems.
		code := errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code))
		e = errs.NewBadRequestError(message, &code, nil)
	}
	e.Status = echoErr.Code
	return e
}

// GlobalErrorHandler is the final error funnel for the entire HTTP server.
//
// Every error returned by a handler or middleware ends here. It is logged
// with its stack through the request logger, then written as the JSON
// envelope unless a response was already sent.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	if err == nil {
		return
	}

	httpErr := toHTTPError(err)
	res := errs.Format(httpErr, global.server.Config.Primary.IsProduction())

	GetLogger(c).Error().Stack().
		Err(err).
		Str("kind", string(httpErr.Kind)).
		Int("status", res.Status).
		Str("error_code", res.Code).
		Msg(res.Message)

	if c.Response().Committed {
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(res.Status)
		return
	}

	c.Response().Header().Set("X-Error-Code", res.Code)
	c.Response().Header().Set("X-Error-Status", strconv.Itoa(res.Status))
	_ = c.JSON(res.Status, res)
}
