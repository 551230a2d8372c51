// Package server defines the core Server struct that composes the app's main dependencies.
//
// It contains the initialization logic to spin up the HTTP server
// and handles graceful shutdowns
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - MongoDB client
//   - optional redis client (shared rate limit counters)
//   - background tasks
//   - http.Server
package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/deppfellow/storefront/internal/config"
	"github.com/deppfellow/storefront/internal/database"
	"github.com/deppfellow/storefront/internal/lib/bgtask"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/storefront/internal/logger"
)

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself, that one is kept private and driven
// through SetupHTTPServer, Start and Shutdown.
type Server struct {
	Config *config.Config
	Logger *zerolog.Logger

	// LoggerService holds the New Relic application, nil inside when disabled.
	LoggerService *loggerPkg.LoggerService

	DB *database.Database

	// Redis is nil unless an address is configured.
	Redis *redis.Client

	// Tasks runs background goroutines (e.g. the rate limit sweeper).
	Tasks *bgtask.BackgroundTask

	httpServer *http.Server
}

// New connects to the database (with retries) and to Redis when configured.
//
// The database is required: failing to reach it is returned as an error.
// Redis is optional for startup, but when it is configured as the rate limit
// store an unreachable Redis is also an error.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	db, err := database.New(ctx, cfg, logger, loggerService)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize database")
	}

	server := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		DB:            db,
		Tasks:         bgtask.New(logger),
	}

	if cfg.Redis.Enabled() {
		server.Redis = newRedisClient(ctx, cfg, logger, loggerService)
		if server.Redis == nil && cfg.RateLimit.Store == "redis" {
			_ = db.Close(context.Background())
			return nil, errors.New("redis is the rate limit store but is unreachable")
		}
	} else if cfg.RateLimit.Store == "redis" {
		_ = db.Close(context.Background())
		return nil, errors.New("rate limit store is redis but REDIS_ADDR is not set")
	}

	return server, nil
}

// newRedisClient returns a connected client, or nil if the ping fails.
func newRedisClient(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
	})

	// Hooks turn every command into a New Relic datastore segment.
	if loggerService.GetApplication() != nil {
		client.AddHook(nrredis.NewHook(client.Options()))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Error().Err(err).Str("address", cfg.Redis.Address).Msg("failed to connect to redis, continuing without redis")
		_ = client.Close()
		return nil
	}

	logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
	return client
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// Config stores seconds.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start binds the configured port and serves until Shutdown.
//
// It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.httpServer.Addr)
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server and its dependencies in reverse start order:
// HTTP (draining in-flight requests until ctx ends), background tasks,
// Redis, the database and finally New Relic.
//
// Every step runs even if an earlier one failed; the first error is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			keep(errors.Wrap(err, "failed to shutdown HTTP server"))
		}
	}

	if s.Tasks != nil {
		timeout := time.Duration(s.Config.Server.ShutdownTimeout) * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		keep(s.Tasks.Shutdown(timeout))
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			keep(errors.Wrap(err, "failed to close redis client"))
		}
	}

	if s.DB != nil {
		if err := s.DB.Close(ctx); err != nil {
			keep(errors.Wrap(err, "failed to close database connection"))
		}
	}

	s.LoggerService.Shutdown()

	return first
}
