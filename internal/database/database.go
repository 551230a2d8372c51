// Package database contains the logic for establishing
// the connection to MongoDB.
//
// It handles:
//   - building client options from config (pool size, timeouts)
//   - connecting with a bounded exponential backoff
//   - wiring command monitoring (slow command logs + New Relic via nrmongo)
//   - collection access and index setup for the repositories
package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/deppfellow/storefront/internal/config"
	loggerConfig "github.com/deppfellow/storefront/internal/logger"
	"github.com/newrelic/go-agent/v3/integrations/nrmongo"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Database wraps the mongo client and the selected database.
// It is passed around the app instead of the raw client.
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
	log    *zerolog.Logger
}

// DatabasePingTimeout is how long a single ping attempt may take.
const DatabasePingTimeout = 5 * time.Second

// New connects to MongoDB, retrying with exponential backoff up to
// cfg.Database.ConnectRetries times before giving up.
//
// Command monitoring is always installed: commands slower than the
// configured threshold are logged, and when New Relic runs every command
// becomes a datastore segment.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, loggerService *loggerConfig.LoggerService) (*Database, error) {
	monitor := newCommandLogger(logger, cfg.Observability.Logging.SlowRequestThreshold)
	if loggerService.GetApplication() != nil {
		// nrmongo wraps our monitor so both run for every command.
		monitor = nrmongo.NewCommandMonitor(monitor)
	}

	opts := options.Client().
		ApplyURI(cfg.Database.URI).
		SetConnectTimeout(cfg.Database.ConnectTimeout).
		SetServerSelectionTimeout(cfg.Database.ConnectTimeout).
		SetMonitor(monitor)
	if cfg.Database.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.Database.MaxPoolSize)
	}

	var client *mongo.Client
	connect := func(ctx context.Context) error {
		if client == nil {
			c, err := mongo.Connect(ctx, opts)
			if err != nil {
				// A malformed URI will never succeed, stop retrying.
				return backoff.Permanent(err)
			}
			client = c
		}

		pingCtx, cancel := context.WithTimeout(ctx, DatabasePingTimeout)
		defer cancel()
		return client.Ping(pingCtx, readpref.Primary())
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), cfg.Database.ConnectRetries),
		ctx,
	)
	if err := connectWithRetry(ctx, policy, logger, connect); err != nil {
		if client != nil {
			_ = client.Disconnect(context.Background())
		}
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}

	logger.Info().Str("database", cfg.Database.Name).Msg("connected to the database")

	return &Database{
		Client: client,
		DB:     client.Database(cfg.Database.Name),
		log:    logger,
	}, nil
}

// connectWithRetry runs connect until it succeeds or policy gives up,
// logging every failed attempt.
func connectWithRetry(ctx context.Context, policy backoff.BackOff, logger *zerolog.Logger, connect func(context.Context) error) error {
	attempt := 0
	op := func() error {
		attempt++
		return connect(ctx)
	}

	notify := func(err error, next time.Duration) {
		logger.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", next).
			Msg("database connection failed, retrying")
	}

	return backoff.RetryNotify(op, policy, notify)
}

// Ping checks the primary is reachable. Used by the health check.
func (db *Database) Ping(ctx context.Context) error {
	return db.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client, waiting for in-use connections up to ctx.
func (db *Database) Close(ctx context.Context) error {
	db.log.Info().Msg("closing database connection")
	return db.Client.Disconnect(ctx)
}

// newCommandLogger logs failed commands and commands slower than threshold.
// A zero threshold disables the slow command log.
func newCommandLogger(logger *zerolog.Logger, threshold time.Duration) *event.CommandMonitor {
	return &event.CommandMonitor{
		Succeeded: func(_ context.Context, e *event.CommandSucceededEvent) {
			if threshold > 0 && e.Duration >= threshold {
				logger.Warn().
					Str("command", e.CommandName).
					Str("database", e.DatabaseName).
					Dur("duration", e.Duration).
					Msg("slow database command")
			}
		},
		Failed: func(_ context.Context, e *event.CommandFailedEvent) {
			logger.Error().
				Str("command", e.CommandName).
				Str("database", e.DatabaseName).
				Dur("duration", e.Duration).
				Str("failure", e.Failure).
				Msg("database command failed")
		},
	}
}
