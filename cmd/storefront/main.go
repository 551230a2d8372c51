// Command storefront runs the storefront HTTP API.
//
// Configuration comes from the environment (and an optional .env file).
// The process exits with status 1 when the configuration is invalid or
// MongoDB cannot be reached.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/storefront/internal/config"
	"github.com/deppfellow/storefront/internal/handler"
	"github.com/deppfellow/storefront/internal/lib/upload"
	"github.com/deppfellow/storefront/internal/logger"
	"github.com/deppfellow/storefront/internal/repository"
	"github.com/deppfellow/storefront/internal/router"
	"github.com/deppfellow/storefront/internal/server"
	"github.com/deppfellow/storefront/internal/service"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const indexTimeout = 30 * time.Second

func main() {
	bootLogger := logger.NewBootstrapLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &bootLogger); err != nil {
		stop()
		bootLogger.Fatal().Stack().Err(err).Msg("storefront stopped")
	}
}

// run wires the application and serves until ctx is cancelled.
func run(ctx context.Context, bootLogger *zerolog.Logger) error {
	cfg, err := config.LoadConfig(bootLogger)
	if err != nil {
		return err
	}

	loggerService, err := logger.NewLoggerService(cfg.Observability)
	if err != nil {
		return errors.Wrap(err, "failed to initialize new relic")
	}

	log := logger.NewLoggerWithService(cfg.Observability, loggerService)

	files := upload.NewDiskStore(cfg.Upload.Dir, cfg.Upload.PublicPath, upload.NewNamer())
	if err := files.EnsureDir(); err != nil {
		loggerService.Shutdown()
		return err
	}

	srv, err := server.New(ctx, cfg, &log, loggerService)
	if err != nil {
		loggerService.Shutdown()
		return err
	}

	repos := repository.NewRepositories(srv.DB.DB)

	indexCtx, cancel := context.WithTimeout(ctx, indexTimeout)
	err = repos.EnsureIndexes(indexCtx)
	cancel()
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return errors.Wrap(err, "failed to create indexes")
	}

	services := service.NewServices(repos, files)
	handlers := handler.NewHandlers(srv, services)
	srv.SetupHTTPServer(router.NewRouter(srv, handlers))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")

		timeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("server exited properly")
		return nil
	})

	return g.Wait()
}
