package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/adapters/storage/filestore"
	"github.com/SscSPs/checkout_ledger_app/internal/adapters/storage/mongostore"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/checkout_ledger_app/internal/core/services"
	"github.com/SscSPs/checkout_ledger_app/internal/handlers"
	"github.com/SscSPs/checkout_ledger_app/internal/middleware"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/config"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
	"github.com/SscSPs/checkout_ledger_app/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadAndValidate()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage", slog.String("backend", cfg.StorageBackend), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	m := metrics.New()
	notifier := services.NewNotifier(services.NewStoreDispatcher(store.Notifications), cfg.NotificationQueueSize, logger, m)
	container := services.NewServiceContainer(cfg, store, notifier, m)
	scheduler := services.NewScheduler(container.Sweeps, cfg.SweepInterval, logger)

	lim, err := middleware.NewLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Failed to configure rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, container, m, lim)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return notifier.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", slog.String("error", err.Error()))
		closeStore()
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// openStore builds the configured storage backend and returns a function
// releasing its resources.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*portsrepo.Store, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageBackendMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.StorageTimeout)
		defer cancel()
		client, err := database.NewMongoClient(connectCtx, cfg.MongoURI, mongostore.Registry())
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.StorageTimeout)
			defer cancel()
			database.CloseMongoClient(closeCtx, client)
		}

		logger.Info("Running database migrations...")
		applied, err := mongostore.Migrate(client, cfg.MongoDatabase)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		if applied {
			logger.Info("Database migrations applied successfully.")
		} else {
			logger.Info("No new migrations to apply.")
		}
		return mongostore.New(client.Database(cfg.MongoDatabase), cfg.StorageTimeout), closeFn, nil

	default:
		store, err := filestore.New(afero.NewOsFs(), cfg.DataDir, cfg.StorageTimeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("File storage ready", slog.String("data_dir", cfg.DataDir))
		return store, func() {}, nil
	}
}
