package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/frahmantamala/rt-lending/internal"
	"github.com/frahmantamala/rt-lending/internal/core/events"
	"github.com/frahmantamala/rt-lending/internal/ledger"
	"github.com/frahmantamala/rt-lending/internal/loan"
	"github.com/frahmantamala/rt-lending/internal/store"
	"github.com/frahmantamala/rt-lending/internal/transport/middleware"
	"github.com/frahmantamala/rt-lending/internal/transport/rest"
	"github.com/frahmantamala/rt-lending/internal/user"
	"github.com/frahmantamala/rt-lending/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	Gorm   *gorm.DB
	Store  *store.Store
	Bus    *events.EventBus
	Sinks  *sinks
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if err := setupRoutes(deps); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to register routes: %v\n", err)
		os.Exit(1)
	}

	if deps.Config.Sync.BootstrapFetch {
		// each source attempt is bounded by sync.timeout
		if source := deps.Sinks.bootstrapSource(deps.Config.Sync.Timeout, deps.Logger); source != nil {
			store.NewLoader(deps.Store, source, 0, deps.Logger).Start(ctx)
		}
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		deps.Logger.Info("Received signal, shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.close()
			os.Exit(1)
		}
	}

	deps.close()
	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) error {
	opts := rest.Options{
		AllowedOrigins:   deps.Config.Server.AllowedOrigins,
		ValidateRequests: true,
		RequestLogging:   true,
	}
	if deps.DB != nil {
		opts.DB = deps.DB.DB
	}
	for _, d := range deps.Sinks.queues() {
		opts.Queues = append(opts.Queues, d)
	}
	if deps.Config.RateLimit.Enabled {
		lim, err := middleware.NewRateLimiter(deps.Config.RateLimit.Rate)
		if err != nil {
			return err
		}
		opts.RateLimiter = lim
	}

	return rest.RegisterAllRoutes(deps.Router, opts,
		user.NewHandler(deps.Store),
		loan.NewHandler(deps.Store),
		ledger.NewHandler(deps.Store),
		deps.Logger)
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	deps := &Dependencies{
		Config: config,
		Logger: lg,
		Router: chi.NewRouter(),
		Bus:    events.NewEventBus(lg),
	}

	if config.Database.Enabled() {
		db, err := initDB(config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		gdb, err := initGorm(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		deps.DB, deps.Gorm = db, gdb
	}

	deps.Sinks, err = buildSinks(ctx, config, deps.Bus, deps.Gorm, lg)
	if err != nil {
		deps.close()
		return nil, fmt.Errorf("failed to initialize sync sinks: %w", err)
	}

	deps.Store = store.New(store.Bootstrap(), deps.Bus, lg)
	return deps, nil
}

func (d *Dependencies) close() {
	if d.Sinks != nil {
		d.Sinks.shutdown()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
	}
}
