package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/config"
	"github.com/darglk/chairai-sub002/internal/database"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/jobs"
	"github.com/darglk/chairai-sub002/internal/pkg/ratelimit"
	"github.com/darglk/chairai-sub002/internal/server"
	"github.com/darglk/chairai-sub002/internal/storage"
)

// App wraps the server application with the background maintenance workers.
type App struct {
	*server.Application
	dispatcher *jobs.MaintenanceDispatcher
}

// NewApp creates the application with services and routes wired.
func NewApp() (*App, error) {
	loadDotEnv()

	cfg := config.Get()

	auth.Initialize(cfg)

	var store storage.ObjectStore

	opts := server.ApplicationOptions{
		Config: cfg,
		ServicesFunc: func(cfg *config.Config, log *zap.Logger) (*server.Services, error) {
			var err error
			store, err = storage.New(context.Background(), cfg)
			if err != nil {
				return nil, fmt.Errorf("build object store: %w", err)
			}

			generator := images.NewOpenAIGenerator(log, cfg.ImageGen, cfg.OpenAITimeout())
			quota := ratelimit.NewQuota(ratelimit.NewLimiter(), cfg.ImageGen.RateLimit, cfg.ImageGenRateWindow())

			return &server.Services{
				Images:     images.NewService(log, generator, store),
				Store:      store,
				ImageQuota: quota,
			}, nil
		},
		RouteMountFunc: MountRoutes,
	}

	application, err := server.NewApplication(opts)
	if err != nil {
		return nil, err
	}

	return &App{
		Application: application,
		dispatcher:  jobs.NewMaintenanceDispatcher(cfg, application.Logger, application.DBManager, store),
	}, nil
}

func loadDotEnv() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load(".env")
	}
}

// RunMigrations migrates the schema and seeds the specialization catalog.
func RunMigrations(app *App) error {
	db, err := app.DBManager.Connect()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	if err := database.SeedSpecializations(db); err != nil {
		return fmt.Errorf("seed specializations: %w", err)
	}

	// Checkpoint WAL to ensure migrations are persisted
	if err := app.DBManager.CheckpointWAL("FULL"); err != nil {
		app.Logger.Warn("failed to checkpoint WAL after migration", zap.Error(err))
	}

	return nil
}

// SeedDemoData loads the demo accounts and project behind the -seed flag.
func SeedDemoData(app *App) error {
	db, err := app.DBManager.Connect()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return database.Seed(db)
}

// Start begins the HTTP server and maintenance dispatcher.
func (a *App) Start() error {
	if err := a.dispatcher.Start(); err != nil {
		return err
	}
	if err := a.Application.Start(); err != nil {
		a.dispatcher.Stop()
		return err
	}
	return nil
}

// StartAsync starts the components asynchronously.
func (a *App) StartAsync() error {
	if err := a.dispatcher.Start(); err != nil {
		return err
	}
	if err := a.Application.StartAsync(); err != nil {
		a.dispatcher.Stop()
		return err
	}
	return nil
}

// Shutdown gracefully stops background workers and the HTTP server.
func (a *App) Shutdown(ctx context.Context) error {
	a.dispatcher.Stop()
	return a.Application.Shutdown(ctx)
}

// Run starts everything and waits for termination signals.
func (a *App) Run() error {
	return a.RunWithTimeout(10 * time.Second)
}

// RunWithTimeout starts the app and shuts down gracefully on SIGINT or
// SIGTERM. Shadows the embedded Application method so the dispatcher starts
// and stops with the server.
func (a *App) RunWithTimeout(timeout time.Duration) error {
	if err := a.StartAsync(); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	a.Logger.Info("shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.Shutdown(ctx); err != nil {
		a.Logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}

	a.Logger.Info("shutdown complete")
	return nil
}
