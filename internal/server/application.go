package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/config"
	"github.com/darglk/chairai-sub002/internal/database"
	"github.com/darglk/chairai-sub002/internal/pkg/logger"
)

// Application wires together configuration, logging, database, and HTTP server.
type Application struct {
	Config    *config.Config
	Logger    *zap.Logger
	DBManager *database.Manager
	Server    *Server
}

// ApplicationOptions configure application bootstrapping. ServicesFunc runs
// after the logger exists so services can log through it.
type ApplicationOptions struct {
	Config         *config.Config
	ServicesFunc   func(*config.Config, *zap.Logger) (*Services, error)
	RouteMountFunc func(*Server)
}

// NewApplication constructs an application.
func NewApplication(opts ApplicationOptions) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Get()
	}

	appLog, err := logger.Initialize(cfg)
	if err != nil {
		return nil, fmt.Errorf("server: initialize logger: %w", err)
	}
	zap.ReplaceGlobals(appLog)

	dbManager := database.NewManager(cfg, appLog)

	var services *Services
	if opts.ServicesFunc != nil {
		services, err = opts.ServicesFunc(cfg, appLog)
		if err != nil {
			return nil, fmt.Errorf("server: build services: %w", err)
		}
	}

	serverCfg := DefaultConfig()
	serverCfg.Config = cfg
	serverCfg.Logger = appLog
	serverCfg.DBManager = dbManager
	serverCfg.Services = services

	server, err := NewServer(serverCfg)
	if err != nil {
		return nil, fmt.Errorf("server: create server: %w", err)
	}
	if opts.RouteMountFunc != nil {
		opts.RouteMountFunc(server)
	}

	return &Application{
		Config:    cfg,
		Logger:    appLog,
		DBManager: dbManager,
		Server:    server,
	}, nil
}

// Start launches the HTTP server.
func (a *Application) Start() error {
	return a.Server.Start()
}

// StartAsync launches the HTTP server asynchronously.
func (a *Application) StartAsync() error {
	return a.Server.StartAsync()
}

// Shutdown gracefully stops the server and closes resources.
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.Server.Shutdown(ctx); err != nil {
		return err
	}
	return a.DBManager.Close()
}

// Run starts the application and waits for termination signals.
func (a *Application) Run() error {
	return a.RunWithTimeout(10 * time.Second)
}

// RunWithTimeout starts the application with the specified shutdown timeout.
func (a *Application) RunWithTimeout(timeout time.Duration) error {
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
