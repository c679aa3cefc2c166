// Package chairai provides a public API for embedding the ChairAI server.
package chairai

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal"
	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/database"
	"github.com/darglk/chairai-sub002/internal/server"
)

// Context is the public alias for server.Context
type Context = server.Context

// Server is the public alias for server.Server
type Server = server.Server

// RouteConfig is the public alias for server.RouteConfig
type RouteConfig = server.RouteConfig

// App wraps the internal application with a public API
type App struct {
	internal *internal.App
}

// NewApp creates a new ChairAI application
func NewApp() (*App, error) {
	app, err := internal.NewApp()
	if err != nil {
		return nil, err
	}
	return &App{internal: app}, nil
}

// GetFiber returns the underlying Fiber app for adding routes
func (a *App) GetFiber() *fiber.App {
	return a.internal.Server.App()
}

// GetServer returns the server for registering routes with context
func (a *App) GetServer() *server.Server {
	return a.internal.Server
}

// GetDB returns the database connection
func (a *App) GetDB() *gorm.DB {
	db, _ := a.internal.DBManager.Connect()
	return db
}

// RunMigrations runs database migrations
func (a *App) RunMigrations() error {
	return internal.RunMigrations(a.internal)
}

// RunWithTimeout starts the app with graceful shutdown
func (a *App) RunWithTimeout(timeout time.Duration) error {
	return a.internal.RunWithTimeout(timeout)
}

// Seed loads the demo data set
func Seed(db *gorm.DB) error {
	return database.Seed(db)
}

// FindUserByID finds a user by ID
func FindUserByID(db *gorm.DB, id uint) (*accounts.User, error) {
	return accounts.FindByID(db, id)
}

// GetUserID retrieves the current user ID from the session cookie
func GetUserID(ctx *fiber.Ctx) (uint, bool) {
	return auth.GetUserID(ctx)
}

// AuthMiddleware returns the authentication middleware
func AuthMiddleware() fiber.Handler {
	return auth.Middleware()
}
