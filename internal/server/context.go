package server

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/config"
	"github.com/darglk/chairai-sub002/internal/database"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/pkg/ratelimit"
	"github.com/darglk/chairai-sub002/internal/storage"
)

// Services groups the long-lived application services that request handlers
// reach through the context: the image generation service, the object store
// holding image bytes, and the quota guarding the generation endpoint.
type Services struct {
	Images     *images.Service
	Store      storage.ObjectStore
	ImageQuota *ratelimit.Quota
}

// Context provides request-scoped access to application dependencies.
// It embeds fiber.Ctx to provide all HTTP request/response methods while
// adding direct field access to logger, config, database manager, and the
// application services. This eliminates the need for context.Locals and
// provides type-safe access.
type Context struct {
	*fiber.Ctx                   // All Fiber HTTP methods (JSON, Status, etc.)
	Logger     *zap.Logger       // Request logger (shared across app)
	Config     *config.Config    // Runtime configuration
	DBManager  *database.Manager // Database connection pool
	Services   *Services         // Long-lived application services
	db         *gorm.DB          // Cached database session (lazy-loaded)
}

// DB provides a per-request database session with context attached.
// The connection is cached after first call within the same request.
// Returns an error if the database connection fails.
func (ctx *Context) DB() (*gorm.DB, error) {
	if ctx.db != nil {
		return ctx.db, nil
	}

	db, err := ctx.DBManager.Connect()
	if err != nil {
		ctx.Logger.Error("failed to connect to database", zap.Error(err))
		return nil, fmt.Errorf("server: database connection failed: %w", err)
	}

	// Attach the request context for cancellation support and cache it
	ctx.db = db.WithContext(ctx.Context())
	return ctx.db, nil
}
