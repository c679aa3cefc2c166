package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	fiberrecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/config"
	"github.com/darglk/chairai-sub002/internal/database"
	"github.com/darglk/chairai-sub002/internal/middleware"
)

// Config configures the HTTP server.
// Note: This struct holds dependencies (Logger, Config, DBManager, Services)
// that are injected into each request's Context via wrapHandler.
type Config struct {
	Config    *config.Config    // Runtime configuration
	Logger    *zap.Logger       // Application logger
	DBManager *database.Manager // Database connection pool
	Services  *Services         // Long-lived application services

	ErrorHandler fiber.ErrorHandler

	EnableRequestLogger bool
	EnableRequestID     bool
	EnableRecover       bool
	EnableHelmet        bool
	EnableCompress      bool
	RequestTimeout      time.Duration

	MaxConcurrentReads  int
	MaxConcurrentWrites int
	ConcurrencyTimeout  time.Duration
}

// DefaultConfig returns sensible defaults for the server configuration.
func DefaultConfig() *Config {
	return &Config{
		EnableRequestLogger: true,
		EnableRequestID:     true,
		EnableRecover:       true,
		EnableHelmet:        true,
		EnableCompress:      true,
		RequestTimeout:      30 * time.Second,
		MaxConcurrentReads:  128,
		MaxConcurrentWrites: 8,
		ConcurrencyTimeout:  5 * time.Second,
	}
}

// RouteConfig customises middleware for a route.
type RouteConfig struct {
	EnableCORS         bool
	CORSConfig         *cors.Config
	WriteConcurrency   bool
	EnableSecFetchSite *bool // CSRF protection, default true. Set to false for public/cross-origin routes.
	// CustomMiddleware are standard fiber handlers (backward compatibility).
	// These run before the route handler and receive fiber.Ctx directly.
	CustomMiddleware []fiber.Handler
}

// Bool returns a pointer to a bool value.
func Bool(v bool) *bool { return &v }

// Server wraps a fiber.App with application defaults.
type Server struct {
	app     *fiber.App
	cfg     *Config
	limiter *middleware.ConcurrencyLimiter
}

// NewServer creates a server using the provided configuration.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if cfg.Config == nil {
		return nil, fmt.Errorf("server: runtime config is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("server: logger is required")
	}
	if cfg.DBManager == nil {
		return nil, fmt.Errorf("server: database manager is required")
	}

	fiberCfg := fiber.Config{
		DisableDefaultDate:    true,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.RequestTimeout,
		WriteTimeout:          cfg.RequestTimeout,
		BodyLimit:             cfg.Config.MaxUploadSizeMB * 1024 * 1024,
	}

	if cfg.ErrorHandler != nil {
		fiberCfg.ErrorHandler = cfg.ErrorHandler
	} else {
		fiberCfg.ErrorHandler = defaultErrorHandler(cfg.Logger, cfg.Config)
	}

	app := fiber.New(fiberCfg)

	server := &Server{
		app:     app,
		cfg:     cfg,
		limiter: middleware.NewConcurrencyLimiter(int64(cfg.MaxConcurrentReads), int64(cfg.MaxConcurrentWrites), cfg.ConcurrencyTimeout, cfg.Logger),
	}

	server.setupGlobalMiddleware()

	return server, nil
}

func (s *Server) setupGlobalMiddleware() {
	if s.cfg.EnableRequestID {
		s.app.Use(requestid.New())
	}

	if s.cfg.EnableRecover {
		s.app.Use(fiberrecover.New())
	}

	if s.cfg.EnableHelmet {
		s.app.Use(helmet.New(helmet.Config{
			// Disable CSP - the API serves JSON only, there are no assets to scope.
			ContentSecurityPolicy: "",
		}))
	}

	if s.cfg.EnableCompress {
		s.app.Use(compress.New(compress.Config{
			Level: compress.LevelDefault,
		}))
	}

	if s.cfg.EnableRequestLogger {
		s.app.Use(middleware.RequestLogger(s.cfg.Logger))
	}
}

// Get exposes fiber.App.Get with application route configuration.
func (s *Server) Get(path string, handler func(*Context) error, cfg ...*RouteConfig) {
	s.registerRoute(fiber.MethodGet, path, s.wrapHandler(handler), cfg...)
}

// Post exposes fiber.App.Post with application route configuration.
func (s *Server) Post(path string, handler func(*Context) error, cfg ...*RouteConfig) {
	s.registerRoute(fiber.MethodPost, path, s.wrapHandler(handler), cfg...)
}

// Put exposes fiber.App.Put with application route configuration.
func (s *Server) Put(path string, handler func(*Context) error, cfg ...*RouteConfig) {
	s.registerRoute(fiber.MethodPut, path, s.wrapHandler(handler), cfg...)
}

// Delete exposes fiber.App.Delete with application route configuration.
func (s *Server) Delete(path string, handler func(*Context) error, cfg ...*RouteConfig) {
	s.registerRoute(fiber.MethodDelete, path, s.wrapHandler(handler), cfg...)
}

// Options exposes fiber.App.Options with application route configuration.
func (s *Server) Options(path string, handler func(*Context) error, cfg ...*RouteConfig) {
	s.registerRoute(fiber.MethodOptions, path, s.wrapHandler(handler), cfg...)
}

// wrapHandler converts an application handler to a fiber handler.
func (s *Server) wrapHandler(handler func(*Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := &Context{
			Ctx:       c,
			Logger:    s.cfg.Logger,
			Config:    s.cfg.Config,
			DBManager: s.cfg.DBManager,
			Services:  s.cfg.Services,
		}
		return handler(ctx)
	}
}

func (s *Server) registerRoute(method, path string, handler fiber.Handler, cfg ...*RouteConfig) {
	var routeCfg *RouteConfig
	if len(cfg) > 0 {
		routeCfg = cfg[0]
	}

	capacity := 1
	if routeCfg != nil {
		capacity += len(routeCfg.CustomMiddleware)
	}
	handlers := make([]fiber.Handler, 0, capacity+1) // +1 for context injector

	// Always inject the application context first so custom middleware can access it
	contextInjector := func(c *fiber.Ctx) error {
		ctx := &Context{
			Ctx:       c,
			Logger:    s.cfg.Logger,
			Config:    s.cfg.Config,
			DBManager: s.cfg.DBManager,
			Services:  s.cfg.Services,
		}
		c.Locals("app_ctx", ctx)
		return c.Next()
	}
	handlers = append(handlers, contextInjector)

	// Sec-Fetch-Site CSRF protection on every route unless the route
	// explicitly opts out (public cross-origin endpoints).
	secFetch := routeCfg == nil || routeCfg.EnableSecFetchSite == nil || *routeCfg.EnableSecFetchSite
	if secFetch {
		handlers = append(handlers, middleware.SecFetchSiteMiddleware())
	}

	if routeCfg != nil {
		if routeCfg.EnableCORS {
			corsCfg := routeCfg.CORSConfig
			if corsCfg == nil {
				corsCfg = &cors.Config{
					AllowOrigins: "*",
					AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
					AllowHeaders: "Origin, Content-Type, Accept, Authorization",
				}
			}
			handlers = append(handlers, cors.New(*corsCfg))
		}

		if routeCfg.WriteConcurrency {
			handlers = append(handlers, middleware.WriteConcurrencyLimitMiddleware(s.limiter))
		}

		if len(routeCfg.CustomMiddleware) > 0 {
			handlers = append(handlers, routeCfg.CustomMiddleware...)
		}
	}

	handlers = append(handlers, handler)
	s.app.Add(method, path, handlers...)
}

// App exposes the underlying Fiber application for testing.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on the configured port.
func (s *Server) Start() error {
	s.cfg.Logger.Info("starting http server", zap.String("addr", ":"+s.cfg.Config.Port))
	return s.app.Listen(":" + s.cfg.Config.Port)
}

// StartAsync starts the server in a new goroutine.
func (s *Server) StartAsync() error {
	go func() {
		if err := s.Start(); err != nil {
			s.cfg.Logger.Error("fiber listen failed", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		done <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func defaultErrorHandler(log *zap.Logger, cfg *config.Config) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		log.Error("request failed",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.Int("status", code),
		)

		message := err.Error()
		if code == fiber.StatusInternalServerError && cfg.IsProduction() {
			message = "internal server error"
		}

		return c.Status(code).JSON(fiber.Map{
			"ok":    false,
			"error": message,
		})
	}
}
