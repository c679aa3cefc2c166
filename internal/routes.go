package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/darglk/chairai-sub002/internal/auth"
	httphandlers "github.com/darglk/chairai-sub002/internal/http"
	"github.com/darglk/chairai-sub002/internal/server"
)

// MountRoutes registers all application routes.
func MountRoutes(srv *server.Server) {
	// Health check - support both GET and HEAD requests
	healthHandler := func(ctx *server.Context) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	}
	srv.Get("/_health", healthHandler)
	srv.App().Head("/_health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	// Objects stored by the memory driver are served from here. S3-backed
	// deployments hand out bucket URLs instead and skip this route.
	srv.Get("/files/*", httphandlers.FileShow)

	// The generation endpoint is open to anonymous cross-origin callers;
	// the per-user/per-IP quota inside the handler is its abuse guard.
	generationConfig := &server.RouteConfig{
		EnableCORS: true,
		CORSConfig: &cors.Config{
			AllowOrigins: "*",
			AllowMethods: "POST,OPTIONS",
			AllowHeaders: "Content-Type, Authorization, User-Agent",
		},
		WriteConcurrency:   true,
		EnableSecFetchSite: server.Bool(false),
	}

	srv.Post("/api/v1/images/generations", httphandlers.GenerationCreate, generationConfig)
	srv.Options("/api/v1/images/generations", func(ctx *server.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, generationConfig)

	// Rate limit login attempts: 5 per minute per IP (disabled in test mode)
	loginRateLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 60 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"ok":    false,
				"error": "too many login attempts, try again in a minute",
			})
		},
		Next: func(c *fiber.Ctx) bool {
			ctx, ok := c.Locals("app_ctx").(*server.Context)
			if ok && ctx.Config != nil && ctx.Config.IsTest() {
				return true
			}
			return false
		},
	})

	writeConfig := &server.RouteConfig{
		WriteConcurrency: true,
	}

	srv.Post("/api/v1/auth/register", httphandlers.Register, writeConfig)
	srv.Post("/api/v1/auth/login", httphandlers.Login, &server.RouteConfig{
		CustomMiddleware: []fiber.Handler{loginRateLimiter},
	})
	srv.Post("/api/v1/auth/logout", httphandlers.Logout)

	// Public directory and board reads
	srv.Get("/api/v1/specializations", httphandlers.SpecializationList)
	srv.Get("/api/v1/artisans", httphandlers.ArtisanList)
	srv.Get("/api/v1/artisans/:id", httphandlers.ArtisanShow)
	srv.Get("/api/v1/artisans/:id/reviews", httphandlers.ArtisanReviewList)
	srv.Get("/api/v1/projects", httphandlers.ProjectList)
	srv.Get("/api/v1/projects/:id", httphandlers.ProjectShow)

	authConfig := &server.RouteConfig{
		CustomMiddleware: []fiber.Handler{auth.Middleware()},
	}

	authWriteConfig := &server.RouteConfig{
		WriteConcurrency: true,
		CustomMiddleware: []fiber.Handler{auth.Middleware()},
	}

	srv.Get("/api/v1/auth/me", httphandlers.Me, authConfig)
	srv.Put("/api/v1/auth/password", httphandlers.PasswordUpdate, authWriteConfig)

	srv.Get("/api/v1/images", httphandlers.GenerationList, authConfig)

	srv.Put("/api/v1/artisans/me", httphandlers.ProfileUpdate, authWriteConfig)
	srv.Put("/api/v1/artisans/me/specializations", httphandlers.ProfileSpecializationsUpdate, authWriteConfig)
	srv.Post("/api/v1/artisans/me/portfolio", httphandlers.PortfolioImageCreate, authWriteConfig)
	srv.Delete("/api/v1/artisans/me/portfolio/:id", httphandlers.PortfolioImageDelete, authWriteConfig)

	srv.Post("/api/v1/projects", httphandlers.ProjectCreate, authWriteConfig)
	srv.Post("/api/v1/projects/:id/complete", httphandlers.ProjectComplete, authWriteConfig)
	srv.Post("/api/v1/projects/:id/cancel", httphandlers.ProjectCancel, authWriteConfig)

	srv.Get("/api/v1/projects/:id/proposals", httphandlers.ProjectProposalList, authConfig)
	srv.Post("/api/v1/projects/:id/proposals", httphandlers.ProposalCreate, authWriteConfig)
	srv.Get("/api/v1/proposals/mine", httphandlers.MyProposalList, authConfig)
	srv.Post("/api/v1/proposals/:id/accept", httphandlers.ProposalAccept, authWriteConfig)
	srv.Post("/api/v1/proposals/:id/withdraw", httphandlers.ProposalWithdraw, authWriteConfig)

	srv.Post("/api/v1/projects/:id/reviews", httphandlers.ReviewCreate, authWriteConfig)
}
