package http

import (
	"errors"
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/server"
)

func jsonError(ctx *server.Context, status int, message string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"ok":    false,
		"error": message,
	})
}

// currentUser loads the account behind the session cookie. Routes behind
// auth.Middleware always carry a valid session; a stale cookie whose account
// has been removed still resolves to 401.
func currentUser(ctx *server.Context) (*accounts.User, error) {
	userID, ok := auth.GetUserID(ctx.Ctx)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}

	db, err := ctx.DB()
	if err != nil {
		return nil, fiber.ErrInternalServerError
	}

	user, err := accounts.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, accounts.ErrUserNotFound) {
			return nil, fiber.ErrUnauthorized
		}
		return nil, fiber.ErrInternalServerError
	}

	return user, nil
}

// clientIP resolves the caller's address for rate limit keying. Proxy
// headers take priority over the socket address so limits follow the real
// client through Cloudflare or a reverse proxy rather than the proxy itself.
// Returns "unknown" when no candidate parses as an IP.
func clientIP(ctx *server.Context) string {
	if ip := validIP(ctx.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := ctx.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := validIP(first); ip != "" {
			return ip
		}
	}
	if ip := validIP(ctx.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if ip := validIP(ctx.IP()); ip != "" {
		return ip
	}
	return "unknown"
}

func validIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || net.ParseIP(s) == nil {
		return ""
	}
	return s
}

// pageParams reads page/per_page query parameters, clamping them to sane
// bounds so a caller cannot request unbounded result sets.
func pageParams(ctx *server.Context) (page, perPage int) {
	page = ctx.QueryInt("page", 1)
	perPage = ctx.QueryInt("per_page", 20)
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return page, perPage
}

func userJSON(user *accounts.User) fiber.Map {
	return fiber.Map{
		"id":           user.ID,
		"email":        user.Email,
		"display_name": user.DisplayName,
		"role":         user.Role,
	}
}
