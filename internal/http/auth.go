package http

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/server"
)

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// Register creates an account and signs the caller in.
func Register(ctx *server.Context) error {
	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	var req registerRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	user, err := accounts.Register(ctx.Logger, db, accounts.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		var vErr *accounts.ValidationError
		switch {
		case errors.As(err, &vErr):
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		case errors.Is(err, accounts.ErrWeakPassword):
			return jsonError(ctx, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, accounts.ErrEmailTaken):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		}
		ctx.Logger.Error("registration failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	if err := auth.SetAuthCookie(ctx.Ctx, user.ID); err != nil {
		ctx.Logger.Error("failed to set session cookie", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":   true,
		"user": userJSON(user),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues the session cookie.
func Login(ctx *server.Context) error {
	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	var req loginRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	user, err := accounts.Authenticate(ctx.Logger, db, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, accounts.ErrInvalidCredentials) || errors.Is(err, accounts.ErrMissingFields) {
			return jsonError(ctx, fiber.StatusUnauthorized, "invalid credentials")
		}
		ctx.Logger.Error("authentication failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	if err := auth.SetAuthCookie(ctx.Ctx, user.ID); err != nil {
		ctx.Logger.Error("failed to set session cookie", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":   true,
		"user": userJSON(user),
	})
}

// Logout clears the session cookie.
func Logout(ctx *server.Context) error {
	auth.ClearAuthCookie(ctx.Ctx)
	return ctx.JSON(fiber.Map{"ok": true})
}

// Me returns the account behind the current session.
func Me(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	return ctx.JSON(fiber.Map{
		"ok":   true,
		"user": userJSON(user),
	})
}

type passwordUpdateRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// PasswordUpdate changes the current user's password.
func PasswordUpdate(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	var req passwordUpdateRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	if err := accounts.ChangePassword(ctx.Logger, db, user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, accounts.ErrPasswordMismatch):
			return jsonError(ctx, fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, accounts.ErrWeakPassword), errors.Is(err, accounts.ErrMissingFields):
			return jsonError(ctx, fiber.StatusBadRequest, err.Error())
		}
		ctx.Logger.Error("password change failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{"ok": true})
}
