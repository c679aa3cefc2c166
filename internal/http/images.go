package http

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/pkg/ratelimit"
	"github.com/darglk/chairai-sub002/internal/server"
)

type generationRequest struct {
	Prompt string `json:"prompt"`
}

// GenerationCreate produces a furniture concept image from a prompt.
// Anonymous callers are allowed; the quota keys on the session user when
// present and on the client IP otherwise. The quota check runs before any
// other work so rejected callers cost nothing downstream.
func GenerationCreate(ctx *server.Context) error {
	var req generationRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	var (
		ownerID  *uint
		quotaUID string
	)
	if userID, ok := auth.GetUserID(ctx.Ctx); ok {
		ownerID = &userID
		quotaUID = strconv.FormatUint(uint64(userID), 10)
	}

	result := ctx.Services.ImageQuota.Check(quotaUID, clientIP(ctx))
	setRateLimitHeaders(ctx, result)
	if !result.Allowed {
		retryAfter := int(math.Ceil(result.RetryAfter(time.Now()).Seconds()))
		ctx.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return ctx.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"ok":                  false,
			"error":               "generation rate limit exceeded",
			"retry_after_seconds": retryAfter,
			"reset_at":            result.ResetAt.UTC().Format(time.RFC3339),
		})
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	image, err := ctx.Services.Images.Generate(ctx.Context(), db, images.GenerateParams{
		UserID: ownerID,
		Prompt: req.Prompt,
	})
	if err != nil {
		var vErr *images.ValidationError
		switch {
		case errors.As(err, &vErr):
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		case errors.Is(err, images.ErrGeneratorUnavailable):
			return jsonError(ctx, fiber.StatusServiceUnavailable, "image generation temporarily unavailable")
		case errors.Is(err, images.ErrEmptyGeneration):
			return jsonError(ctx, fiber.StatusBadGateway, "image generation returned no image")
		}
		ctx.Logger.Error("image generation failed", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok": true,
		"image": fiber.Map{
			"id":     image.ID,
			"url":    ctx.Services.Images.URL(image),
			"prompt": image.Prompt,
			"model":  image.Model,
			"size":   image.Size,
		},
		"rate": fiber.Map{
			"remaining": result.Remaining,
			"reset_at":  result.ResetAt.UTC().Format(time.RFC3339),
		},
	})
}

// GenerationList returns the current user's generation history, newest first.
func GenerationList(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	page, perPage := pageParams(ctx)
	items, total, err := images.ListByUser(db, user.ID, page, perPage)
	if err != nil {
		ctx.Logger.Error("failed to list generated images", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(items))
	for i := range items {
		img := &items[i]
		out = append(out, fiber.Map{
			"id":         img.ID,
			"url":        ctx.Services.Images.URL(img),
			"prompt":     img.Prompt,
			"model":      img.Model,
			"size":       img.Size,
			"created_at": img.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return ctx.JSON(fiber.Map{
		"ok":       true,
		"images":   out,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

func setRateLimitHeaders(ctx *server.Context, result ratelimit.Result) {
	ctx.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	ctx.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	ctx.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
