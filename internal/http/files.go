package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/server"
	"github.com/darglk/chairai-sub002/internal/storage"
)

// FileShow streams an object from the store. Serves the URLs the memory
// driver hands out; S3-backed deployments link straight to the bucket and
// never hit this route.
func FileShow(ctx *server.Context) error {
	key := ctx.Params("*")
	if err := storage.ValidateKey(key); err != nil {
		return jsonError(ctx, fiber.StatusNotFound, "file not found")
	}

	object, err := ctx.Services.Store.Get(ctx.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return jsonError(ctx, fiber.StatusNotFound, "file not found")
		}
		ctx.Logger.Error("failed to load object", zap.Error(err), zap.String("key", key))
		return fiber.ErrInternalServerError
	}

	// Keys are random, so the content behind one never changes.
	ctx.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	if object.ContentType != "" {
		ctx.Set(fiber.HeaderContentType, object.ContentType)
	}
	return ctx.Send(object.Data)
}
