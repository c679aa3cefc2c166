package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/projects"
	"github.com/darglk/chairai-sub002/internal/reviews"
	"github.com/darglk/chairai-sub002/internal/server"
)

type reviewCreateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// ReviewCreate writes the client's review of a completed project. The rating
// folds into the artisan's aggregates in the same transaction.
func ReviewCreate(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	project, err := projects.FindByPublicID(db, ctx.Params("id"))
	if err != nil {
		if errors.Is(err, projects.ErrProjectNotFound) {
			return jsonError(ctx, fiber.StatusNotFound, "project not found")
		}
		ctx.Logger.Error("failed to load project", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	var req reviewCreateRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	review, err := reviews.Create(ctx.Logger, db, reviews.CreateParams{
		ProjectID: project.ID,
		AuthorID:  user.ID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		var vErr *reviews.ValidationError
		switch {
		case errors.As(err, &vErr):
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		case errors.Is(err, reviews.ErrNotProjectOwner):
			return jsonError(ctx, fiber.StatusForbidden, err.Error())
		case errors.Is(err, reviews.ErrProjectNotCompleted):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		case errors.Is(err, reviews.ErrAlreadyReviewed):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		case errors.Is(err, reviews.ErrNoAcceptedProposal):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		}
		ctx.Logger.Error("review creation failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok": true,
		"review": fiber.Map{
			"id":         review.ID,
			"project_id": review.ProjectID,
			"artisan_id": review.ArtisanID,
			"rating":     review.Rating,
			"comment":    review.Comment,
			"created_at": review.CreatedAt.UTC().Format(time.RFC3339),
		},
	})
}
