package http

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/auth"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/projects"
	"github.com/darglk/chairai-sub002/internal/server"
)

type projectCreateRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	BudgetCents      int64  `json:"budget_cents"`
	SpecializationID *uint  `json:"specialization_id"`
	GeneratedImageID *uint  `json:"generated_image_id"`
}

// ProjectCreate posts a new commission for the current client.
func ProjectCreate(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if user.Role != accounts.RoleClient {
		return jsonError(ctx, fiber.StatusForbidden, "client account required")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	var req projectCreateRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	project, err := projects.Create(ctx.Logger, db, projects.CreateParams{
		ClientID:         user.ID,
		Title:            req.Title,
		Description:      req.Description,
		BudgetCents:      req.BudgetCents,
		SpecializationID: req.SpecializationID,
		GeneratedImageID: req.GeneratedImageID,
	})
	if err != nil {
		var vErr *projects.ValidationError
		if errors.As(err, &vErr) {
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		}
		ctx.Logger.Error("project creation failed", zap.Error(err), zap.Uint("client_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":      true,
		"project": projectJSON(project),
	})
}

// ProjectList pages through the project board. Defaults to open projects;
// "mine=true" restricts to the current user's own projects in any status.
func ProjectList(ctx *server.Context) error {
	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	page, perPage := pageParams(ctx)
	params := projects.ListParams{
		Status:           ctx.Query("status"),
		SpecializationID: uint(ctx.QueryInt("specialization_id", 0)),
		Page:             page,
		PerPage:          perPage,
	}

	if ctx.QueryBool("mine") {
		userID, ok := auth.GetUserID(ctx.Ctx)
		if !ok {
			return jsonError(ctx, fiber.StatusUnauthorized, "authentication required")
		}
		params.ClientID = userID
	}

	items, total, err := projects.List(db, params)
	if err != nil {
		ctx.Logger.Error("failed to list projects", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(items))
	for i := range items {
		out = append(out, projectJSON(&items[i]))
	}

	return ctx.JSON(fiber.Map{
		"ok":       true,
		"projects": out,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// ProjectShow returns one project by its public id.
func ProjectShow(ctx *server.Context) error {
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

	out := projectJSON(project)
	if project.GeneratedImageID != nil {
		if image, err := images.FindByID(db, *project.GeneratedImageID); err == nil {
			out["reference_image_url"] = ctx.Services.Images.URL(image)
		}
	}

	return ctx.JSON(fiber.Map{
		"ok":      true,
		"project": out,
	})
}

// ProjectComplete moves an in-progress project to completed.
func ProjectComplete(ctx *server.Context) error {
	return projectTransition(ctx, projects.Complete)
}

// ProjectCancel cancels an open or in-progress project.
func ProjectCancel(ctx *server.Context) error {
	return projectTransition(ctx, projects.Cancel)
}

func projectTransition(ctx *server.Context, op func(*zap.Logger, *gorm.DB, uint, string) (*projects.Project, error)) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	project, err := op(ctx.Logger, db, user.ID, ctx.Params("id"))
	if err != nil {
		switch {
		case errors.Is(err, projects.ErrProjectNotFound):
			return jsonError(ctx, fiber.StatusNotFound, "project not found")
		case errors.Is(err, projects.ErrNotOwner):
			return jsonError(ctx, fiber.StatusForbidden, "only the project owner can do that")
		case errors.Is(err, projects.ErrInvalidTransition):
			return jsonError(ctx, fiber.StatusConflict, "project is not in a state that allows that")
		}
		ctx.Logger.Error("project transition failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":      true,
		"project": projectJSON(project),
	})
}

func projectJSON(project *projects.Project) fiber.Map {
	return fiber.Map{
		"id":                 project.ID,
		"public_id":          project.PublicID,
		"client_id":          project.ClientID,
		"title":              project.Title,
		"description":        project.Description,
		"budget_cents":       project.BudgetCents,
		"specialization_id":  project.SpecializationID,
		"generated_image_id": project.GeneratedImageID,
		"status":             project.Status,
		"created_at":         project.CreatedAt.UTC().Format(time.RFC3339),
	}
}
