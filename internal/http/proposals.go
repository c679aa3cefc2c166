package http

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/projects"
	"github.com/darglk/chairai-sub002/internal/proposals"
	"github.com/darglk/chairai-sub002/internal/server"
)

type proposalCreateRequest struct {
	Message       string `json:"message"`
	PriceCents    int64  `json:"price_cents"`
	EstimatedDays int    `json:"estimated_days"`
}

// ProposalCreate submits the current artisan's quote on an open project.
func ProposalCreate(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if user.Role != accounts.RoleArtisan {
		return jsonError(ctx, fiber.StatusForbidden, "artisan account required")
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

	var req proposalCreateRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	proposal, err := proposals.Submit(ctx.Logger, db, proposals.SubmitParams{
		ProjectID:     project.ID,
		ArtisanID:     user.ID,
		Message:       req.Message,
		PriceCents:    req.PriceCents,
		EstimatedDays: req.EstimatedDays,
	})
	if err != nil {
		var vErr *proposals.ValidationError
		switch {
		case errors.As(err, &vErr):
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		case errors.Is(err, proposals.ErrProjectNotOpen):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		case errors.Is(err, proposals.ErrAlreadyProposed):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		case errors.Is(err, projects.ErrProjectNotFound):
			return jsonError(ctx, fiber.StatusNotFound, "project not found")
		}
		ctx.Logger.Error("proposal submission failed", zap.Error(err), zap.Uint("artisan_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":       true,
		"proposal": proposalJSON(proposal, project),
	})
}

// ProjectProposalList returns all proposals on one of the current client's
// projects, pending first.
func ProjectProposalList(ctx *server.Context) error {
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
	if project.ClientID != user.ID {
		return jsonError(ctx, fiber.StatusForbidden, "only the project owner can view proposals")
	}

	items, err := proposals.ListByProject(db, project.ID)
	if err != nil {
		ctx.Logger.Error("failed to list proposals", zap.Error(err), zap.Uint("project_id", project.ID))
		return fiber.ErrInternalServerError
	}

	artisanIDs := make([]uint, 0, len(items))
	for i := range items {
		artisanIDs = append(artisanIDs, items[i].ArtisanID)
	}
	artisanUsers, err := accounts.FindByIDs(db, artisanIDs)
	if err != nil {
		ctx.Logger.Error("failed to load proposal artisans", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(items))
	for i := range items {
		entry := proposalJSON(&items[i], project)
		if artisan := artisanUsers[items[i].ArtisanID]; artisan != nil {
			entry["artisan"] = fiber.Map{"id": artisan.ID, "display_name": artisan.DisplayName}
		}
		out = append(out, entry)
	}

	return ctx.JSON(fiber.Map{
		"ok":        true,
		"proposals": out,
	})
}

// MyProposalList returns the current artisan's own proposals, newest first.
func MyProposalList(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if user.Role != accounts.RoleArtisan {
		return jsonError(ctx, fiber.StatusForbidden, "artisan account required")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	items, err := proposals.ListByArtisan(db, user.ID)
	if err != nil {
		ctx.Logger.Error("failed to list proposals", zap.Error(err), zap.Uint("artisan_id", user.ID))
		return fiber.ErrInternalServerError
	}

	projectIDs := make([]uint, 0, len(items))
	for i := range items {
		projectIDs = append(projectIDs, items[i].ProjectID)
	}
	var projectRows []projects.Project
	if len(projectIDs) > 0 {
		if err := db.Where("id IN ?", projectIDs).Find(&projectRows).Error; err != nil {
			ctx.Logger.Error("failed to load proposal projects", zap.Error(err))
			return fiber.ErrInternalServerError
		}
	}
	projectByID := make(map[uint]*projects.Project, len(projectRows))
	for i := range projectRows {
		projectByID[projectRows[i].ID] = &projectRows[i]
	}

	out := make([]fiber.Map, 0, len(items))
	for i := range items {
		out = append(out, proposalJSON(&items[i], projectByID[items[i].ProjectID]))
	}

	return ctx.JSON(fiber.Map{
		"ok":        true,
		"proposals": out,
	})
}

// ProposalAccept accepts a pending proposal on the current client's open
// project, rejecting its pending siblings and starting the work.
func ProposalAccept(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	proposalID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || proposalID < 1 {
		return jsonError(ctx, fiber.StatusNotFound, "proposal not found")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	proposal, err := proposals.Accept(ctx.Logger, db, user.ID, uint(proposalID))
	if err != nil {
		switch {
		case errors.Is(err, proposals.ErrProposalNotFound):
			return jsonError(ctx, fiber.StatusNotFound, "proposal not found")
		case errors.Is(err, proposals.ErrNotProjectOwner):
			return jsonError(ctx, fiber.StatusForbidden, err.Error())
		case errors.Is(err, proposals.ErrProjectNotOpen):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		case errors.Is(err, proposals.ErrNotPending):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		}
		ctx.Logger.Error("proposal accept failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":       true,
		"proposal": proposalJSON(proposal, nil),
	})
}

// ProposalWithdraw withdraws the current artisan's own pending proposal.
func ProposalWithdraw(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}

	proposalID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || proposalID < 1 {
		return jsonError(ctx, fiber.StatusNotFound, "proposal not found")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	proposal, err := proposals.Withdraw(ctx.Logger, db, user.ID, uint(proposalID))
	if err != nil {
		switch {
		case errors.Is(err, proposals.ErrProposalNotFound):
			return jsonError(ctx, fiber.StatusNotFound, "proposal not found")
		case errors.Is(err, proposals.ErrNotProposer):
			return jsonError(ctx, fiber.StatusForbidden, err.Error())
		case errors.Is(err, proposals.ErrNotPending):
			return jsonError(ctx, fiber.StatusConflict, err.Error())
		}
		ctx.Logger.Error("proposal withdraw failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":       true,
		"proposal": proposalJSON(proposal, nil),
	})
}

func proposalJSON(proposal *proposals.Proposal, project *projects.Project) fiber.Map {
	out := fiber.Map{
		"id":             proposal.ID,
		"project_id":     proposal.ProjectID,
		"artisan_id":     proposal.ArtisanID,
		"message":        proposal.Message,
		"price_cents":    proposal.PriceCents,
		"estimated_days": proposal.EstimatedDays,
		"status":         proposal.Status,
		"created_at":     proposal.CreatedAt.UTC().Format(time.RFC3339),
	}
	if project != nil {
		out["project"] = fiber.Map{
			"public_id": project.PublicID,
			"title":     project.Title,
			"status":    project.Status,
		}
	}
	return out
}
