package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/reviews"
	"github.com/darglk/chairai-sub002/internal/server"
)

// SpecializationList returns the specialization catalog.
func SpecializationList(ctx *server.Context) error {
	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	specializations, err := artisans.ListSpecializations(db)
	if err != nil {
		ctx.Logger.Error("failed to list specializations", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(specializations))
	for _, s := range specializations {
		out = append(out, fiber.Map{"name": s.Name, "slug": s.Slug})
	}

	return ctx.JSON(fiber.Map{
		"ok":              true,
		"specializations": out,
	})
}

// ArtisanList pages through the artisan directory.
func ArtisanList(ctx *server.Context) error {
	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	page, perPage := pageParams(ctx)
	minRating, _ := strconv.ParseFloat(ctx.Query("min_rating"), 64)

	profiles, total, err := artisans.List(db, artisans.ListParams{
		SpecializationSlug: ctx.Query("specialization"),
		MinRating:          minRating,
		Page:               page,
		PerPage:            perPage,
	})
	if err != nil {
		ctx.Logger.Error("failed to list artisans", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	userIDs := make([]uint, 0, len(profiles))
	for i := range profiles {
		userIDs = append(userIDs, profiles[i].UserID)
	}
	users, err := accounts.FindByIDs(db, userIDs)
	if err != nil {
		ctx.Logger.Error("failed to load artisan accounts", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(profiles))
	for i := range profiles {
		out = append(out, artisanCardJSON(&profiles[i], users[profiles[i].UserID]))
	}

	return ctx.JSON(fiber.Map{
		"ok":       true,
		"artisans": out,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

// ArtisanShow returns one artisan's profile with portfolio and ratings.
func ArtisanShow(ctx *server.Context) error {
	userID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || userID < 1 {
		return jsonError(ctx, fiber.StatusNotFound, "artisan not found")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	profile, err := artisans.FindProfileByUserID(db, uint(userID))
	if err != nil {
		if errors.Is(err, artisans.ErrProfileNotFound) {
			return jsonError(ctx, fiber.StatusNotFound, "artisan not found")
		}
		ctx.Logger.Error("failed to load artisan profile", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	user, err := accounts.FindByID(db, profile.UserID)
	if err != nil {
		ctx.Logger.Error("failed to load artisan account", zap.Error(err), zap.Uint("user_id", profile.UserID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":      true,
		"artisan": artisanProfileJSON(ctx, profile, user),
	})
}

// ArtisanReviewList returns the reviews written about an artisan.
func ArtisanReviewList(ctx *server.Context) error {
	userID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || userID < 1 {
		return jsonError(ctx, fiber.StatusNotFound, "artisan not found")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	page, perPage := pageParams(ctx)
	items, total, err := reviews.ListByArtisan(db, uint(userID), page, perPage)
	if err != nil {
		ctx.Logger.Error("failed to list reviews", zap.Error(err), zap.Int("artisan_id", userID))
		return fiber.ErrInternalServerError
	}

	authorIDs := make([]uint, 0, len(items))
	for i := range items {
		authorIDs = append(authorIDs, items[i].AuthorID)
	}
	authors, err := accounts.FindByIDs(db, authorIDs)
	if err != nil {
		ctx.Logger.Error("failed to load review authors", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	out := make([]fiber.Map, 0, len(items))
	for i := range items {
		r := &items[i]
		entry := fiber.Map{
			"id":         r.ID,
			"project_id": r.ProjectID,
			"rating":     r.Rating,
			"comment":    r.Comment,
			"created_at": r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if author := authors[r.AuthorID]; author != nil {
			entry["author"] = fiber.Map{"id": author.ID, "display_name": author.DisplayName}
		}
		out = append(out, entry)
	}

	return ctx.JSON(fiber.Map{
		"ok":       true,
		"reviews":  out,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}

type profileUpdateRequest struct {
	Headline        string `json:"headline"`
	Bio             string `json:"bio"`
	Location        string `json:"location"`
	YearsExperience int    `json:"years_experience"`
	HourlyRateCents int64  `json:"hourly_rate_cents"`
}

// ProfileUpdate replaces the current artisan's profile fields.
func ProfileUpdate(ctx *server.Context) error {
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

	var req profileUpdateRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	profile, err := artisans.UpdateProfile(ctx.Logger, db, user.ID, artisans.UpdateProfileParams{
		Headline:        req.Headline,
		Bio:             req.Bio,
		Location:        req.Location,
		YearsExperience: req.YearsExperience,
		HourlyRateCents: req.HourlyRateCents,
	})
	if err != nil {
		var vErr *artisans.ValidationError
		if errors.As(err, &vErr) {
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		}
		ctx.Logger.Error("profile update failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":      true,
		"artisan": artisanProfileJSON(ctx, profile, user),
	})
}

type specializationsUpdateRequest struct {
	Specializations []string `json:"specializations"`
}

// ProfileSpecializationsUpdate replaces the current artisan's specialization
// set with the given slugs.
func ProfileSpecializationsUpdate(ctx *server.Context) error {
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

	var req specializationsUpdateRequest
	if err := json.Unmarshal(ctx.Body(), &req); err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "invalid JSON payload")
	}

	profile, err := artisans.SetSpecializations(ctx.Logger, db, user.ID, req.Specializations)
	if err != nil {
		if errors.Is(err, artisans.ErrUnknownSpecialization) {
			return jsonError(ctx, fiber.StatusBadRequest, "unknown specialization")
		}
		ctx.Logger.Error("specializations update failed", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.JSON(fiber.Map{
		"ok":      true,
		"artisan": artisanProfileJSON(ctx, profile, user),
	})
}

var portfolioImageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// PortfolioImageCreate uploads one portfolio image for the current artisan.
// Expects multipart form data with an "image" file and an optional "caption".
func PortfolioImageCreate(ctx *server.Context) error {
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

	fileHeader, err := ctx.FormFile("image")
	if err != nil {
		return jsonError(ctx, fiber.StatusBadRequest, "image file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		ctx.Logger.Error("failed to open uploaded file", zap.Error(err))
		return fiber.ErrInternalServerError
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		ctx.Logger.Error("failed to read uploaded file", zap.Error(err))
		return fiber.ErrInternalServerError
	}

	// Sniff the real content type rather than trusting the client header.
	contentType := nethttp.DetectContentType(data)
	ext, ok := portfolioImageExtensions[contentType]
	if !ok {
		return jsonError(ctx, fiber.StatusBadRequest, "unsupported image type, use PNG, JPEG or WebP")
	}

	key := fmt.Sprintf("portfolio/%d/%s%s", user.ID, uuid.NewString(), ext)
	if err := ctx.Services.Store.Put(ctx.Context(), key, contentType, data); err != nil {
		ctx.Logger.Error("failed to store portfolio image", zap.Error(err), zap.String("key", key))
		return fiber.ErrInternalServerError
	}

	image, err := artisans.AddPortfolioImage(ctx.Logger, db, user.ID, key, ctx.FormValue("caption"))
	if err != nil {
		if delErr := ctx.Services.Store.Delete(ctx.Context(), key); delErr != nil {
			ctx.Logger.Error("failed to delete orphaned portfolio object", zap.Error(delErr), zap.String("key", key))
		}
		var vErr *artisans.ValidationError
		switch {
		case errors.As(err, &vErr):
			return jsonError(ctx, fiber.StatusBadRequest, vErr.Message)
		case errors.Is(err, artisans.ErrPortfolioFull):
			return jsonError(ctx, fiber.StatusConflict, "portfolio is full")
		}
		ctx.Logger.Error("failed to record portfolio image", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
		"ok":    true,
		"image": portfolioImageJSON(ctx, image),
	})
}

// PortfolioImageDelete removes one of the current artisan's portfolio images.
func PortfolioImageDelete(ctx *server.Context) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if user.Role != accounts.RoleArtisan {
		return jsonError(ctx, fiber.StatusForbidden, "artisan account required")
	}

	imageID, err := strconv.Atoi(ctx.Params("id"))
	if err != nil || imageID < 1 {
		return jsonError(ctx, fiber.StatusNotFound, "portfolio image not found")
	}

	db, err := ctx.DB()
	if err != nil {
		return jsonError(ctx, fiber.StatusInternalServerError, "database unavailable")
	}

	objectKey, err := artisans.RemovePortfolioImage(ctx.Logger, db, user.ID, uint(imageID))
	if err != nil {
		if errors.Is(err, artisans.ErrPortfolioImageNotFound) {
			return jsonError(ctx, fiber.StatusNotFound, "portfolio image not found")
		}
		ctx.Logger.Error("failed to remove portfolio image", zap.Error(err), zap.Uint("user_id", user.ID))
		return fiber.ErrInternalServerError
	}

	// The row is gone; a leftover object only wastes space, so log and move on.
	if err := ctx.Services.Store.Delete(ctx.Context(), objectKey); err != nil {
		ctx.Logger.Error("failed to delete portfolio object", zap.Error(err), zap.String("key", objectKey))
	}

	return ctx.JSON(fiber.Map{"ok": true})
}

func artisanCardJSON(profile *artisans.Profile, user *accounts.User) fiber.Map {
	slugs := make([]string, 0, len(profile.Specializations))
	for _, s := range profile.Specializations {
		slugs = append(slugs, s.Slug)
	}

	card := fiber.Map{
		"user_id":           profile.UserID,
		"headline":          profile.Headline,
		"location":          profile.Location,
		"years_experience":  profile.YearsExperience,
		"hourly_rate_cents": profile.HourlyRateCents,
		"rating": fiber.Map{
			"average": profile.RatingAverage,
			"count":   profile.RatingCount,
		},
		"specializations": slugs,
	}
	if user != nil {
		card["display_name"] = user.DisplayName
	}
	return card
}

func artisanProfileJSON(ctx *server.Context, profile *artisans.Profile, user *accounts.User) fiber.Map {
	out := artisanCardJSON(profile, user)
	out["bio"] = profile.Bio

	portfolio := make([]fiber.Map, 0, len(profile.PortfolioImages))
	for i := range profile.PortfolioImages {
		portfolio = append(portfolio, portfolioImageJSON(ctx, &profile.PortfolioImages[i]))
	}
	out["portfolio"] = portfolio
	return out
}

func portfolioImageJSON(ctx *server.Context, image *artisans.PortfolioImage) fiber.Map {
	return fiber.Map{
		"id":       image.ID,
		"url":      ctx.Services.Store.URL(image.ObjectKey),
		"caption":  image.Caption,
		"position": image.Position,
	}
}
