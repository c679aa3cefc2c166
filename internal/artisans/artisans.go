package artisans

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
)

var (
	ErrProfileNotFound        = errors.New("artisan profile not found")
	ErrPortfolioImageNotFound = errors.New("portfolio image not found")
	ErrPortfolioFull          = errors.New("portfolio image limit reached")
	ErrUnknownSpecialization  = errors.New("unknown specialization")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpdateProfileParams holds parameters for updating an artisan profile
type UpdateProfileParams struct {
	Headline        string
	Bio             string
	Location        string
	YearsExperience int
	HourlyRateCents int64
}

// ListParams filters and pages the artisan directory.
type ListParams struct {
	SpecializationSlug string
	MinRating          float64
	Page               int
	PerPage            int
}

// FindProfileByUserID loads a profile with its specializations and portfolio.
func FindProfileByUserID(db *gorm.DB, userID uint) (*Profile, error) {
	var profile Profile
	err := db.
		Preload("Specializations").
		Preload("PortfolioImages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		Where("user_id = ?", userID).
		First(&profile).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return &profile, nil
}

// UpdateProfile validates and persists the editable profile fields.
func UpdateProfile(logger *zap.Logger, db *gorm.DB, userID uint, params UpdateProfileParams) (*Profile, error) {
	headline := strings.TrimSpace(params.Headline)
	if len(headline) > 160 {
		return nil, &ValidationError{Field: "headline", Message: "Headline must be 160 characters or fewer"}
	}
	if len(params.Bio) > 5000 {
		return nil, &ValidationError{Field: "bio", Message: "Bio must be 5000 characters or fewer"}
	}
	location := strings.TrimSpace(params.Location)
	if len(location) > 120 {
		return nil, &ValidationError{Field: "location", Message: "Location must be 120 characters or fewer"}
	}
	if params.YearsExperience < 0 || params.YearsExperience > 80 {
		return nil, &ValidationError{Field: "years_experience", Message: "Years of experience must be between 0 and 80"}
	}
	if params.HourlyRateCents < 0 {
		return nil, &ValidationError{Field: "hourly_rate_cents", Message: "Hourly rate cannot be negative"}
	}

	profile, err := FindProfileByUserID(db, userID)
	if err != nil {
		return nil, err
	}

	profile.Headline = headline
	profile.Bio = params.Bio
	profile.Location = location
	profile.YearsExperience = params.YearsExperience
	profile.HourlyRateCents = params.HourlyRateCents

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
			"headline":          profile.Headline,
			"bio":               profile.Bio,
			"location":          profile.Location,
			"years_experience":  profile.YearsExperience,
			"hourly_rate_cents": profile.HourlyRateCents,
		}).Error
	}); err != nil {
		logger.Error("failed to update profile", zap.Error(err), zap.Uint("user_id", userID))
		return nil, err
	}

	return profile, nil
}

// SetSpecializations replaces the profile's specialization set with the
// catalog entries named by the given slugs.
func SetSpecializations(logger *zap.Logger, db *gorm.DB, userID uint, slugs []string) (*Profile, error) {
	profile, err := FindProfileByUserID(db, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(slugs))
	cleaned := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		slug = strings.ToLower(strings.TrimSpace(slug))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		cleaned = append(cleaned, slug)
	}

	var specializations []Specialization
	if len(cleaned) > 0 {
		if err := db.Where("slug IN ?", cleaned).Find(&specializations).Error; err != nil {
			return nil, err
		}
		if len(specializations) != len(cleaned) {
			return nil, ErrUnknownSpecialization
		}
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		assoc := tx.Model(profile).Association("Specializations")
		if len(specializations) == 0 {
			return assoc.Clear()
		}
		return assoc.Replace(specializations)
	}); err != nil {
		logger.Error("failed to set specializations", zap.Error(err), zap.Uint("user_id", userID))
		return nil, err
	}

	profile.Specializations = specializations
	return profile, nil
}

// AddPortfolioImage appends a work sample to the profile gallery.
func AddPortfolioImage(logger *zap.Logger, db *gorm.DB, userID uint, objectKey, caption string) (*PortfolioImage, error) {
	if strings.TrimSpace(objectKey) == "" {
		return nil, &ValidationError{Field: "object_key", Message: "Object key is required"}
	}
	if len(caption) > 255 {
		return nil, &ValidationError{Field: "caption", Message: "Caption must be 255 characters or fewer"}
	}

	profile, err := FindProfileByUserID(db, userID)
	if err != nil {
		return nil, err
	}

	if len(profile.PortfolioImages) >= MaxPortfolioImages {
		return nil, ErrPortfolioFull
	}

	position := 0
	for _, img := range profile.PortfolioImages {
		if img.Position >= position {
			position = img.Position + 1
		}
	}

	image := &PortfolioImage{
		ProfileID: profile.ID,
		ObjectKey: objectKey,
		Caption:   strings.TrimSpace(caption),
		Position:  position,
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		return tx.Create(image).Error
	}); err != nil {
		logger.Error("failed to add portfolio image", zap.Error(err), zap.Uint("user_id", userID))
		return nil, err
	}

	return image, nil
}

// RemovePortfolioImage deletes a gallery entry owned by the user and returns
// its object key so the caller can remove the stored bytes.
func RemovePortfolioImage(logger *zap.Logger, db *gorm.DB, userID uint, imageID uint) (string, error) {
	profile, err := FindProfileByUserID(db, userID)
	if err != nil {
		return "", err
	}

	var image PortfolioImage
	if err := db.Where("id = ? AND profile_id = ?", imageID, profile.ID).First(&image).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return "", ErrPortfolioImageNotFound
		}
		return "", err
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		return tx.Delete(&PortfolioImage{}, image.ID).Error
	}); err != nil {
		logger.Error("failed to remove portfolio image", zap.Error(err), zap.Uint("image_id", imageID))
		return "", err
	}

	return image.ObjectKey, nil
}

// ListSpecializations returns the seeded catalog ordered by name.
func ListSpecializations(db *gorm.DB) ([]Specialization, error) {
	var specializations []Specialization
	if err := db.Order("name ASC").Find(&specializations).Error; err != nil {
		return nil, err
	}
	return specializations, nil
}

// List pages through the artisan directory, optionally filtered by
// specialization slug and minimum rating. Returns profiles ordered by rating.
func List(db *gorm.DB, params ListParams) ([]Profile, int64, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := db.Model(&Profile{})

	if slug := strings.ToLower(strings.TrimSpace(params.SpecializationSlug)); slug != "" {
		query = query.
			Joins("JOIN profile_specializations ps ON ps.profile_id = profiles.id").
			Joins("JOIN specializations s ON s.id = ps.specialization_id").
			Where("s.slug = ?", slug)
	}

	if params.MinRating > 0 {
		query = query.Where("rating_average >= ?", params.MinRating)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var profiles []Profile
	err := query.
		Preload("Specializations").
		Order("rating_average DESC, rating_count DESC, profiles.id ASC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&profiles).Error
	if err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

// ApplyRatingDelta folds one new review rating into the profile aggregates.
// Runs inside the caller's transaction so the review row and the aggregate
// stay consistent.
func ApplyRatingDelta(tx *gorm.DB, artisanUserID uint, rating int) error {
	var profile Profile
	if err := tx.Where("user_id = ?", artisanUserID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrProfileNotFound
		}
		return err
	}

	newCount := profile.RatingCount + 1
	newAverage := (profile.RatingAverage*float64(profile.RatingCount) + float64(rating)) / float64(newCount)

	return tx.Model(&Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
		"rating_average": newAverage,
		"rating_count":   newCount,
	}).Error
}
