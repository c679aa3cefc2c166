package reviews

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
	"github.com/darglk/chairai-sub002/internal/projects"
	"github.com/darglk/chairai-sub002/internal/proposals"
)

var (
	ErrAlreadyReviewed     = errors.New("project already has a review")
	ErrProjectNotCompleted = errors.New("only completed projects can be reviewed")
	ErrNotProjectOwner     = errors.New("only the project owner may review it")
	ErrNoAcceptedProposal  = errors.New("project has no accepted proposal to review")
)

// Review is the client's rating of the artisan after a completed project.
// One review per project; it targets the accepted proposal's artisan.
type Review struct {
	ID        uint   `gorm:"primaryKey"`
	ProjectID uint   `gorm:"uniqueIndex;not null"`
	AuthorID  uint   `gorm:"index;not null"`
	ArtisanID uint   `gorm:"index;not null"`
	Rating    int    `gorm:"not null"`
	Comment   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CreateParams holds parameters for writing a review
type CreateParams struct {
	ProjectID uint
	AuthorID  uint
	Rating    int
	Comment   string
}

// Create validates and writes the review, folding the rating into the
// artisan's aggregates in the same transaction.
func Create(logger *zap.Logger, db *gorm.DB, params CreateParams) (*Review, error) {
	if params.Rating < 1 || params.Rating > 5 {
		return nil, &ValidationError{Field: "rating", Message: "Rating must be between 1 and 5"}
	}
	comment := strings.TrimSpace(params.Comment)
	if len(comment) > 2000 {
		return nil, &ValidationError{Field: "comment", Message: "Comment must be 2000 characters or fewer"}
	}

	project, err := projects.FindByID(db, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != params.AuthorID {
		return nil, ErrNotProjectOwner
	}
	if project.Status != projects.StatusCompleted {
		return nil, ErrProjectNotCompleted
	}

	accepted, err := proposals.AcceptedForProject(db, project.ID)
	if err != nil {
		if errors.Is(err, proposals.ErrProposalNotFound) {
			return nil, ErrNoAcceptedProposal
		}
		return nil, err
	}

	review := &Review{
		ProjectID: project.ID,
		AuthorID:  params.AuthorID,
		ArtisanID: accepted.ArtisanID,
		Rating:    params.Rating,
		Comment:   comment,
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Review{}).Where("project_id = ?", project.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyReviewed
		}
		if err := tx.Create(review).Error; err != nil {
			return err
		}
		return artisans.ApplyRatingDelta(tx, review.ArtisanID, review.Rating)
	}); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return nil, ErrAlreadyReviewed
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrAlreadyReviewed
		}
		logger.Error("failed to create review", zap.Error(err), zap.Uint("project_id", project.ID))
		return nil, err
	}

	return review, nil
}

// ListByArtisan pages through reviews received by an artisan, newest first.
func ListByArtisan(db *gorm.DB, artisanUserID uint, page, perPage int) ([]Review, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := db.Model(&Review{}).Where("artisan_id = ?", artisanUserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []Review
	err := query.
		Order("id DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

// FindByProjectID returns the review on a project, if any.
func FindByProjectID(db *gorm.DB, projectID uint) (*Review, error) {
	var review Review
	if err := db.Where("project_id = ?", projectID).First(&review).Error; err != nil {
		return nil, err
	}
	return &review, nil
}
