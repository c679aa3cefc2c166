package projects

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrNotOwner          = errors.New("only the project owner may do this")
	ErrInvalidTransition = errors.New("project status does not allow this")
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// CreateParams holds parameters for posting a new project
type CreateParams struct {
	ClientID         uint
	Title            string
	Description      string
	BudgetCents      int64
	SpecializationID *uint
	GeneratedImageID *uint
}

// ListParams filters and pages the project board.
type ListParams struct {
	// Status filters by lifecycle state; empty means open projects only,
	// matching the public board.
	Status string
	// ClientID restricts to one client's projects (any status).
	ClientID uint
	// SpecializationID filters by requested discipline.
	SpecializationID uint
	Page             int
	PerPage          int
}

// Create validates and posts a new commission.
func Create(logger *zap.Logger, db *gorm.DB, params CreateParams) (*Project, error) {
	title := strings.TrimSpace(params.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "Title is required"}
	}
	if len(title) > 160 {
		return nil, &ValidationError{Field: "title", Message: "Title must be 160 characters or fewer"}
	}
	if len(params.Description) > 10000 {
		return nil, &ValidationError{Field: "description", Message: "Description must be 10000 characters or fewer"}
	}
	if params.BudgetCents < 0 {
		return nil, &ValidationError{Field: "budget_cents", Message: "Budget cannot be negative"}
	}

	if params.SpecializationID != nil {
		var count int64
		if err := db.Model(&artisans.Specialization{}).Where("id = ?", *params.SpecializationID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			return nil, &ValidationError{Field: "specialization_id", Message: "Unknown specialization"}
		}
	}

	if params.GeneratedImageID != nil {
		image, err := images.FindByID(db, *params.GeneratedImageID)
		if err != nil {
			if errors.Is(err, images.ErrImageNotFound) {
				return nil, &ValidationError{Field: "generated_image_id", Message: "Unknown reference image"}
			}
			return nil, err
		}
		// Anonymous images are attachable by anyone; owned images only by
		// their owner.
		if image.UserID != nil && *image.UserID != params.ClientID {
			return nil, &ValidationError{Field: "generated_image_id", Message: "Reference image belongs to another account"}
		}
	}

	project := &Project{
		ClientID:         params.ClientID,
		Title:            title,
		Description:      params.Description,
		BudgetCents:      params.BudgetCents,
		SpecializationID: params.SpecializationID,
		GeneratedImageID: params.GeneratedImageID,
		Status:           StatusOpen,
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		return tx.Create(project).Error
	}); err != nil {
		logger.Error("failed to create project", zap.Error(err), zap.Uint("client_id", params.ClientID))
		return nil, err
	}

	return project, nil
}

// FindByPublicID retrieves a project by its public identifier.
func FindByPublicID(db *gorm.DB, publicID string) (*Project, error) {
	var project Project
	if err := db.Where("public_id = ?", publicID).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// FindByID retrieves a project by its numeric identifier.
func FindByID(db *gorm.DB, id uint) (*Project, error) {
	var project Project
	if err := db.Where("id = ?", id).First(&project).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

// List pages through projects. Without an explicit status or client filter it
// returns the public board of open projects, newest first.
func List(db *gorm.DB, params ListParams) ([]Project, int64, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := db.Model(&Project{})

	switch {
	case params.ClientID != 0:
		query = query.Where("client_id = ?", params.ClientID)
		if params.Status != "" {
			query = query.Where("status = ?", params.Status)
		}
	case params.Status != "":
		query = query.Where("status = ?", params.Status)
	default:
		query = query.Where("status = ?", StatusOpen)
	}

	if params.SpecializationID != 0 {
		query = query.Where("specialization_id = ?", params.SpecializationID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []Project
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

// Complete moves an in-progress project to completed. Owner only.
func Complete(logger *zap.Logger, db *gorm.DB, clientID uint, publicID string) (*Project, error) {
	return transition(logger, db, clientID, publicID, StatusCompleted, []string{StatusInProgress})
}

// Cancel moves an open or in-progress project to cancelled. Owner only.
func Cancel(logger *zap.Logger, db *gorm.DB, clientID uint, publicID string) (*Project, error) {
	return transition(logger, db, clientID, publicID, StatusCancelled, []string{StatusOpen, StatusInProgress})
}

func transition(logger *zap.Logger, db *gorm.DB, clientID uint, publicID, target string, allowedFrom []string) (*Project, error) {
	project, err := FindByPublicID(db, publicID)
	if err != nil {
		return nil, err
	}
	if project.ClientID != clientID {
		return nil, ErrNotOwner
	}

	allowed := false
	for _, status := range allowedFrom {
		if project.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidTransition
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		// Re-check inside the transaction so concurrent transitions cannot
		// both pass the guard.
		var current Project
		if err := tx.Where("id = ?", project.ID).First(&current).Error; err != nil {
			return err
		}
		ok := false
		for _, status := range allowedFrom {
			if current.Status == status {
				ok = true
				break
			}
		}
		if !ok {
			return ErrInvalidTransition
		}
		return tx.Model(&Project{}).Where("id = ?", project.ID).Update("status", target).Error
	}); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, ErrInvalidTransition
		}
		logger.Error("failed to update project status", zap.Error(err), zap.String("public_id", publicID), zap.String("target", target))
		return nil, err
	}

	project.Status = target
	return project, nil
}
