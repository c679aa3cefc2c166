package proposals

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
	"github.com/darglk/chairai-sub002/internal/projects"
)

// Proposal statuses.
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusRejected  = "rejected"
	StatusWithdrawn = "withdrawn"
)

var (
	ErrProposalNotFound = errors.New("proposal not found")
	ErrAlreadyProposed  = errors.New("you already have an active proposal on this project")
	ErrProjectNotOpen   = errors.New("project is not open for proposals")
	ErrNotPending       = errors.New("proposal is no longer pending")
	ErrNotProjectOwner  = errors.New("only the project owner may do this")
	ErrNotProposer      = errors.New("only the proposing artisan may do this")
)

// Proposal is an artisan's quote on an open project. At most one
// non-withdrawn proposal per artisan per project.
type Proposal struct {
	ID            uint   `gorm:"primaryKey"`
	ProjectID     uint   `gorm:"index;not null"`
	ArtisanID     uint   `gorm:"index;not null"`
	Message       string `gorm:"type:text"`
	PriceCents    int64  `gorm:"not null"`
	EstimatedDays int    `gorm:"not null"`
	Status        string `gorm:"size:20;not null;default:pending;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// SubmitParams holds parameters for submitting a proposal
type SubmitParams struct {
	ProjectID     uint
	ArtisanID     uint
	Message       string
	PriceCents    int64
	EstimatedDays int
}

// Submit validates and records a new proposal on an open project.
func Submit(logger *zap.Logger, db *gorm.DB, params SubmitParams) (*Proposal, error) {
	message := strings.TrimSpace(params.Message)
	if len(message) > 5000 {
		return nil, &ValidationError{Field: "message", Message: "Message must be 5000 characters or fewer"}
	}
	if params.PriceCents <= 0 {
		return nil, &ValidationError{Field: "price_cents", Message: "Price must be greater than zero"}
	}
	if params.EstimatedDays < 1 || params.EstimatedDays > 730 {
		return nil, &ValidationError{Field: "estimated_days", Message: "Estimated days must be between 1 and 730"}
	}

	project, err := projects.FindByID(db, params.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != projects.StatusOpen {
		return nil, ErrProjectNotOpen
	}

	proposal := &Proposal{
		ProjectID:     params.ProjectID,
		ArtisanID:     params.ArtisanID,
		Message:       message,
		PriceCents:    params.PriceCents,
		EstimatedDays: params.EstimatedDays,
		Status:        StatusPending,
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		// Uniqueness among non-withdrawn proposals, checked inside the
		// transaction so concurrent submissions cannot both pass.
		var existing int64
		err := tx.Model(&Proposal{}).
			Where("project_id = ? AND artisan_id = ? AND status <> ?", params.ProjectID, params.ArtisanID, StatusWithdrawn).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyProposed
		}
		return tx.Create(proposal).Error
	}); err != nil {
		if errors.Is(err, ErrAlreadyProposed) {
			return nil, ErrAlreadyProposed
		}
		logger.Error("failed to submit proposal", zap.Error(err), zap.Uint("project_id", params.ProjectID), zap.Uint("artisan_id", params.ArtisanID))
		return nil, err
	}

	return proposal, nil
}

// FindByID retrieves a proposal by ID.
func FindByID(db *gorm.DB, id uint) (*Proposal, error) {
	var proposal Proposal
	if err := db.Where("id = ?", id).First(&proposal).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}

// ListByProject returns all proposals on a project, pending first, newest
// within each status.
func ListByProject(db *gorm.DB, projectID uint) ([]Proposal, error) {
	var list []Proposal
	err := db.
		Where("project_id = ?", projectID).
		Order("CASE status WHEN 'pending' THEN 0 WHEN 'accepted' THEN 1 ELSE 2 END, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListByArtisan returns the artisan's own proposals, newest first.
func ListByArtisan(db *gorm.DB, artisanID uint) ([]Proposal, error) {
	var list []Proposal
	err := db.
		Where("artisan_id = ?", artisanID).
		Order("id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Accept marks the proposal accepted, rejects its pending siblings, and moves
// the project to in_progress, all in one transaction. Only the project owner
// may accept, only on an open project, only a pending proposal.
func Accept(logger *zap.Logger, db *gorm.DB, ownerID uint, proposalID uint) (*Proposal, error) {
	var accepted *Proposal

	err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		var proposal Proposal
		if err := tx.Where("id = ?", proposalID).First(&proposal).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrProposalNotFound
			}
			return err
		}

		var project projects.Project
		if err := tx.Where("id = ?", proposal.ProjectID).First(&project).Error; err != nil {
			return err
		}
		if project.ClientID != ownerID {
			return ErrNotProjectOwner
		}
		if project.Status != projects.StatusOpen {
			return ErrProjectNotOpen
		}
		if proposal.Status != StatusPending {
			return ErrNotPending
		}

		if err := tx.Model(&Proposal{}).Where("id = ?", proposal.ID).Update("status", StatusAccepted).Error; err != nil {
			return err
		}
		if err := tx.Model(&Proposal{}).
			Where("project_id = ? AND id <> ? AND status = ?", proposal.ProjectID, proposal.ID, StatusPending).
			Update("status", StatusRejected).Error; err != nil {
			return err
		}
		if err := tx.Model(&projects.Project{}).Where("id = ?", project.ID).Update("status", projects.StatusInProgress).Error; err != nil {
			return err
		}

		proposal.Status = StatusAccepted
		accepted = &proposal
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProposalNotFound),
			errors.Is(err, ErrNotProjectOwner),
			errors.Is(err, ErrProjectNotOpen),
			errors.Is(err, ErrNotPending):
			return nil, err
		}
		logger.Error("failed to accept proposal", zap.Error(err), zap.Uint("proposal_id", proposalID))
		return nil, err
	}

	return accepted, nil
}

// Withdraw retracts the artisan's own pending proposal.
func Withdraw(logger *zap.Logger, db *gorm.DB, artisanID uint, proposalID uint) (*Proposal, error) {
	var withdrawn *Proposal

	err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		var proposal Proposal
		if err := tx.Where("id = ?", proposalID).First(&proposal).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return ErrProposalNotFound
			}
			return err
		}
		if proposal.ArtisanID != artisanID {
			return ErrNotProposer
		}
		if proposal.Status != StatusPending {
			return ErrNotPending
		}

		if err := tx.Model(&Proposal{}).Where("id = ?", proposal.ID).Update("status", StatusWithdrawn).Error; err != nil {
			return err
		}

		proposal.Status = StatusWithdrawn
		withdrawn = &proposal
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrProposalNotFound),
			errors.Is(err, ErrNotProposer),
			errors.Is(err, ErrNotPending):
			return nil, err
		}
		logger.Error("failed to withdraw proposal", zap.Error(err), zap.Uint("proposal_id", proposalID))
		return nil, err
	}

	return withdrawn, nil
}

// AcceptedForProject returns the accepted proposal on a project, if any.
func AcceptedForProject(db *gorm.DB, projectID uint) (*Proposal, error) {
	var proposal Proposal
	err := db.Where("project_id = ? AND status = ?", projectID, StatusAccepted).First(&proposal).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrProposalNotFound
		}
		return nil, err
	}
	return &proposal, nil
}
