package projects

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"gorm.io/gorm"
)

// Project statuses.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Project is a furniture commission posted by a client. Artisans submit
// proposals against open projects; accepting one moves the project to
// in_progress.
type Project struct {
	ID               uint   `gorm:"primaryKey"`
	PublicID         string `gorm:"size:20;uniqueIndex;not null"`
	ClientID         uint   `gorm:"index;not null"`
	Title            string `gorm:"size:160;not null"`
	Description      string `gorm:"type:text"`
	BudgetCents      int64  `gorm:"not null;default:0"`
	SpecializationID *uint  `gorm:"index"`
	GeneratedImageID *uint  `gorm:"index"`
	Status           string `gorm:"size:20;not null;default:open;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BeforeCreate ensures generated identifiers exist for new projects.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.PublicID == "" {
		p.PublicID = GeneratePublicID()
	}
	if p.Status == "" {
		p.Status = StatusOpen
	}
	return nil
}

// GeneratePublicID generates a 20-character hex public ID for a project
func GeneratePublicID() string {
	buf := make([]byte, 10) // 10 bytes = 20 hex characters
	rand.Read(buf)
	return hex.EncodeToString(buf)
}
