package images

import (
	"time"
)

// GeneratedImage records one AI-generated furniture concept. UserID is nil
// for anonymous generations, which the retention job removes after a
// configured period.
type GeneratedImage struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    *uint  `gorm:"index"`
	Prompt    string `gorm:"type:text;not null"`
	ObjectKey string `gorm:"size:255;not null"`
	Model     string `gorm:"size:60"`
	Size      string `gorm:"size:20"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
