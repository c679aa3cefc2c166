package artisans

import (
	"strings"
	"time"
	"unicode"
)

// MaxPortfolioImages caps how many portfolio images a profile can hold.
const MaxPortfolioImages = 20

// Specialization is a woodworking discipline from the seeded catalog, e.g.
// chairs, tables, cabinetry.
type Specialization struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:120;uniqueIndex;not null"`
	Slug string `gorm:"size:120;uniqueIndex;not null"`
}

// Profile holds the public presence of an artisan. Every user with the
// artisan role has exactly one profile row, created at registration.
type Profile struct {
	ID              uint    `gorm:"primaryKey"`
	UserID          uint    `gorm:"uniqueIndex;not null"`
	Headline        string  `gorm:"size:160"`
	Bio             string  `gorm:"type:text"`
	Location        string  `gorm:"size:120"`
	YearsExperience int     `gorm:"not null;default:0"`
	HourlyRateCents int64   `gorm:"not null;default:0"`
	RatingAverage   float64 `gorm:"not null;default:0"`
	RatingCount     int     `gorm:"not null;default:0"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Specializations []Specialization `gorm:"many2many:profile_specializations"`
	PortfolioImages []PortfolioImage `gorm:"constraint:OnDelete:CASCADE"`
}

// PortfolioImage is a work sample attached to a profile. ObjectKey points
// into the object store; Position orders the gallery.
type PortfolioImage struct {
	ID        uint   `gorm:"primaryKey"`
	ProfileID uint   `gorm:"index;not null"`
	ObjectKey string `gorm:"size:255;not null"`
	Caption   string `gorm:"size:255"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slugify converts input string to a URL-friendly slug
func Slugify(input string) string {
	var builder strings.Builder
	builder.Grow(len(input))

	lastWasDash := false
	for _, r := range strings.ToLower(input) {
		switch {
		case r == '-' || r == '_':
			if !lastWasDash && builder.Len() > 0 {
				builder.WriteRune('-')
				lastWasDash = true
			}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
			lastWasDash = false
		case unicode.IsSpace(r):
			if !lastWasDash && builder.Len() > 0 {
				builder.WriteRune('-')
				lastWasDash = true
			}
		default:
			// Skip any remaining characters.
		}
	}

	return strings.Trim(builder.String(), "-")
}
