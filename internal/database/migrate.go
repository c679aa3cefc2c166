package database

import (
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/projects"
	"github.com/darglk/chairai-sub002/internal/proposals"
	"github.com/darglk/chairai-sub002/internal/reviews"
)

// Migrate performs the schema migration for all application models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&accounts.User{},
		&accounts.Settings{},
		&artisans.Specialization{},
		&artisans.Profile{},
		&artisans.PortfolioImage{},
		&images.GeneratedImage{},
		&projects.Project{},
		&proposals.Proposal{},
		&reviews.Review{},
	)
}
