package testsupport

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/projects"
	"github.com/darglk/chairai-sub002/internal/proposals"
	"github.com/darglk/chairai-sub002/internal/reviews"
)

// SetupTestDB creates an in-memory SQLite database for testing
// with all models migrated. This is useful for integration tests
// that need a real database without external dependencies.
func SetupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to open test database")

	// Migrate all models
	err = db.AutoMigrate(
		// Accounts
		&accounts.User{},
		&accounts.Settings{},
		// Artisans
		&artisans.Specialization{},
		&artisans.Profile{},
		&artisans.PortfolioImage{},
		// Images
		&images.GeneratedImage{},
		// Projects
		&projects.Project{},
		// Proposals
		&proposals.Proposal{},
		// Reviews
		&reviews.Review{},
	)
	require.NoError(t, err, "failed to migrate test database")

	return db
}
