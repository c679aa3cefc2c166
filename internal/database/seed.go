package database

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/projects"
)

// specializationCatalog is the fixed set of woodworking disciplines artisans
// can list under. Seeded once; slugs are stable identifiers.
var specializationCatalog = []string{
	"Chairs",
	"Tables",
	"Cabinetry",
	"Bed Frames",
	"Shelving",
	"Outdoor Furniture",
	"Restoration",
	"Upholstery",
}

// Seed populates the database with the specialization catalog and sample
// data for development/testing.
func Seed(db *gorm.DB) error {
	if err := SeedSpecializations(db); err != nil {
		return err
	}

	// Create demo accounts if none exist
	var userCount int64
	if err := db.Model(&accounts.User{}).Count(&userCount).Error; err != nil {
		return fmt.Errorf("count users: %w", err)
	}

	if userCount > 0 {
		fmt.Println("✓ Users already exist, skipping demo data")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("chairai-demo"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	client := &accounts.User{
		Email:        "client@chairai.local",
		PasswordHash: string(hash),
		DisplayName:  "Demo Client",
		Role:         accounts.RoleClient,
		LastLoginAt:  &now,
	}
	if err := db.Create(client).Error; err != nil {
		return fmt.Errorf("create demo client: %w", err)
	}
	fmt.Println("✓ Created demo client: client@chairai.local / chairai-demo")

	demoArtisans := []struct {
		email    string
		name     string
		headline string
		location string
		years    int
		rate     int64
		slugs    []string
	}{
		{
			email:    "oak@chairai.local",
			name:     "Oak & Grain Studio",
			headline: "Hand-cut joinery, Scandinavian lines",
			location: "Portland, OR",
			years:    12,
			rate:     9500,
			slugs:    []string{"chairs", "tables"},
		},
		{
			email:    "walnut@chairai.local",
			name:     "Walnut Works",
			headline: "Mid-century reproductions and restorations",
			location: "Asheville, NC",
			years:    8,
			rate:     8000,
			slugs:    []string{"restoration", "cabinetry"},
		},
	}

	for _, a := range demoArtisans {
		user := &accounts.User{
			Email:        a.email,
			PasswordHash: string(hash),
			DisplayName:  a.name,
			Role:         accounts.RoleArtisan,
			LastLoginAt:  &now,
		}
		if err := db.Create(user).Error; err != nil {
			return fmt.Errorf("create demo artisan %s: %w", a.email, err)
		}

		profile := &artisans.Profile{
			UserID:          user.ID,
			Headline:        a.headline,
			Location:        a.location,
			YearsExperience: a.years,
			HourlyRateCents: a.rate,
		}
		if err := db.Create(profile).Error; err != nil {
			return fmt.Errorf("create demo profile %s: %w", a.email, err)
		}

		var specs []artisans.Specialization
		if err := db.Where("slug IN ?", a.slugs).Find(&specs).Error; err != nil {
			return fmt.Errorf("load specializations for %s: %w", a.email, err)
		}
		if err := db.Model(profile).Association("Specializations").Replace(specs); err != nil {
			return fmt.Errorf("assign specializations for %s: %w", a.email, err)
		}
	}
	fmt.Printf("✓ Created %d demo artisans\n", len(demoArtisans))

	// Sample open project from the demo client
	var chairSpec artisans.Specialization
	if err := db.Where("slug = ?", "chairs").First(&chairSpec).Error; err != nil {
		return fmt.Errorf("load chairs specialization: %w", err)
	}

	project := &projects.Project{
		ClientID:         client.ID,
		Title:            "Walnut dining chairs, set of six",
		Description:      "Looking for six dining chairs in black walnut with woven seats. Inspired by a generated concept, happy to share details.",
		BudgetCents:      420000,
		SpecializationID: &chairSpec.ID,
		Status:           projects.StatusOpen,
	}
	if err := db.Create(project).Error; err != nil {
		return fmt.Errorf("create demo project: %w", err)
	}
	fmt.Println("✓ Created demo project")

	fmt.Println("\n✅ Database seeded successfully!")
	return nil
}

// SeedSpecializations ensures the specialization catalog exists. Runs at
// every startup; a populated catalog is left untouched.
func SeedSpecializations(db *gorm.DB) error {
	var count int64
	if err := db.Model(&artisans.Specialization{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count specializations: %w", err)
	}

	if count > 0 {
		return nil
	}

	for _, name := range specializationCatalog {
		spec := &artisans.Specialization{
			Name: name,
			Slug: artisans.Slugify(name),
		}
		if err := db.Create(spec).Error; err != nil {
			return fmt.Errorf("create specialization %s: %w", name, err)
		}
	}
	fmt.Printf("✓ Seeded %d specializations\n", len(specializationCatalog))
	return nil
}
