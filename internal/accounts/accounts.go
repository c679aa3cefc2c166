package accounts

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
)

// Roles a user can register with.
const (
	RoleClient  = "client"
	RoleArtisan = "artisan"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrPasswordMismatch   = errors.New("current password is incorrect")
	ErrMissingFields      = errors.New("required fields are missing")
	ErrEmailTaken         = errors.New("email is already registered")
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// User is a registered account: a client commissioning furniture or an
// artisan offering to build it.
type User struct {
	ID           uint       `gorm:"primaryKey"`
	Email        string     `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string     `gorm:"size:255;not null"`
	DisplayName  string     `gorm:"size:120;not null"`
	Role         string     `gorm:"size:20;not null;index"`
	LastLoginAt  *time.Time `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Settings stores global application configuration as key-value pairs.
type Settings struct {
	ID        uint      `gorm:"primaryKey"`
	Key       string    `gorm:"uniqueIndex;not null"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:milli"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime:milli"`
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RegisterParams holds parameters for creating a new account
type RegisterParams struct {
	Email       string
	Password    string
	DisplayName string
	Role        string
}

// Register validates the parameters and creates a new user. Artisan accounts
// get their empty profile row in the same transaction so every artisan always
// has a profile.
func Register(logger *zap.Logger, db *gorm.DB, params RegisterParams) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))
	if email == "" || !emailRegex.MatchString(email) {
		return nil, &ValidationError{Field: "email", Message: "A valid email address is required"}
	}

	if len(params.Password) < 8 {
		return nil, ErrWeakPassword
	}

	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return nil, &ValidationError{Field: "display_name", Message: "Display name is required"}
	}
	if len(displayName) > 120 {
		return nil, &ValidationError{Field: "display_name", Message: "Display name must be 120 characters or fewer"}
	}

	role := strings.ToLower(strings.TrimSpace(params.Role))
	if role != RoleClient && role != RoleArtisan {
		return nil, &ValidationError{Field: "role", Message: "Role must be client or artisan"}
	}

	var existing int64
	if err := db.Model(&User{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		logger.Error("database query failed during registration", zap.Error(err), zap.String("email", email))
		return nil, err
	}
	if existing > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to generate password hash", zap.Error(err))
		return nil, err
	}

	user := &User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
		Role:         role,
	}

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if user.Role == RoleArtisan {
			profile := &artisans.Profile{UserID: user.ID}
			if err := tx.Create(profile).Error; err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		logger.Error("failed to create user", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	return user, nil
}

// FindByEmail retrieves a user by email address
func FindByEmail(db *gorm.DB, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by ID
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByIDs retrieves users by ID, keyed by ID. Missing IDs are absent from
// the result rather than an error.
func FindByIDs(db *gorm.DB, ids []uint) (map[uint]*User, error) {
	result := make(map[uint]*User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = &users[i]
	}
	return result, nil
}

// Authenticate verifies credentials and updates last login timestamp
func Authenticate(logger *zap.Logger, db *gorm.DB, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrInvalidCredentials
		}
		logger.Error("database query failed during authentication", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("id = ?", user.ID).Update("last_login_at", &now).Error
	}); err != nil {
		logger.Error("failed to update last login timestamp", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	return &user, nil
}

// ChangePassword validates and updates user password
func ChangePassword(logger *zap.Logger, db *gorm.DB, userID uint, currentPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}

	var user User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return ErrUserNotFound
		}
		logger.Error("database query failed during password change", zap.Error(err), zap.Uint("user_id", userID))
		return err
	}

	// Verify current password
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrPasswordMismatch
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("failed to generate password hash", zap.Error(err))
		return err
	}

	user.PasswordHash = string(hash)

	if err := dbtxn.WithRetry(logger, db, func(tx *gorm.DB) error {
		return tx.Save(&user).Error
	}); err != nil {
		logger.Error("failed to update password", zap.Error(err), zap.Uint("user_id", userID))
		return err
	}

	return nil
}
