package images

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
	"github.com/darglk/chairai-sub002/internal/storage"
)

// MaxPromptLength caps the prompt accepted for generation.
const MaxPromptLength = 2000

var ErrImageNotFound = errors.New("generated image not found")

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// GenerateParams holds parameters for one generation request.
type GenerateParams struct {
	// UserID is nil for anonymous requests.
	UserID *uint
	Prompt string
}

// Service generates furniture concept images, stores the bytes, and records
// the row. Rate limiting happens in the HTTP layer before the service runs.
type Service struct {
	logger    *zap.Logger
	generator Generator
	store     storage.ObjectStore
}

// NewService wires a generator and an object store.
func NewService(logger *zap.Logger, generator Generator, store storage.ObjectStore) *Service {
	return &Service{
		logger:    logger,
		generator: generator,
		store:     store,
	}
}

// Generate validates the prompt, calls the upstream model, persists the image
// bytes under a fresh object key, and records the generation.
func (s *Service) Generate(ctx context.Context, db *gorm.DB, params GenerateParams) (*GeneratedImage, error) {
	prompt := strings.TrimSpace(params.Prompt)
	if prompt == "" {
		return nil, &ValidationError{Field: "prompt", Message: "Prompt is required"}
	}
	if len(prompt) > MaxPromptLength {
		return nil, &ValidationError{Field: "prompt", Message: fmt.Sprintf("Prompt must be %d characters or fewer", MaxPromptLength)}
	}

	out, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("generated/%s.png", uuid.NewString())
	if err := s.store.Put(ctx, key, "image/png", out.Data); err != nil {
		s.logger.Error("failed to store generated image", zap.Error(err), zap.String("key", key))
		return nil, fmt.Errorf("images: store: %w", err)
	}

	image := &GeneratedImage{
		UserID:    params.UserID,
		Prompt:    prompt,
		ObjectKey: key,
		Model:     out.Model,
		Size:      out.Size,
	}

	if err := dbtxn.WithRetry(s.logger, db, func(tx *gorm.DB) error {
		return tx.Create(image).Error
	}); err != nil {
		// Keep the store consistent with the database.
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error("failed to delete orphaned object", zap.Error(delErr), zap.String("key", key))
		}
		s.logger.Error("failed to record generated image", zap.Error(err))
		return nil, err
	}

	return image, nil
}

// URL returns the public URL for a generated image.
func (s *Service) URL(image *GeneratedImage) string {
	return s.store.URL(image.ObjectKey)
}

// Store exposes the underlying object store.
func (s *Service) Store() storage.ObjectStore {
	return s.store
}

// FindByID retrieves a generated image by ID.
func FindByID(db *gorm.DB, id uint) (*GeneratedImage, error) {
	var image GeneratedImage
	if err := db.Where("id = ?", id).First(&image).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &image, nil
}

// ListByUser pages through a user's generation history, newest first.
func ListByUser(db *gorm.DB, userID uint, page, perPage int) ([]GeneratedImage, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := db.Model(&GeneratedImage{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []GeneratedImage
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
