package jobs

import (
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/images"
	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
	serverjobs "github.com/darglk/chairai-sub002/internal/server/jobs"
	"github.com/darglk/chairai-sub002/internal/storage"
)

// retentionBatchSize caps how many expired images one pass removes so a
// large backlog cannot hold the job loop for long.
const retentionBatchSize = 50

// retentionHeartbeatKey records when the last sweep finished.
const retentionHeartbeatKey = "jobs.retention_swept_at"

// RetentionCleaner removes anonymous generated images once they outlive the
// configured retention. Images tied to an account are kept; anonymous ones
// have nobody to come back for them.
type RetentionCleaner struct {
	store     storage.ObjectStore
	retention time.Duration
}

// NewRetentionCleaner constructs a cleaner. A zero or negative retention
// disables it.
func NewRetentionCleaner(store storage.ObjectStore, retention time.Duration) *RetentionCleaner {
	return &RetentionCleaner{
		store:     store,
		retention: retention,
	}
}

// ProcessBatch implements the Processor interface.
func (c *RetentionCleaner) ProcessBatch(ctx *serverjobs.JobContext) error {
	if c.retention <= 0 {
		return nil
	}

	cutoff := time.Now().UTC().Add(-c.retention)
	var expired []images.GeneratedImage
	if err := ctx.DB.
		Where("user_id IS NULL AND created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(retentionBatchSize).
		Find(&expired).Error; err != nil {
		ctx.Logger.Error("failed to query expired images", zap.Error(err))
		return err
	}

	removed := 0
	for i := range expired {
		image := &expired[i]

		// Object first. If the delete fails the row stays, so the next
		// pass retries instead of orphaning the object.
		if err := c.store.Delete(ctx, image.ObjectKey); err != nil {
			ctx.Logger.Error("failed to delete expired image object",
				zap.Error(err),
				zap.String("key", image.ObjectKey))
			continue
		}

		err := dbtxn.WithRetry(ctx.Logger, ctx.DB, func(tx *gorm.DB) error {
			return tx.Delete(&images.GeneratedImage{}, image.ID).Error
		})
		if err != nil {
			ctx.Logger.Error("failed to delete expired image row",
				zap.Error(err),
				zap.Uint("image_id", image.ID))
			continue
		}
		removed++
	}

	if len(expired) > 0 {
		ctx.Logger.Info("expired anonymous images removed",
			zap.Int("removed", removed),
			zap.Time("cutoff", cutoff))
	}

	if err := accounts.SetSetting(ctx.DB, ctx.Logger, retentionHeartbeatKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		ctx.Logger.Warn("failed to record sweep heartbeat", zap.Error(err))
	}

	return nil
}
