package jobs

import (
	"math"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darglk/chairai-sub002/internal/accounts"
	"github.com/darglk/chairai-sub002/internal/artisans"
	"github.com/darglk/chairai-sub002/internal/pkg/dbtxn"
	"github.com/darglk/chairai-sub002/internal/reviews"
	serverjobs "github.com/darglk/chairai-sub002/internal/server/jobs"
)

// ratingsHeartbeatKey records when the last reconcile pass finished.
// Operators can read it straight from the settings table.
const ratingsHeartbeatKey = "jobs.ratings_reconciled_at"

// RatingsReconciler recomputes artisan rating aggregates from the review
// rows. Reviews fold their rating into the profile at write time; this pass
// repairs any drift so the stored aggregates always converge on the truth.
type RatingsReconciler struct{}

// NewRatingsReconciler constructs the reconciler.
func NewRatingsReconciler() *RatingsReconciler {
	return &RatingsReconciler{}
}

type ratingAggregate struct {
	ArtisanID uint
	Count     int
	Average   float64
}

// ProcessBatch implements the Processor interface.
func (r *RatingsReconciler) ProcessBatch(ctx *serverjobs.JobContext) error {
	db := ctx.DB

	var aggregates []ratingAggregate
	if err := db.Model(&reviews.Review{}).
		Select("artisan_id, COUNT(*) AS count, AVG(rating) AS average").
		Group("artisan_id").
		Scan(&aggregates).Error; err != nil {
		ctx.Logger.Error("failed to aggregate reviews", zap.Error(err))
		return err
	}

	byArtisan := make(map[uint]ratingAggregate, len(aggregates))
	for _, agg := range aggregates {
		byArtisan[agg.ArtisanID] = agg
	}

	var profiles []artisans.Profile
	if err := db.Find(&profiles).Error; err != nil {
		ctx.Logger.Error("failed to load profiles", zap.Error(err))
		return err
	}

	for i := range profiles {
		profile := &profiles[i]
		expected := byArtisan[profile.UserID]
		if profile.RatingCount == expected.Count && math.Abs(profile.RatingAverage-expected.Average) < 1e-9 {
			continue
		}

		err := dbtxn.WithRetry(ctx.Logger, db, func(tx *gorm.DB) error {
			return tx.Model(&artisans.Profile{}).Where("id = ?", profile.ID).Updates(map[string]interface{}{
				"rating_average": expected.Average,
				"rating_count":   expected.Count,
			}).Error
		})
		if err != nil {
			ctx.Logger.Error("failed to reconcile rating",
				zap.Error(err),
				zap.Uint("profile_id", profile.ID),
				zap.Uint("artisan_id", profile.UserID))
			continue
		}

		ctx.Logger.Info("reconciled artisan rating",
			zap.Uint("artisan_id", profile.UserID),
			zap.Int("count", expected.Count),
			zap.Float64("average", expected.Average))
	}

	if err := accounts.SetSetting(db, ctx.Logger, ratingsHeartbeatKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		ctx.Logger.Warn("failed to record reconcile heartbeat", zap.Error(err))
	}

	return nil
}
