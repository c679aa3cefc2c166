package jobs

import (
	"go.uber.org/zap"

	"github.com/darglk/chairai-sub002/internal/config"
	"github.com/darglk/chairai-sub002/internal/database"
	serverjobs "github.com/darglk/chairai-sub002/internal/server/jobs"
	"github.com/darglk/chairai-sub002/internal/storage"
)

// MaintenanceDispatcher runs the periodic maintenance processors: rating
// reconciliation and anonymous image retention.
type MaintenanceDispatcher struct {
	dispatcher *serverjobs.Dispatcher
}

// NewMaintenanceDispatcher wires the maintenance processors onto one
// dispatch loop at the configured interval.
func NewMaintenanceDispatcher(cfg *config.Config, logger *zap.Logger, db *database.Manager, store storage.ObjectStore) *MaintenanceDispatcher {
	dispatcher := serverjobs.NewDispatcher(
		logger.Named("maintenance"),
		db,
		cfg.JobsInterval(),
		NewRatingsReconciler(),
		NewRetentionCleaner(store, cfg.AnonymousImageRetention()),
	)

	return &MaintenanceDispatcher{
		dispatcher: dispatcher,
	}
}

// Start begins the background processing loop.
func (d *MaintenanceDispatcher) Start() error {
	return d.dispatcher.Start()
}

// Stop terminates the dispatcher and waits for in-flight work.
func (d *MaintenanceDispatcher) Stop() {
	d.dispatcher.Stop()
}
