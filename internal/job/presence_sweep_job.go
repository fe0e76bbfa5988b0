package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"collab-service/internal/repository"
)

// PresenceSweepJob marks stale presence rows offline. Clients that vanish
// without a clean disconnect stop refreshing their record; once it falls out
// of the liveness window this sweep flips it so the persisted view matches
// what the trackers report.
type PresenceSweepJob struct {
	repo           repository.PresenceRepository
	livenessWindow time.Duration
	logger         *zap.Logger
}

func NewPresenceSweepJob(repo repository.PresenceRepository, livenessWindow time.Duration, logger *zap.Logger) *PresenceSweepJob {
	return &PresenceSweepJob{
		repo:           repo,
		livenessWindow: livenessWindow,
		logger:         logger,
	}
}

// Run executes the sweep
func (j *PresenceSweepJob) Run() {
	ctx := context.Background()
	cutoff := time.Now().Add(-j.livenessWindow)

	swept, err := j.repo.MarkStaleOffline(ctx, cutoff)
	if err != nil {
		j.logger.Error("Failed to sweep stale presence records", zap.Error(err))
		return
	}

	if swept > 0 {
		j.logger.Info("Marked stale presence records offline",
			zap.Int64("count", swept))
	}
}
