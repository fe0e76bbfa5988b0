package job

import (
	"context"

	"go.uber.org/zap"

	"collab-service/internal/service"
)

// CleanupJob prunes old notifications so the table does not grow without
// bound.
type CleanupJob struct {
	notifications *service.NotificationService
	retentionDays int
	logger        *zap.Logger
}

func NewCleanupJob(notifications *service.NotificationService, retentionDays int, logger *zap.Logger) *CleanupJob {
	return &CleanupJob{
		notifications: notifications,
		retentionDays: retentionDays,
		logger:        logger,
	}
}

// Run executes the cleanup job
func (j *CleanupJob) Run() {
	ctx := context.Background()

	j.logger.Info("Starting notification cleanup job",
		zap.Int("retention_days", j.retentionDays))

	deleted, err := j.notifications.CleanupOld(ctx, j.retentionDays)
	if err != nil {
		j.logger.Error("Failed to clean up old notifications", zap.Error(err))
		return
	}

	j.logger.Info("Notification cleanup job completed",
		zap.Int64("deleted", deleted))
}
