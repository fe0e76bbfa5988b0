package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
	"collab-service/internal/realtime"
	"collab-service/internal/repository"
)

const unreadCacheTTL = 60 * time.Second

// NotificationService persists bell notifications, delivers a toast to the
// target user's live connections, and pushes a copy to the per-user redis
// channel so other instances can deliver it too.
type NotificationService struct {
	repo     repository.NotificationRepository
	redis    *redis.Client
	notifier realtime.Notifier
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	redisClient *redis.Client,
	notifier realtime.Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		repo:     repo,
		redis:    redisClient,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

func (s *NotificationService) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now()
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	s.deliverToast(ctx, notification)
	s.publishNotification(ctx, notification)
	s.invalidateUnreadCountCache(ctx, notification.TargetUserID)

	if s.metrics != nil {
		s.metrics.IncrementNotificationCreated()
	}

	s.logger.Info("notification created",
		zap.String("id", notification.ID.String()),
		zap.String("type", string(notification.Type)),
		zap.String("target_user_id", notification.TargetUserID.String()),
	)

	return notification, nil
}

// Record implements realtime.NotificationRecorder. Fire and forget: the
// realtime pipeline never blocks on or fails with notification persistence.
func (s *NotificationService) Record(ctx context.Context, notification *domain.Notification) {
	if _, err := s.Create(ctx, notification); err != nil {
		s.logger.Error("failed to record notification",
			zap.String("type", string(notification.Type)),
			zap.Error(err))
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) (*domain.PaginatedNotifications, error) {
	notifications, total, err := s.repo.GetByUser(ctx, userID, page, limit, unreadOnly)
	if err != nil {
		return nil, err
	}

	hasMore := int64(page*limit) < total

	return &domain.PaginatedNotifications{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		Limit:         limit,
		HasMore:       hasMore,
	}, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	notification, err := s.repo.MarkAsRead(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.invalidateUnreadCountCache(ctx, userID)
	return notification, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.invalidateUnreadCountCache(ctx, userID)
	return count, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	cacheKey := unreadCacheKey(userID)

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, cacheKey).Int64()
		if err == nil {
			return cached, nil
		}
	}

	count, err := s.repo.GetUnreadCount(ctx, userID)
	if err != nil {
		return 0, err
	}

	if s.redis != nil {
		s.redis.Set(ctx, cacheKey, count, unreadCacheTTL)
	}

	return count, nil
}

func (s *NotificationService) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	return s.repo.CleanupOld(ctx, retentionDays)
}

// deliverToast shows the notification to the target user's connections on
// this instance. Other instances pick it up from the per-user redis channel.
func (s *NotificationService) deliverToast(ctx context.Context, notification *domain.Notification) {
	if s.notifier == nil {
		return
	}

	s.notifier.ShowUser(ctx, notification.TargetUserID, realtime.Toast{
		Title:       toastTitle(notification.Type),
		Description: notification.ResourceName,
		Variant:     toastVariant(notification.Type),
		DurationMS:  5000,
	})
}

func toastTitle(t domain.NotificationType) string {
	switch t {
	case domain.NotificationPostPublished:
		return "Post published"
	case domain.NotificationPostApproved:
		return "Post approved"
	case domain.NotificationPostRejected:
		return "Post rejected"
	case domain.NotificationPostFailed:
		return "Post failed"
	case domain.NotificationPostScheduled:
		return "Post scheduled"
	case domain.NotificationUserJoined:
		return "New member joined"
	default:
		return "Notification"
	}
}

func toastVariant(t domain.NotificationType) realtime.ToastVariant {
	switch t {
	case domain.NotificationPostPublished, domain.NotificationPostApproved:
		return realtime.ToastSuccess
	case domain.NotificationPostFailed:
		return realtime.ToastError
	default:
		return realtime.ToastInfo
	}
}

func (s *NotificationService) publishNotification(ctx context.Context, notification *domain.Notification) {
	if s.redis == nil {
		return
	}

	channel := fmt.Sprintf("notifications:user:%s", notification.TargetUserID.String())
	data, err := json.Marshal(notification)
	if err != nil {
		s.logger.Error("failed to marshal notification for publish", zap.Error(err))
		return
	}

	if err := s.redis.Publish(ctx, channel, data).Err(); err != nil {
		s.logger.Error("failed to publish notification", zap.Error(err))
	}
}

func (s *NotificationService) invalidateUnreadCountCache(ctx context.Context, userID uuid.UUID) {
	if s.redis == nil {
		return
	}

	if err := s.redis.Del(ctx, unreadCacheKey(userID)).Err(); err != nil {
		s.logger.Error("failed to invalidate unread cache", zap.Error(err))
	}
}

func unreadCacheKey(userID uuid.UUID) string {
	return fmt.Sprintf("collab:unread:%s", userID.String())
}
