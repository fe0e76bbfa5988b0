package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"collab-service/internal/domain"
)

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByUser(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error)
	MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
	CleanupOld(ctx context.Context, retentionDays int) (int64, error)
}

type notificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepositoryImpl{db: db}
}

func (r *notificationRepositoryImpl) Create(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepositoryImpl) GetByUser(ctx context.Context, userID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	query := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("target_user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var notifications []domain.Notification
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	return notifications, total, err
}

func (r *notificationRepositoryImpl) MarkAsRead(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	if err := r.db.WithContext(ctx).
		First(&notification, "id = ? AND target_user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}

	if !notification.IsRead {
		notification.IsRead = true
		if err := r.db.WithContext(ctx).Save(&notification).Error; err != nil {
			return nil, err
		}
	}
	return &notification, nil
}

func (r *notificationRepositoryImpl) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("target_user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true})
	return result.RowsAffected, result.Error
}

func (r *notificationRepositoryImpl) GetUnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("target_user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepositoryImpl) CleanupOld(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&domain.Notification{})
	return result.RowsAffected, result.Error
}
