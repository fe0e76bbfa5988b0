package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotificationPostPublished NotificationType = "POST_PUBLISHED"
	NotificationPostApproved  NotificationType = "POST_APPROVED"
	NotificationPostRejected  NotificationType = "POST_REJECTED"
	NotificationPostFailed    NotificationType = "POST_FAILED"
	NotificationPostScheduled NotificationType = "POST_SCHEDULED"
	NotificationUserJoined    NotificationType = "USER_JOINED"
)

// Notification is a persisted copy of a user-visible alert, so the bell icon
// survives reconnects. Ephemeral toasts are delivered over the presence
// websocket and are not stored here.
type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Type         NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	ActorID      uuid.UUID        `gorm:"type:uuid" json:"actorId"`
	TargetUserID uuid.UUID        `gorm:"type:uuid;not null;index:idx_target_read" json:"targetUserId"`
	ResourceID   uuid.UUID        `gorm:"type:uuid" json:"resourceId"`
	ResourceName string           `gorm:"type:varchar(255)" json:"resourceName"`
	Metadata     datatypes.JSON   `gorm:"type:jsonb" json:"metadata,omitempty"`
	IsRead       bool             `gorm:"default:false;index:idx_target_read" json:"isRead"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

type PaginatedNotifications struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	HasMore       bool           `json:"hasMore"`
}
