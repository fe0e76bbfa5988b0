package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PostingStatus string

const (
	PostStatusDraft           PostingStatus = "draft"
	PostStatusScheduled       PostingStatus = "scheduled"
	PostStatusPendingApproval PostingStatus = "pending_approval"
	PostStatusApproved        PostingStatus = "approved"
	PostStatusRejected        PostingStatus = "rejected"
	PostStatusPosting         PostingStatus = "posting"
	PostStatusPosted          PostingStatus = "posted"
	PostStatusFailed          PostingStatus = "failed"
)

// ScheduledPost is a social-media post managed through the dashboard.
type ScheduledPost struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID      uuid.UUID      `gorm:"type:uuid;index" json:"clientId"`
	AuthorID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"authorId"`
	Platform      string         `gorm:"type:varchar(50);not null" json:"platform"`
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Content       string         `gorm:"type:text" json:"content"`
	Options       datatypes.JSON `gorm:"type:jsonb" json:"options,omitempty"`
	ScheduledAt   *time.Time     `json:"scheduledAt,omitempty"`
	PostingStatus PostingStatus  `gorm:"type:varchar(30);default:'draft';index" json:"postingStatus"`
	PostedAt      *time.Time     `json:"postedAt,omitempty"`
	FailureReason *string        `gorm:"type:text" json:"failureReason,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ScheduledPost) TableName() string {
	return "scheduled_posts"
}

// PostPatch is a partial update to a scheduled post. Nil fields are left
// unchanged.
type PostPatch struct {
	Title         *string        `json:"title,omitempty"`
	Content       *string        `json:"content,omitempty"`
	Platform      *string        `json:"platform,omitempty"`
	ScheduledAt   *time.Time     `json:"scheduledAt,omitempty"`
	PostingStatus *PostingStatus `json:"postingStatus,omitempty"`
	Options       datatypes.JSON `json:"options,omitempty"`
	FailureReason *string        `json:"failureReason,omitempty"`
}

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// PostChange is the change notification emitted on the scheduled-posts feed
// after every successful mutation. For updates both snapshots are present;
// consumers must ignore payloads missing the snapshot they need. ActorID
// identifies the user whose request produced the change; uuid.Nil marks
// system-originated changes (backend poster, schedulers).
type PostChange struct {
	EventType ChangeType     `json:"eventType"`
	ActorID   uuid.UUID      `json:"actorId"`
	New       *ScheduledPost `json:"new,omitempty"`
	Old       *ScheduledPost `json:"old,omitempty"`
}
