package domain

import (
	"time"

	"github.com/google/uuid"
)

type ActivityAction string

const (
	ActionPostCreated           ActivityAction = "post_created"
	ActionPostEdited            ActivityAction = "post_edited"
	ActionPostDeleted           ActivityAction = "post_deleted"
	ActionPostApproved          ActivityAction = "post_approved"
	ActionPostRejected          ActivityAction = "post_rejected"
	ActionPostPublishingStarted ActivityAction = "post_publishing_started"
	ActionPostPublished         ActivityAction = "post_published"
	ActionPostFailed            ActivityAction = "post_failed"
	ActionPostViewed            ActivityAction = "post_viewed"
	ActionCommentAdded          ActivityAction = "comment_added"
	ActionUserJoined            ActivityAction = "user_joined"

	ActionPostCreateFailed  ActivityAction = "post_create_failed"
	ActionPostUpdateFailed  ActivityAction = "post_update_failed"
	ActionPostDeleteFailed  ActivityAction = "post_delete_failed"
	ActionPostPublishFailed ActivityAction = "post_publish_failed"
)

// ActivityEvent is an immutable record of one notable action, broadcast to
// every connected participant. Events live only in the bounded in-memory
// feed; the underlying entities are persisted separately.
type ActivityEvent struct {
	ID        uuid.UUID              `json:"id"`
	ActorID   uuid.UUID              `json:"actorId"`
	ActorName string                 `json:"actorName"`
	Action    ActivityAction         `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}
