package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/metrics"
)

// PostStore is the plain CRUD surface for scheduled posts. Satisfied by
// service.PostService.
type PostStore interface {
	Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error)
	Update(ctx context.Context, id uuid.UUID, patch *domain.PostPatch) (*domain.ScheduledPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Publish(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error)
}

// PostReconciler wraps the post CRUD operations so every mutation, successful
// or failed, also emits a corresponding activity event. Domain failures are
// always re-raised to the caller; only broadcast failures are swallowed.
type PostReconciler struct {
	store       PostStore
	broadcaster *ActivityBroadcaster
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewPostReconciler(store PostStore, broadcaster *ActivityBroadcaster, m *metrics.Metrics, logger *zap.Logger) *PostReconciler {
	return &PostReconciler{
		store:       store,
		broadcaster: broadcaster,
		metrics:     m,
		logger:      logger,
	}
}

func (r *PostReconciler) Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error) {
	created, err := r.store.Create(ctx, post)
	if err != nil {
		r.broadcaster.Broadcast(ctx, domain.ActionPostCreateFailed, map[string]interface{}{
			"title": post.Title,
			"error": err.Error(),
		})
		return nil, err
	}

	r.broadcaster.Broadcast(ctx, domain.ActionPostCreated, postDetails(created))
	return created, nil
}

func (r *PostReconciler) Update(ctx context.Context, id uuid.UUID, patch *domain.PostPatch) (*domain.ScheduledPost, error) {
	updated, err := r.store.Update(ctx, id, patch)
	if err != nil {
		r.broadcaster.Broadcast(ctx, domain.ActionPostUpdateFailed, map[string]interface{}{
			"post_id": id.String(),
			"error":   err.Error(),
		})
		return nil, err
	}

	r.broadcaster.Broadcast(ctx, updateAction(patch), postDetails(updated))
	return updated, nil
}

func (r *PostReconciler) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Delete(ctx, id); err != nil {
		r.broadcaster.Broadcast(ctx, domain.ActionPostDeleteFailed, map[string]interface{}{
			"post_id": id.String(),
			"error":   err.Error(),
		})
		return err
	}

	r.broadcaster.Broadcast(ctx, domain.ActionPostDeleted, map[string]interface{}{
		"post_id": id.String(),
	})
	return nil
}

// Publish gives observers a best-effort two-phase visibility window: the
// started event is issued strictly before the mutation begins, and the
// completion or failure event strictly after it resolves.
func (r *PostReconciler) Publish(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	r.broadcaster.Broadcast(ctx, domain.ActionPostPublishingStarted, map[string]interface{}{
		"post_id": id.String(),
	})

	published, err := r.store.Publish(ctx, id)
	if err != nil {
		r.broadcaster.Broadcast(ctx, domain.ActionPostPublishFailed, map[string]interface{}{
			"post_id": id.String(),
			"error":   err.Error(),
		})
		if r.metrics != nil {
			r.metrics.IncrementPostPublishFailed()
		}
		return nil, err
	}

	details := postDetails(published)
	if published.PostedAt != nil {
		details["posted_at"] = published.PostedAt.Format(time.RFC3339)
	}
	r.broadcaster.Broadcast(ctx, domain.ActionPostPublished, details)

	if r.metrics != nil {
		r.metrics.IncrementPostPublished()
	}
	return published, nil
}

// updateAction picks the activity kind for an update: specific statuses map
// to their own kinds, everything else is a plain edit.
func updateAction(patch *domain.PostPatch) domain.ActivityAction {
	if patch == nil || patch.PostingStatus == nil {
		return domain.ActionPostEdited
	}
	switch *patch.PostingStatus {
	case domain.PostStatusApproved:
		return domain.ActionPostApproved
	case domain.PostStatusRejected:
		return domain.ActionPostRejected
	case domain.PostStatusPosted:
		return domain.ActionPostPublished
	default:
		return domain.ActionPostEdited
	}
}

func postDetails(post *domain.ScheduledPost) map[string]interface{} {
	details := map[string]interface{}{
		"post_id":  post.ID.String(),
		"title":    post.Title,
		"platform": post.Platform,
		"status":   string(post.PostingStatus),
	}
	if post.ScheduledAt != nil {
		details["scheduled_at"] = post.ScheduledAt.Format(time.RFC3339)
	}
	return details
}
