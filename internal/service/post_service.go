package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"collab-service/internal/domain"
	"collab-service/internal/realtime"
	"collab-service/internal/repository"
	"collab-service/internal/response"
)

// EventPublisher is the slice of the broker the post service needs to emit
// change notifications. Satisfied by *realtime.RedisBroker.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PostService manages scheduled posts and emits a change notification on the
// posts feed after every successful mutation. It implements
// realtime.PostStore.
type PostService interface {
	Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error)
	Update(ctx context.Context, id uuid.UUID, patch *domain.PostPatch) (*domain.ScheduledPost, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Publish(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error)
	List(ctx context.Context) ([]*domain.ScheduledPost, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.ScheduledPost, error)
}

type postServiceImpl struct {
	repo      repository.PostRepository
	publisher EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewPostService(repo repository.PostRepository, publisher EventPublisher, logger *zap.Logger) PostService {
	return &postServiceImpl{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *postServiceImpl) Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error) {
	if post.Title == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "Title is required", "")
	}
	if post.Platform == "" {
		return nil, response.NewAppError(response.ErrCodeValidation, "Platform is required", "")
	}

	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if post.PostingStatus == "" {
		post.PostingStatus = domain.PostStatusDraft
	}

	if err := s.repo.Create(ctx, post); err != nil {
		s.logger.Error("failed to create post", zap.Error(err))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to create post", err.Error())
	}

	s.emitChange(ctx, domain.PostChange{EventType: domain.ChangeInsert, New: post})
	return post, nil
}

func (s *postServiceImpl) Update(ctx context.Context, id uuid.UUID, patch *domain.PostPatch) (*domain.ScheduledPost, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}

	old := *post
	applyPatch(post, patch)

	if err := s.repo.Update(ctx, post); err != nil {
		s.logger.Error("failed to update post",
			zap.String("post_id", id.String()),
			zap.Error(err))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to update post", err.Error())
	}

	s.emitChange(ctx, domain.PostChange{EventType: domain.ChangeUpdate, New: post, Old: &old})
	return post, nil
}

func (s *postServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete post",
			zap.String("post_id", id.String()),
			zap.Error(err))
		return response.NewAppError(response.ErrCodeInternal, "Failed to delete post", err.Error())
	}

	s.emitChange(ctx, domain.PostChange{EventType: domain.ChangeDelete, Old: post})
	return nil
}

// Publish marks the post as posted. Publishing an already-posted post is a
// conflict, not an idempotent no-op, so callers surface the double-submit.
func (s *postServiceImpl) Publish(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	post, err := s.findPost(ctx, id)
	if err != nil {
		return nil, err
	}

	if post.PostingStatus == domain.PostStatusPosted {
		return nil, response.NewAppError(response.ErrCodeConflict, "Post already published", "")
	}

	old := *post
	postedAt := s.now()
	post.PostingStatus = domain.PostStatusPosted
	post.PostedAt = &postedAt
	post.FailureReason = nil

	if err := s.repo.Update(ctx, post); err != nil {
		s.logger.Error("failed to publish post",
			zap.String("post_id", id.String()),
			zap.Error(err))
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to publish post", err.Error())
	}

	s.emitChange(ctx, domain.PostChange{EventType: domain.ChangeUpdate, New: post, Old: &old})
	return post, nil
}

func (s *postServiceImpl) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	return s.findPost(ctx, id)
}

func (s *postServiceImpl) List(ctx context.Context) ([]*domain.ScheduledPost, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list posts", err.Error())
	}
	return posts, nil
}

func (s *postServiceImpl) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.ScheduledPost, error) {
	posts, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to list posts", err.Error())
	}
	return posts, nil
}

func (s *postServiceImpl) findPost(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	post, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewAppError(response.ErrCodeNotFound, "Post not found", "")
		}
		return nil, response.NewAppError(response.ErrCodeInternal, "Failed to load post", err.Error())
	}
	return post, nil
}

// emitChange publishes the change notification. Delivery is best effort: a
// broker outage must never roll back or mask a committed mutation.
func (s *postServiceImpl) emitChange(ctx context.Context, change domain.PostChange) {
	if s.publisher == nil {
		return
	}

	if identity, ok := realtime.IdentityFromContext(ctx); ok {
		change.ActorID = identity.ID
	}

	payload, err := json.Marshal(change)
	if err != nil {
		s.logger.Error("failed to marshal post change", zap.Error(err))
		return
	}

	if err := s.publisher.Publish(ctx, realtime.PostChangesChannel, payload); err != nil {
		s.logger.Warn("failed to publish post change",
			zap.String("event_type", string(change.EventType)),
			zap.Error(err))
	}
}

func applyPatch(post *domain.ScheduledPost, patch *domain.PostPatch) {
	if patch == nil {
		return
	}
	if patch.Title != nil {
		post.Title = *patch.Title
	}
	if patch.Content != nil {
		post.Content = *patch.Content
	}
	if patch.Platform != nil {
		post.Platform = *patch.Platform
	}
	if patch.ScheduledAt != nil {
		post.ScheduledAt = patch.ScheduledAt
	}
	if patch.PostingStatus != nil {
		post.PostingStatus = *patch.PostingStatus
	}
	if patch.Options != nil {
		post.Options = patch.Options
	}
	if patch.FailureReason != nil {
		post.FailureReason = patch.FailureReason
	}
}
