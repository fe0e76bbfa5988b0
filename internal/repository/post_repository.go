package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"collab-service/internal/domain"
)

// PostRepository defines data access for scheduled posts
type PostRepository interface {
	Create(ctx context.Context, post *domain.ScheduledPost) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error)
	List(ctx context.Context) ([]*domain.ScheduledPost, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.ScheduledPost, error)
	Update(ctx context.Context, post *domain.ScheduledPost) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postRepositoryImpl struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepositoryImpl{db: db}
}

func (r *postRepositoryImpl) Create(ctx context.Context, post *domain.ScheduledPost) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	var post domain.ScheduledPost
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepositoryImpl) List(ctx context.Context) ([]*domain.ScheduledPost, error) {
	var posts []*domain.ScheduledPost
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepositoryImpl) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.ScheduledPost, error) {
	var posts []*domain.ScheduledPost
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, err
}

func (r *postRepositoryImpl) Update(ctx context.Context, post *domain.ScheduledPost) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.ScheduledPost{}, "id = ?", id).Error
}
