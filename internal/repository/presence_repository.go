package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"collab-service/internal/domain"
)

// PresenceRepository persists the last known presence per user.
type PresenceRepository interface {
	Upsert(ctx context.Context, presence *domain.UserPresence) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	GetUserStatus(ctx context.Context, userID uuid.UUID) (*domain.UserPresence, error)
	GetOnlineUsers(ctx context.Context, since time.Time) ([]domain.UserPresence, error)
	MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error)
}

type presenceRepositoryImpl struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepositoryImpl{db: db}
}

func (r *presenceRepositoryImpl) Upsert(ctx context.Context, presence *domain.UserPresence) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"display_name", "avatar_url", "status", "current_page", "last_update"}),
	}).Create(presence).Error
}

func (r *presenceRepositoryImpl) SetOffline(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.UserPresence{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":      domain.PresenceOffline,
			"last_update": time.Now(),
		}).Error
}

func (r *presenceRepositoryImpl) GetUserStatus(ctx context.Context, userID uuid.UUID) (*domain.UserPresence, error) {
	var presence domain.UserPresence
	if err := r.db.WithContext(ctx).First(&presence, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &presence, nil
}

func (r *presenceRepositoryImpl) GetOnlineUsers(ctx context.Context, since time.Time) ([]domain.UserPresence, error) {
	var presences []domain.UserPresence
	err := r.db.WithContext(ctx).
		Where("status = ? AND last_update >= ?", domain.PresenceOnline, since).
		Find(&presences).Error
	return presences, err
}

func (r *presenceRepositoryImpl) MarkStaleOffline(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.UserPresence{}).
		Where("status != ? AND last_update < ?", domain.PresenceOffline, cutoff).
		Updates(map[string]interface{}{"status": domain.PresenceOffline})
	return result.RowsAffected, result.Error
}
