package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"collab-service/internal/domain"
)

func setupNotificationTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	db.Exec(`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		actor_id TEXT,
		target_user_id TEXT NOT NULL,
		resource_id TEXT,
		resource_name TEXT,
		metadata TEXT,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`)

	return db
}

func seedNotification(t *testing.T, repo NotificationRepository, userID uuid.UUID, createdAt time.Time, read bool) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		ID:           uuid.New(),
		Type:         domain.NotificationPostPublished,
		TargetUserID: userID,
		ResourceName: "Launch teaser",
		IsRead:       read,
		CreatedAt:    createdAt,
	}
	if err := repo.Create(context.Background(), n); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return n
}

func TestNotificationRepository_GetByUserPagination(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now()
	for i := 0; i < 5; i++ {
		seedNotification(t, repo, userID, now.Add(time.Duration(i)*time.Minute), false)
	}
	// Another user's notification must not leak in
	seedNotification(t, repo, uuid.New(), now, false)

	notifications, total, err := repo.GetByUser(ctx, userID, 1, 2, false)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(notifications) != 2 {
		t.Fatalf("page 1 returned %d rows, want 2", len(notifications))
	}
	// Newest first
	if !notifications[0].CreatedAt.After(notifications[1].CreatedAt) {
		t.Error("notifications not ordered newest first")
	}

	page3, _, err := repo.GetByUser(ctx, userID, 3, 2, false)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if len(page3) != 1 {
		t.Errorf("page 3 returned %d rows, want 1", len(page3))
	}
}

func TestNotificationRepository_GetByUserUnreadOnly(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now()
	seedNotification(t, repo, userID, now, false)
	seedNotification(t, repo, userID, now, true)

	notifications, total, err := repo.GetByUser(ctx, userID, 1, 20, true)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
	if len(notifications) != 1 || notifications[0].IsRead {
		t.Errorf("unreadOnly returned read notifications: %+v", notifications)
	}
}

func TestNotificationRepository_MarkAsRead(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	n := seedNotification(t, repo, userID, time.Now(), false)

	updated, err := repo.MarkAsRead(ctx, n.ID, userID)
	if err != nil {
		t.Fatalf("MarkAsRead() error = %v", err)
	}
	if !updated.IsRead {
		t.Error("notification not marked read")
	}

	// Another user cannot read someone else's notification
	if _, err := repo.MarkAsRead(ctx, n.ID, uuid.New()); err == nil {
		t.Error("MarkAsRead() for wrong user succeeded, want error")
	}
}

func TestNotificationRepository_MarkAllAsRead(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now()
	seedNotification(t, repo, userID, now, false)
	seedNotification(t, repo, userID, now, false)
	seedNotification(t, repo, userID, now, true)

	count, err := repo.MarkAllAsRead(ctx, userID)
	if err != nil {
		t.Fatalf("MarkAllAsRead() error = %v", err)
	}
	if count != 2 {
		t.Errorf("MarkAllAsRead() count = %d, want 2", count)
	}

	unread, err := repo.GetUnreadCount(ctx, userID)
	if err != nil {
		t.Fatalf("GetUnreadCount() error = %v", err)
	}
	if unread != 0 {
		t.Errorf("unread count after MarkAllAsRead = %d, want 0", unread)
	}
}

func TestNotificationRepository_CleanupOld(t *testing.T) {
	db := setupNotificationTestDB(t)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	seedNotification(t, repo, userID, time.Now().AddDate(0, 0, -40), true)
	recent := seedNotification(t, repo, userID, time.Now(), false)

	deleted, err := repo.CleanupOld(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOld() error = %v", err)
	}
	if deleted != 1 {
		t.Errorf("CleanupOld() deleted = %d, want 1", deleted)
	}

	remaining, total, err := repo.GetByUser(ctx, userID, 1, 20, false)
	if err != nil {
		t.Fatalf("GetByUser() error = %v", err)
	}
	if total != 1 || len(remaining) != 1 || remaining[0].ID != recent.ID {
		t.Errorf("remaining notifications = %+v, want only the recent one", remaining)
	}
}
