package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "ONLINE"
	PresenceAway    PresenceStatus = "AWAY"
	PresenceBusy    PresenceStatus = "BUSY"
	PresenceOffline PresenceStatus = "OFFLINE"
)

// UserPresence is one participant's live status. At most one row per user;
// the realtime layer keeps the authoritative in-memory copy and this table
// backs REST reads across restarts.
type UserPresence struct {
	UserID      uuid.UUID      `gorm:"type:uuid;primaryKey" json:"userId"`
	DisplayName string         `gorm:"type:varchar(255)" json:"displayName"`
	AvatarURL   string         `gorm:"type:text" json:"avatarUrl,omitempty"`
	Status      PresenceStatus `gorm:"type:varchar(20);default:'ONLINE';index" json:"status"`
	CurrentPage string         `gorm:"type:varchar(255)" json:"currentPage,omitempty"`
	LastUpdate  time.Time      `json:"lastUpdate"`
}

func (UserPresence) TableName() string {
	return "user_presence"
}

type PresenceEventType string

const (
	PresenceEventSync  PresenceEventType = "SYNC"
	PresenceEventJoin  PresenceEventType = "JOIN"
	PresenceEventLeave PresenceEventType = "LEAVE"
)

// PresenceEvent is the wire form exchanged on the shared presence channel.
type PresenceEvent struct {
	Type    PresenceEventType `json:"type"`
	Record  *UserPresence     `json:"record,omitempty"`
	Records []UserPresence    `json:"records,omitempty"`
}
