package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/realtime"
	"collab-service/internal/repository"
	"collab-service/internal/response"
)

type PresenceHandler struct {
	tracker *realtime.PresenceTracker
	repo    repository.PresenceRepository
	logger  *zap.Logger
}

func NewPresenceHandler(tracker *realtime.PresenceTracker, repo repository.PresenceRepository, logger *zap.Logger) *PresenceHandler {
	return &PresenceHandler{
		tracker: tracker,
		repo:    repo,
		logger:  logger,
	}
}

// GetOnlineUsers returns the participants currently considered online.
// Served from the tracker's local state, no DB round trip.
func (h *PresenceHandler) GetOnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.OnlineUsers())
}

// UpdatePresence sets the caller's status and current page.
func (h *PresenceHandler) UpdatePresence(c *gin.Context) {
	var req UpdatePresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	status := domain.PresenceStatus(req.Status)
	switch status {
	case domain.PresenceOnline, domain.PresenceAway, domain.PresenceBusy:
	default:
		respondBadRequest(c, "Invalid presence status")
		return
	}

	h.tracker.UpdatePresence(c.Request.Context(), status, req.CurrentPage)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetUserStatus returns a single user's persisted presence record.
func (h *PresenceHandler) GetUserStatus(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		respondBadRequest(c, "Invalid user ID")
		return
	}

	presence, err := h.repo.GetUserStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, response.NewAppError(response.ErrCodeNotFound, "User presence not found", ""))
		return
	}

	c.JSON(http.StatusOK, presence)
}
