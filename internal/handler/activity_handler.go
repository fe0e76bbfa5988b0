package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"collab-service/internal/realtime"
)

type ActivityHandler struct {
	broadcaster *realtime.ActivityBroadcaster
	listener    *realtime.ChangeListener
	logger      *zap.Logger
}

func NewActivityHandler(broadcaster *realtime.ActivityBroadcaster, listener *realtime.ChangeListener, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		broadcaster: broadcaster,
		listener:    listener,
		logger:      logger,
	}
}

// GetActivityFeed returns the recent activity log, newest first.
func (h *ActivityHandler) GetActivityFeed(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"events": h.broadcaster.Recent(),
	})
}

// GetStatusTransitions returns the recent posting-status transitions observed
// on the posts feed.
func (h *ActivityHandler) GetStatusTransitions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"transitions": h.listener.RecentTransitions(),
	})
}
