package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/response"
	"collab-service/internal/service"
)

type NotificationHandler struct {
	notifications *service.NotificationService
	logger        *zap.Logger
}

func NewNotificationHandler(notifications *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        logger,
	}
}

func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, response.NewAppError(response.ErrCodeUnauthorized, "Authentication required", ""))
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	unreadOnly := c.Query("unreadOnly") == "true"

	result, err := h.notifications.GetNotifications(c.Request.Context(), userID, page, limit, unreadOnly)
	if err != nil {
		h.logger.Error("failed to get notifications", zap.Error(err))
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, response.NewAppError(response.ErrCodeUnauthorized, "Authentication required", ""))
		return
	}

	count, err := h.notifications.GetUnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, response.NewAppError(response.ErrCodeUnauthorized, "Authentication required", ""))
		return
	}

	id, err := uuid.Parse(c.Param("notificationId"))
	if err != nil {
		respondBadRequest(c, "Invalid notification ID")
		return
	}

	notification, err := h.notifications.MarkAsRead(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, response.NewAppError(response.ErrCodeNotFound, "Notification not found", ""))
		return
	}

	c.JSON(http.StatusOK, notification)
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, response.NewAppError(response.ErrCodeUnauthorized, "Authentication required", ""))
		return
	}

	count, err := h.notifications.MarkAllAsRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
