package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"collab-service/internal/domain"
	"collab-service/internal/response"
)

// CreatePostRequest creates a scheduled post
type CreatePostRequest struct {
	ClientID    string         `json:"clientId,omitempty"`
	Platform    string         `json:"platform" binding:"required"`
	Title       string         `json:"title" binding:"required"`
	Content     string         `json:"content"`
	Options     datatypes.JSON `json:"options,omitempty"`
	ScheduledAt *time.Time     `json:"scheduledAt,omitempty"`
	Status      string         `json:"status,omitempty"`
}

// UpdatePostRequest partially updates a scheduled post; omitted fields are
// left unchanged
type UpdatePostRequest struct {
	Title         *string        `json:"title,omitempty"`
	Content       *string        `json:"content,omitempty"`
	Platform      *string        `json:"platform,omitempty"`
	ScheduledAt   *time.Time     `json:"scheduledAt,omitempty"`
	Status        *string        `json:"status,omitempty"`
	Options       datatypes.JSON `json:"options,omitempty"`
	FailureReason *string        `json:"failureReason,omitempty"`
}

func (r *UpdatePostRequest) ToPatch() *domain.PostPatch {
	patch := &domain.PostPatch{
		Title:         r.Title,
		Content:       r.Content,
		Platform:      r.Platform,
		ScheduledAt:   r.ScheduledAt,
		Options:       r.Options,
		FailureReason: r.FailureReason,
	}
	if r.Status != nil {
		status := domain.PostingStatus(*r.Status)
		patch.PostingStatus = &status
	}
	return patch
}

// UpdatePresenceRequest sets the caller's presence status
type UpdatePresenceRequest struct {
	Status      string `json:"status" binding:"required"`
	CurrentPage string `json:"currentPage"`
}

// respondError maps an error to its HTTP status in the shared envelope.
func respondError(c *gin.Context, err error) {
	appErr := response.AsAppError(err)
	c.JSON(appErr.HTTPStatus(), gin.H{
		"success": false,
		"error":   gin.H{"code": appErr.Code, "message": appErr.Message},
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   gin.H{"code": response.ErrCodeValidation, "message": message},
	})
}
