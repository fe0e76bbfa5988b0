package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/realtime"
	"collab-service/internal/service"
)

// PostHandler exposes scheduled-post CRUD. Mutations go through the
// reconciler so every outcome also lands on the activity feed; reads go
// straight to the service.
type PostHandler struct {
	reconciler *realtime.PostReconciler
	posts      service.PostService
	logger     *zap.Logger
}

func NewPostHandler(reconciler *realtime.PostReconciler, posts service.PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		reconciler: reconciler,
		posts:      posts,
		logger:     logger,
	}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	post := &domain.ScheduledPost{
		Platform:    req.Platform,
		Title:       req.Title,
		Content:     req.Content,
		Options:     req.Options,
		ScheduledAt: req.ScheduledAt,
	}
	if req.Status != "" {
		post.PostingStatus = domain.PostingStatus(req.Status)
	}
	if req.ClientID != "" {
		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			respondBadRequest(c, "Invalid client ID")
			return
		}
		post.ClientID = clientID
	}
	if userID, ok := currentUserID(c); ok {
		post.AuthorID = userID
	}

	created, err := h.reconciler.Create(c.Request.Context(), post)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("postId"))
	if err != nil {
		respondBadRequest(c, "Invalid post ID")
		return
	}

	post, err := h.posts.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, post)
}

func (h *PostHandler) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()

	if clientIDStr := c.Query("clientId"); clientIDStr != "" {
		clientID, err := uuid.Parse(clientIDStr)
		if err != nil {
			respondBadRequest(c, "Invalid client ID")
			return
		}
		posts, err := h.posts.ListByClient(ctx, clientID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, posts)
		return
	}

	posts, err := h.posts.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, posts)
}

func (h *PostHandler) UpdatePost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("postId"))
	if err != nil {
		respondBadRequest(c, "Invalid post ID")
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.reconciler.Update(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("postId"))
	if err != nil {
		respondBadRequest(c, "Invalid post ID")
		return
	}

	if err := h.reconciler.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *PostHandler) PublishPost(c *gin.Context) {
	id, err := uuid.Parse(c.Param("postId"))
	if err != nil {
		respondBadRequest(c, "Invalid post ID")
		return
	}

	published, err := h.reconciler.Publish(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, published)
}
