package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"collab-service/internal/domain"
	"collab-service/internal/realtime"
	"collab-service/internal/response"
)

// MockPostService is a func-field mock of service.PostService
type MockPostService struct {
	CreateFunc       func(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error)
	UpdateFunc       func(ctx context.Context, id uuid.UUID, patch *domain.PostPatch) (*domain.ScheduledPost, error)
	DeleteFunc       func(ctx context.Context, id uuid.UUID) error
	PublishFunc      func(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error)
	GetByIDFunc      func(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error)
	ListFunc         func(ctx context.Context) ([]*domain.ScheduledPost, error)
	ListByClientFunc func(ctx context.Context, clientID uuid.UUID) ([]*domain.ScheduledPost, error)
}

func (m *MockPostService) Create(ctx context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, post)
	}
	return post, nil
}

func (m *MockPostService) Update(ctx context.Context, id uuid.UUID, patch *domain.PostPatch) (*domain.ScheduledPost, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return &domain.ScheduledPost{ID: id}, nil
}

func (m *MockPostService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockPostService) Publish(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, id)
	}
	return &domain.ScheduledPost{ID: id, PostingStatus: domain.PostStatusPosted}, nil
}

func (m *MockPostService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return &domain.ScheduledPost{ID: id}, nil
}

func (m *MockPostService) List(ctx context.Context) ([]*domain.ScheduledPost, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

func (m *MockPostService) ListByClient(ctx context.Context, clientID uuid.UUID) ([]*domain.ScheduledPost, error) {
	if m.ListByClientFunc != nil {
		return m.ListByClientFunc(ctx, clientID)
	}
	return nil, nil
}

// nopBroker satisfies realtime.Broker for handler tests. Subscribe is never
// reached because the broadcaster is not started.
type nopBroker struct{}

func (nopBroker) Publish(context.Context, string, []byte) error { return nil }
func (nopBroker) Subscribe(context.Context, string) (realtime.Subscription, error) {
	return nil, nil
}

func newTestPostHandler(svc *MockPostService) *PostHandler {
	logger := zap.NewNop()
	broadcaster := realtime.NewActivityBroadcaster(
		nopBroker{}, realtime.ContextIdentityProvider{}, nil, nil, 0, logger)
	reconciler := realtime.NewPostReconciler(svc, broadcaster, nil, logger)
	return NewPostHandler(reconciler, svc, logger)
}

func newTestRouter(h *PostHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/posts", h.CreatePost)
	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:postId", h.GetPost)
	r.PUT("/posts/:postId", h.UpdatePost)
	r.DELETE("/posts/:postId", h.DeletePost)
	r.POST("/posts/:postId/publish", h.PublishPost)
	return r
}

func TestPostHandler_CreatePost(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		mockService    func(*MockPostService)
		expectedStatus int
	}{
		{
			name: "created",
			body: CreatePostRequest{Platform: "instagram", Title: "Launch teaser"},
			mockService: func(m *MockPostService) {
				m.CreateFunc = func(_ context.Context, post *domain.ScheduledPost) (*domain.ScheduledPost, error) {
					post.ID = uuid.New()
					return post, nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "missing required fields",
			body:           map[string]string{"content": "no title or platform"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid client id",
			body:           CreatePostRequest{Platform: "instagram", Title: "t", ClientID: "not-a-uuid"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error from service",
			body: CreatePostRequest{Platform: "instagram", Title: "t"},
			mockService: func(m *MockPostService) {
				m.CreateFunc = func(context.Context, *domain.ScheduledPost) (*domain.ScheduledPost, error) {
					return nil, response.NewAppError(response.ErrCodeValidation, "Title is required", "")
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockPostService{}
			if tt.mockService != nil {
				tt.mockService(svc)
			}
			router := newTestRouter(newTestPostHandler(svc))

			payload, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/posts", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestPostHandler_GetPost(t *testing.T) {
	postID := uuid.New()
	svc := &MockPostService{
		GetByIDFunc: func(_ context.Context, id uuid.UUID) (*domain.ScheduledPost, error) {
			if id != postID {
				return nil, response.NewAppError(response.ErrCodeNotFound, "Post not found", "")
			}
			return &domain.ScheduledPost{ID: postID, Title: "Launch teaser"}, nil
		},
	}
	router := newTestRouter(newTestPostHandler(svc))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/posts/"+postID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		var post domain.ScheduledPost
		if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if post.Title != "Launch teaser" {
			t.Errorf("title = %q, want %q", post.Title, "Launch teaser")
		}
	})

	t.Run("not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/posts/"+uuid.NewString(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/posts/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestPostHandler_ListPostsByClient(t *testing.T) {
	clientID := uuid.New()
	var requestedClient uuid.UUID
	svc := &MockPostService{
		ListByClientFunc: func(_ context.Context, id uuid.UUID) ([]*domain.ScheduledPost, error) {
			requestedClient = id
			return []*domain.ScheduledPost{{ID: uuid.New(), ClientID: id}}, nil
		},
	}
	router := newTestRouter(newTestPostHandler(svc))

	req := httptest.NewRequest(http.MethodGet, "/posts?clientId="+clientID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if requestedClient != clientID {
		t.Errorf("service called with client %s, want %s", requestedClient, clientID)
	}
}

func TestPostHandler_PublishPost(t *testing.T) {
	t.Run("published", func(t *testing.T) {
		postID := uuid.New()
		svc := &MockPostService{}
		router := newTestRouter(newTestPostHandler(svc))

		req := httptest.NewRequest(http.MethodPost, "/posts/"+postID.String()+"/publish", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
		}
		var post domain.ScheduledPost
		if err := json.Unmarshal(w.Body.Bytes(), &post); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if post.PostingStatus != domain.PostStatusPosted {
			t.Errorf("postingStatus = %q, want posted", post.PostingStatus)
		}
	})

	t.Run("already published", func(t *testing.T) {
		svc := &MockPostService{
			PublishFunc: func(context.Context, uuid.UUID) (*domain.ScheduledPost, error) {
				return nil, response.NewAppError(response.ErrCodeConflict, "Post already published", "")
			},
		}
		router := newTestRouter(newTestPostHandler(svc))

		req := httptest.NewRequest(http.MethodPost, "/posts/"+uuid.NewString()+"/publish", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != http.StatusConflict {
			t.Errorf("status = %d, want 409", w.Code)
		}
		var resp map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
		if resp["success"] != false {
			t.Error("expected success=false in error envelope")
		}
	})
}

func TestPostHandler_DeletePost(t *testing.T) {
	var deleted uuid.UUID
	svc := &MockPostService{
		DeleteFunc: func(_ context.Context, id uuid.UUID) error {
			deleted = id
			return nil
		},
	}
	router := newTestRouter(newTestPostHandler(svc))

	postID := uuid.New()
	req := httptest.NewRequest(http.MethodDelete, "/posts/"+postID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if deleted != postID {
		t.Errorf("deleted %s, want %s", deleted, postID)
	}
}
