package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"collab-service/internal/config"
	"collab-service/internal/handler"
	"collab-service/internal/metrics"
	"collab-service/internal/middleware"
	"collab-service/internal/realtime"
	"collab-service/internal/repository"
	"collab-service/internal/service"
)

// Dependencies carries the realtime components whose lifecycle main owns.
type Dependencies struct {
	Hub           *realtime.Hub
	Tracker       *realtime.PresenceTracker
	Broadcaster   *realtime.ActivityBroadcaster
	Listener      *realtime.ChangeListener
	Reconciler    *realtime.PostReconciler
	Posts         service.PostService
	Notifications *service.NotificationService
	PresenceRepo  repository.PresenceRepository
	Validator     middleware.TokenValidator
	Metrics       *metrics.Metrics
}

func Setup(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, logger *zap.Logger, deps Dependencies) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Metrics))

	postHandler := handler.NewPostHandler(deps.Reconciler, deps.Posts, logger)
	presenceHandler := handler.NewPresenceHandler(deps.Tracker, deps.PresenceRepo, logger)
	activityHandler := handler.NewActivityHandler(deps.Broadcaster, deps.Listener, logger)
	notificationHandler := handler.NewNotificationHandler(deps.Notifications, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Health endpoints (no auth)
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes with base path
	api := r.Group(cfg.Server.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)

		// WebSocket endpoint (token in query, not header)
		api.GET("/ws", deps.Hub.HandleWebSocket)

		authenticated := api.Group("")
		authenticated.Use(middleware.AuthMiddleware(deps.Validator))
		{
			// Scheduled posts
			authenticated.POST("/posts", postHandler.CreatePost)
			authenticated.GET("/posts", postHandler.ListPosts)
			authenticated.GET("/posts/:postId", postHandler.GetPost)
			authenticated.PUT("/posts/:postId", postHandler.UpdatePost)
			authenticated.DELETE("/posts/:postId", postHandler.DeletePost)
			authenticated.POST("/posts/:postId/publish", postHandler.PublishPost)

			// Presence
			authenticated.GET("/presence/online", presenceHandler.GetOnlineUsers)
			authenticated.PUT("/presence", presenceHandler.UpdatePresence)
			authenticated.GET("/presence/status/:userId", presenceHandler.GetUserStatus)

			// Activity feed
			authenticated.GET("/activity", activityHandler.GetActivityFeed)
			authenticated.GET("/activity/transitions", activityHandler.GetStatusTransitions)

			// Notifications
			authenticated.GET("/notifications", notificationHandler.GetNotifications)
			authenticated.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
			authenticated.PUT("/notifications/:notificationId/read", notificationHandler.MarkAsRead)
			authenticated.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		}
	}

	return r
}
