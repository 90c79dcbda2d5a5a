package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Pragadees15/sport-backend/internal/chat"
	"github.com/Pragadees15/sport-backend/internal/comments"
	"github.com/Pragadees15/sport-backend/internal/identities"
	"github.com/Pragadees15/sport-backend/internal/notifications"
	"github.com/Pragadees15/sport-backend/internal/posts"
	"github.com/Pragadees15/sport-backend/internal/tokens"
	"github.com/Pragadees15/sport-backend/internal/upload"
	"github.com/Pragadees15/sport-backend/internal/users"
	"github.com/Pragadees15/sport-backend/internal/ws"
	"github.com/Pragadees15/sport-backend/pkg/metrics"
)

// Server represents the HTTP server
// Config carries router-level settings
type Config struct {
	AllowedOrigins []string
	RateLimit      RateLimitConfig
}

type Server struct {
	logger           *zap.Logger
	identitiesSvc    identities.IdentityService
	usersSvc         users.UserService
	postsSvc         posts.PostService
	commentsSvc      comments.CommentService
	chatSvc          chat.ChatService
	notificationsSvc notifications.NotificationService
	tokensSvc        tokens.TokenService
	uploadSvc        upload.UploadService
	hub              *ws.Hub
	rateLimiter      *RateLimiter
	allowedOrigins   []string
}

// NewServer creates a new HTTP server
func NewServer(
	logger *zap.Logger,
	identitiesSvc identities.IdentityService,
	usersSvc users.UserService,
	postsSvc posts.PostService,
	commentsSvc comments.CommentService,
	chatSvc chat.ChatService,
	notificationsSvc notifications.NotificationService,
	tokensSvc tokens.TokenService,
	uploadSvc upload.UploadService,
	hub *ws.Hub,
	redisClient *redis.Client,
	cfg Config,
) *Server {
	return &Server{
		logger:           logger,
		identitiesSvc:    identitiesSvc,
		usersSvc:         usersSvc,
		postsSvc:         postsSvc,
		commentsSvc:      commentsSvc,
		chatSvc:          chatSvc,
		notificationsSvc: notificationsSvc,
		tokensSvc:        tokensSvc,
		uploadSvc:        uploadSvc,
		hub:              hub,
		rateLimiter:      NewRateLimiter(logger, redisClient, cfg.RateLimit),
		allowedOrigins:   cfg.AllowedOrigins,
	}
}

// Router creates a new HTTP router
func (s *Server) Router() *gin.Engine {
	// Create router
	router := gin.New()

	// Add middleware
	router.Use(ginzap.Ginzap(s.logger, "2006-01-02T15:04:05Z07:00", true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware("sportsfeed"))
	router.Use(s.corsMiddleware())
	router.Use(s.metricsMiddleware())

	// Add health check and metrics
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Add WebSocket route
	router.GET("/ws", s.authMiddleware(), s.handleWebSocket)

	// Add API routes
	api := router.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			// Add auth routes (tighter per-IP rate limit)
			auth := v1.Group("/auth", s.rateLimiter.AuthMiddleware())
			{
				auth.POST("/register", s.handleRegister)
				auth.POST("/login", s.handleLogin)
				auth.POST("/refresh", s.handleRefreshToken)
				auth.POST("/logout", s.authMiddleware(), s.handleLogout)
				auth.POST("/2fa/enable", s.authMiddleware(), s.handle2FAEnable)
				auth.POST("/2fa/verify", s.authMiddleware(), s.handle2FAVerifySetup)
				auth.POST("/2fa/login", s.handle2FALogin)
				auth.POST("/2fa/disable", s.authMiddleware(), s.handle2FADisable)
			}

			// Add user routes
			usersGroup := v1.Group("/users", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				usersGroup.GET("/me", s.handleGetMe)
				usersGroup.PUT("/me", s.handleUpdateMe)
				usersGroup.GET("/search", s.handleSearchUsers)
				usersGroup.GET("/:id", s.handleGetProfile)
				usersGroup.GET("/:id/posts", s.handleListUserPosts)
				usersGroup.GET("/:id/followers", s.handleListFollowers)
				usersGroup.GET("/:id/following", s.handleListFollowing)
				usersGroup.POST("/:id/follow", s.handleFollow)
				usersGroup.DELETE("/:id/follow", s.handleUnfollow)
				usersGroup.POST("/:id/block", s.handleBlock)
				usersGroup.DELETE("/:id/block", s.handleUnblock)
				usersGroup.POST("/:id/report", s.handleReportUser)
			}

			// Add post routes
			postsGroup := v1.Group("/posts", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				postsGroup.POST("", s.handleCreatePost)
				postsGroup.GET("/feed", s.handleFeed)
				postsGroup.GET("/saved", s.handleListSavedPosts)
				postsGroup.GET("/:id", s.handleGetPost)
				postsGroup.PUT("/:id", s.handleUpdatePost)
				postsGroup.DELETE("/:id", s.handleDeletePost)
				postsGroup.POST("/:id/like", s.handleLikePost)
				postsGroup.DELETE("/:id/like", s.handleUnlikePost)
				postsGroup.POST("/:id/save", s.handleSavePost)
				postsGroup.DELETE("/:id/save", s.handleUnsavePost)
				postsGroup.GET("/:id/comments", s.handleListComments)
				postsGroup.POST("/:id/comments", s.handleCreateComment)
			}

			// Add comment routes
			commentsGroup := v1.Group("/comments", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				commentsGroup.DELETE("/:id", s.handleDeleteComment)
				commentsGroup.POST("/:id/like", s.handleLikeComment)
				commentsGroup.DELETE("/:id/like", s.handleUnlikeComment)
			}

			// Add messaging routes
			conversations := v1.Group("/conversations", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				conversations.POST("", s.handleCreateConversation)
				conversations.GET("", s.handleListConversations)
				conversations.GET("/:id/messages", s.handleListMessages)
				conversations.POST("/:id/messages", s.handleSendMessage)
				conversations.POST("/:id/read", s.handleMarkConversationRead)
			}

			// Add notification routes
			notificationsGroup := v1.Group("/notifications", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				notificationsGroup.GET("", s.handleListNotifications)
				notificationsGroup.GET("/unread-count", s.handleUnreadCount)
				notificationsGroup.POST("/:id/read", s.handleMarkNotificationRead)
				notificationsGroup.POST("/read-all", s.handleMarkAllNotificationsRead)
				notificationsGroup.DELETE("/:id", s.handleDeleteNotification)
			}

			// Add token economy routes
			tokensGroup := v1.Group("/tokens", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				tokensGroup.GET("/account", s.handleGetTokenAccount)
				tokensGroup.GET("/transactions", s.handleListTokenTransactions)
				tokensGroup.POST("/earn", s.handleEarnTokens)
				tokensGroup.POST("/spend", s.handleSpendTokens)
				tokensGroup.POST("/tip", s.handleTipTokens)
			}

			// Add upload routes
			uploadGroup := v1.Group("/upload", s.authMiddleware(), s.rateLimiter.Middleware())
			{
				uploadGroup.POST("/image", s.handleUploadImage)
				uploadGroup.POST("/video", s.handleUploadVideo)
				uploadGroup.DELETE("", s.handleDeleteAsset)
			}

			// Add presence route
			v1.GET("/presence/:id", s.authMiddleware(), s.handleGetPresence)

			// Add admin routes
			admin := v1.Group("/admin", s.authMiddleware(), s.adminMiddleware())
			{
				admin.GET("/users", s.handleAdminListUsers)
				admin.POST("/users/:id/ban", s.handleAdminBanUser)
				admin.DELETE("/users/:id/ban", s.handleAdminUnbanUser)
				admin.DELETE("/posts/:id", s.handleAdminDeletePost)
				admin.DELETE("/comments/:id", s.handleAdminDeleteComment)
				admin.GET("/reports", s.handleAdminListReports)
				admin.PUT("/reports/:id", s.handleAdminResolveReport)
				admin.POST("/tokens/grant", s.handleAdminGrantTokens)
			}
		}
	}

	return router
}

// authMiddleware creates a middleware for authentication
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get token from header
		token := c.GetHeader("Authorization")
		if token == "" {
			// WebSocket clients cannot set headers from browsers, allow query token
			token = c.Query("token")
		}
		if token == "" {
			s.writeError(c, fmt.Errorf("unauthorized: missing authorization header"))
			c.Abort()
			return
		}

		// Remove "Bearer " prefix if present
		if strings.HasPrefix(token, "Bearer ") {
			token = token[7:]
		}

		userID, err := s.identitiesSvc.ValidateToken(c.Request.Context(), token)
		if err != nil {
			s.writeError(c, fmt.Errorf("unauthorized: %w", err))
			c.Abort()
			return
		}

		// Set user ID in context
		c.Set("userID", userID)
		c.Next()
	}
}

// adminMiddleware creates a middleware for admin authorization
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			s.writeError(c, fmt.Errorf("unauthorized: missing user ID"))
			c.Abort()
			return
		}

		isAdmin, err := s.identitiesSvc.IsAdmin(c.Request.Context(), userID.(uuid.UUID))
		if err != nil {
			s.writeError(c, fmt.Errorf("internal error: %w", err))
			c.Abort()
			return
		}

		if !isAdmin {
			s.writeError(c, fmt.Errorf("forbidden: admin access required"))
			c.Abort()
			return
		}

		c.Next()
	}
}

// corsMiddleware restricts cross-origin requests to the configured origins.
// Without configured origins every origin is allowed.
func (s *Server) corsMiddleware() gin.HandlerFunc {
	if len(s.allowedOrigins) == 0 {
		return cors.Default()
	}

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = s.allowedOrigins
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	corsCfg.AllowCredentials = true
	return cors.New(corsCfg)
}

// metricsMiddleware records request counts and latency
func (s *Server) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		metrics.HTTPLatency.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// handleWebSocket upgrades the connection for the authenticated user
func (s *Server) handleWebSocket(c *gin.Context) {
	userID := c.MustGet("userID").(uuid.UUID)
	s.hub.ServeWS(c.Writer, c.Request, userID)
}

// handleGetPresence reports whether a user is currently connected
func (s *Server) handleGetPresence(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, fmt.Errorf("invalid user id"))
		return
	}

	online, err := s.hub.IsOnline(c.Request.Context(), targetID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	s.writeData(c, http.StatusOK, gin.H{"user_id": targetID, "online": online})
}

// currentUserID reads the authenticated user from the gin context
func (s *Server) currentUserID(c *gin.Context) uuid.UUID {
	return c.MustGet("userID").(uuid.UUID)
}

// pagination reads limit/offset query params with sane bounds
func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ChatTopicAuthorizer returns the hub authorizer wired to chat membership
func ChatTopicAuthorizer(chatSvc chat.ChatService) ws.TopicAuthorizer {
	return func(ctx context.Context, userID uuid.UUID, topic string) bool {
		switch {
		case strings.HasPrefix(topic, "user:"):
			return topic == "user:"+userID.String()
		case strings.HasPrefix(topic, "chat:"):
			conversationID, err := uuid.Parse(strings.TrimPrefix(topic, "chat:"))
			if err != nil {
				return false
			}
			// Membership check doubles as existence check
			_, err = chatSvc.ListMessages(ctx, conversationID, userID, 1, 0)
			return err == nil
		default:
			return false
		}
	}
}
