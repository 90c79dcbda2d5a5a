package server_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Pragadees15/sport-backend/internal/chat"
	"github.com/Pragadees15/sport-backend/internal/comments"
	"github.com/Pragadees15/sport-backend/internal/database"
	"github.com/Pragadees15/sport-backend/internal/identities"
	"github.com/Pragadees15/sport-backend/internal/notifications"
	"github.com/Pragadees15/sport-backend/internal/posts"
	"github.com/Pragadees15/sport-backend/internal/server"
	"github.com/Pragadees15/sport-backend/internal/tokens"
	"github.com/Pragadees15/sport-backend/internal/users"
	"github.com/Pragadees15/sport-backend/internal/ws"
	"github.com/Pragadees15/sport-backend/pkg/models"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	return setupRouterWithConfig(t, server.Config{RateLimit: server.RateLimitConfig{Enabled: false}})
}

func setupRouterWithConfig(t *testing.T, cfg server.Config) (*gin.Engine, *gorm.DB) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, database.AutoMigrate(db))

	notificationsSvc, err := notifications.NewService(logger, db, nil, nil)
	assert.NoError(t, err)
	tokensSvc, err := tokens.NewService(logger, db, notificationsSvc, nil)
	assert.NoError(t, err)
	identitiesSvc, err := identities.NewService(logger, db, nil, tokensSvc, identities.Config{
		JWTSecret:     "test-secret",
		RefreshSecret: "test-refresh-secret",
	})
	assert.NoError(t, err)
	usersSvc, err := users.NewService(logger, db, notificationsSvc)
	assert.NoError(t, err)
	postsSvc, err := posts.NewService(logger, db, notificationsSvc, usersSvc, nil)
	assert.NoError(t, err)
	commentsSvc, err := comments.NewService(logger, db, notificationsSvc)
	assert.NoError(t, err)
	chatSvc, err := chat.NewService(logger, db, notificationsSvc, usersSvc, nil)
	assert.NoError(t, err)

	hub := ws.NewHub(logger, nil, server.ChatTopicAuthorizer(chatSvc), 4, 100)
	t.Cleanup(func() { hub.Shutdown() })

	srv := server.NewServer(
		logger, identitiesSvc, usersSvc, postsSvc, commentsSvc,
		chatSvc, notificationsSvc, tokensSvc, nil, hub, nil,
		cfg,
	)
	return srv.Router(), db
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func registerAndLogin(t *testing.T, router *gin.Engine, username string) (string, *models.User) {
	w, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    username + "@example.com",
		"username": username,
		"password": "password123",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	var user models.User
	assert.NoError(t, json.Unmarshal(env.Data, &user))

	w, env = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"login":    username,
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.LoginResponse
	assert.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp.Token)
	return resp.Token, &user
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginEnvelope(t *testing.T) {
	router, _ := setupRouter(t)
	token, user := registerAndLogin(t, router, "alice")
	assert.NotEmpty(t, token)
	assert.Equal(t, "alice", user.Username)

	// Registration seeds the token account with the signup bonus
	w, env := doJSON(t, router, http.MethodGet, "/api/v1/tokens/account", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var account models.TokenAccount
	assert.NoError(t, json.Unmarshal(env.Data, &account))
	assert.Equal(t, float64(tokens.SignupBonus), account.Balance)
}

func TestCORSAllowedOrigins(t *testing.T) {
	router, _ := setupRouterWithConfig(t, server.Config{
		AllowedOrigins: []string{"https://app.example.com"},
		RateLimit:      server.RateLimitConfig{Enabled: false},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// Unlisted origins are refused outright
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "not-an-email",
		"username": "x",
		"password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.NotNil(t, env.Error)
	assert.NotEmpty(t, env.Error.Message)
}

func TestUnauthorized(t *testing.T) {
	router, _ := setupRouter(t)

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/users/me", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	router, _ := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router, "alice")
	bobToken, _ := registerAndLogin(t, router, "bob")

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/posts", aliceToken, gin.H{
		"content": "match day!",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var post models.Post
	assert.NoError(t, json.Unmarshal(env.Data, &post))

	w, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/like", post.ID), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Double like maps to 400
	w, _ = doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/posts/%s/like", post.ID), bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doJSON(t, router, http.MethodGet, "/api/v1/posts/"+post.ID.String(), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var got models.Post
	assert.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, int64(1), got.LikeCount)

	// Bob cannot edit alice's post
	w, _ = doJSON(t, router, http.MethodPut, "/api/v1/posts/"+post.ID.String(), bobToken, gin.H{"content": "mine now"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Missing post maps to 404
	w, _ = doJSON(t, router, http.MethodGet, "/api/v1/posts/00000000-0000-0000-0000-000000000000", bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFollowNotifiesOverHTTP(t *testing.T) {
	router, _ := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router, "alice")
	bobToken, bob := registerAndLogin(t, router, "bob")

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/users/"+bob.ID.String()+"/follow", aliceToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/notifications/unread-count", bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var data struct {
		Unread int64 `json:"unread"`
	}
	assert.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1), data.Unread)
}

func TestTipOverHTTP(t *testing.T) {
	router, _ := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router, "alice")
	_, bob := registerAndLogin(t, router, "bob")

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/tokens/tip", aliceToken, gin.H{
		"to_user_id": bob.ID.String(),
		"amount":     25,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// Overdraft maps to 400
	w, env := doJSON(t, router, http.MethodPost, "/api/v1/tokens/tip", aliceToken, gin.H{
		"to_user_id": bob.ID.String(),
		"amount":     1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, env.Error.Message, "insufficient")
}

func TestAdminRoutesForbiddenForUsers(t *testing.T) {
	router, _ := setupRouter(t)
	aliceToken, _ := registerAndLogin(t, router, "alice")

	w, _ := doJSON(t, router, http.MethodGet, "/api/v1/admin/users", aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminBanOverHTTP(t *testing.T) {
	router, db := setupRouter(t)
	adminToken, admin := registerAndLogin(t, router, "admin1")
	_, target := registerAndLogin(t, router, "target")

	// Promote through the database, as an operator would
	assert.NoError(t, db.Model(&models.User{}).Where("id = ?", admin.ID).Update("role", "admin").Error)

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/admin/users/"+target.ID.String()+"/ban", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Banned users cannot log in
	w, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"login":    "target",
		"password": "password123",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, env.Error.Message, "banned")

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/admin/users/"+target.ID.String()+"/ban", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"login":    "target",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
