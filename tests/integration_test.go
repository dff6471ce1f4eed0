package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/cache"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/executor"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/handlers"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/health"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/middleware"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/notify"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/presence"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/ratelimit"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/storetest"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/pkg/models"
)

func setupRouter(t *testing.T, maxRequests int) (*gin.Engine, *storetest.Server) {
	srv := storetest.New()
	t.Cleanup(srv.Close)

	logger := zaptest.NewLogger(t)
	exec := executor.New(srv.Config(), logger)

	cacheSvc := cache.New(exec, nil, logger)
	notifyStore := notify.New(exec, logger)
	tracker := presence.New(exec, logger)
	limiter := ratelimit.New(exec, logger)
	checker := health.New(exec, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())
	router.Use(middleware.RateLimiter(limiter, maxRequests, time.Minute))

	handler := handlers.New(cacheSvc, notifyStore, tracker, checker, logger)

	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	{
		cacheGroup := api.Group("/cache")
		{
			cacheGroup.PUT("/:key", handler.SetItem)
			cacheGroup.GET("/:key", handler.GetItem)
			cacheGroup.DELETE("/:key", handler.DeleteItem)
			cacheGroup.POST("/invalidate", handler.InvalidatePattern)
		}

		notifications := api.Group("/notifications")
		{
			notifications.POST("/:userId", handler.StoreNotification)
			notifications.GET("/:userId", handler.GetNotifications)
			notifications.POST("/:userId/:id/read", handler.MarkNotificationRead)
			notifications.GET("/:userId/unread", handler.UnreadCount)
			notifications.DELETE("/:userId", handler.ClearNotifications)
		}

		presenceGroup := api.Group("/presence")
		{
			presenceGroup.GET("", handler.GetOnlineUsers)
			presenceGroup.POST("/:userId/heartbeat", handler.Heartbeat)
			presenceGroup.GET("/:userId", handler.GetPresence)
			presenceGroup.DELETE("/:userId", handler.SignOff)
		}
	}

	return router, srv
}

func do(router *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if payload != nil {
		data, _ := json.Marshal(payload)
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAPI_CacheFlow(t *testing.T) {
	router, _ := setupRouter(t, 1000)

	w := do(router, "PUT", "/api/v1/cache/course:1", map[string]interface{}{
		"value": map[string]interface{}{"title": "Algebra"},
		"ttl":   "1h",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/cache/course:1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Key   string                 `json:"key"`
		Value map[string]interface{} `json:"value"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "course:1", response.Key)
	assert.Equal(t, "Algebra", response.Value["title"])

	w = do(router, "DELETE", "/api/v1/cache/course:1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/cache/course:1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAPI_CacheInvalidate(t *testing.T) {
	router, _ := setupRouter(t, 1000)

	for _, key := range []string{"course:1", "course:2", "user:1"} {
		w := do(router, "PUT", "/api/v1/cache/"+key, map[string]interface{}{"value": "x"})
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := do(router, "POST", "/api/v1/cache/invalidate", map[string]interface{}{"pattern": "course:*"})
	require.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 2, response.Deleted)

	w = do(router, "GET", "/api/v1/cache/user:1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPI_NotificationFlow(t *testing.T) {
	router, _ := setupRouter(t, 1000)

	for _, id := range []string{"n1", "n2", "n3"} {
		w := do(router, "POST", "/api/v1/notifications/u1", map[string]interface{}{
			"id":      id,
			"type":    "assignment",
			"title":   "New assignment",
			"message": "Homework " + id,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := do(router, "GET", "/api/v1/notifications/u1?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResponse struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResponse))
	require.Len(t, listResponse.Notifications, 3)
	assert.Equal(t, "n3", listResponse.Notifications[0].ID)

	w = do(router, "POST", "/api/v1/notifications/u1/n2/read", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/notifications/u1/unread", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var unreadResponse struct {
		Unread int `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &unreadResponse))
	assert.Equal(t, 2, unreadResponse.Unread)

	w = do(router, "DELETE", "/api/v1/notifications/u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/notifications/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResponse))
	assert.Empty(t, listResponse.Notifications)
}

func TestAPI_PresenceFlow(t *testing.T) {
	router, _ := setupRouter(t, 1000)

	w := do(router, "POST", "/api/v1/presence/u1/heartbeat", map[string]interface{}{"page": "/dashboard"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/presence/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var presenceResponse struct {
		UserID string `json:"user_id"`
		Online bool   `json:"online"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presenceResponse))
	assert.True(t, presenceResponse.Online)

	w = do(router, "GET", "/api/v1/presence", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var onlineResponse struct {
		OnlineUsers []string `json:"online_users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &onlineResponse))
	assert.Contains(t, onlineResponse.OnlineUsers, "u1")

	w = do(router, "DELETE", "/api/v1/presence/u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/presence/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &presenceResponse))
	assert.False(t, presenceResponse.Online)
}

func TestAPI_Health(t *testing.T) {
	router, srv := setupRouter(t, 1000)

	w := do(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	srv.Close()

	w = do(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAPI_RateLimitMiddleware(t *testing.T) {
	router, _ := setupRouter(t, 2)

	for i := 0; i < 2; i++ {
		w := do(router, "GET", "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := do(router, "GET", "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAPI_DegradedWhenStoreUnreachable(t *testing.T) {
	router, srv := setupRouter(t, 1000)
	srv.Close()

	// The rate limiter fails open, so requests still get through; reads
	// degrade to absence instead of errors.
	w := do(router, "GET", "/api/v1/notifications/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResponse struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResponse))
	assert.Empty(t, listResponse.Notifications)

	w = do(router, "GET", "/api/v1/presence/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(router, "GET", "/api/v1/cache/course:1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
