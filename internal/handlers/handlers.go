package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/cache"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/health"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/notify"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/internal/presence"
	"github.com/sobirovsardorLearnBox/learnflow-academy-sub000/pkg/models"
)

// CoordinationHandler exposes the coordination layer over HTTP for the
// platform's request handlers.
type CoordinationHandler struct {
	cache    *cache.Service
	notify   *notify.Store
	presence *presence.Tracker
	health   *health.Checker
	logger   *zap.Logger
}

// New creates the handler set.
func New(cacheSvc *cache.Service, notifyStore *notify.Store, tracker *presence.Tracker, checker *health.Checker, logger *zap.Logger) *CoordinationHandler {
	return &CoordinationHandler{
		cache:    cacheSvc,
		notify:   notifyStore,
		presence: tracker,
		health:   checker,
		logger:   logger,
	}
}

// Health handles GET /health.
func (h *CoordinationHandler) Health(c *gin.Context) {
	status := h.health.Check(c.Request.Context())
	code := http.StatusOK
	if !status.Connected {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"connected": status.Connected,
		"latency":   status.Latency.String(),
	})
}

// SetItem handles PUT /cache/:key.
func (h *CoordinationHandler) SetItem(c *gin.Context) {
	key := c.Param("key")

	var request struct {
		Value interface{} `json:"value"`
		TTL   string      `json:"ttl,omitempty"` // Duration in format "1h", "30m", "60s"
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		h.logger.Warn("invalid request body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ttl := cache.TTLMedium
	if request.TTL != "" {
		parsed, err := time.ParseDuration(request.TTL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid TTL format"})
			return
		}
		ttl = parsed
	}

	if err := h.cache.Set(c.Request.Context(), key, request.Value, ttl); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to set cache item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item stored successfully"})
}

// GetItem handles GET /cache/:key.
func (h *CoordinationHandler) GetItem(c *gin.Context) {
	key := c.Param("key")

	value, ok, err := cache.Get[interface{}](c.Request.Context(), h.cache, key)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get cache item"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

// DeleteItem handles DELETE /cache/:key.
func (h *CoordinationHandler) DeleteItem(c *gin.Context) {
	key := c.Param("key")
	if err := h.cache.Delete(c.Request.Context(), key); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete cache item"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "item deleted successfully"})
}

// InvalidatePattern handles POST /cache/invalidate.
func (h *CoordinationHandler) InvalidatePattern(c *gin.Context) {
	var request struct {
		Pattern string `json:"pattern"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.Pattern == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pattern is required"})
		return
	}

	deleted, err := h.cache.InvalidatePattern(c.Request.Context(), request.Pattern)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to invalidate pattern", "deleted": deleted})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// StoreNotification handles POST /notifications/:userId.
func (h *CoordinationHandler) StoreNotification(c *gin.Context) {
	userID := c.Param("userId")

	var record models.Notification
	if err := c.ShouldBindJSON(&record); err != nil {
		h.logger.Warn("invalid notification body", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.notify.Store(c.Request.Context(), userID, &record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store notification"})
		return
	}
	c.JSON(http.StatusCreated, record)
}

// GetNotifications handles GET /notifications/:userId.
func (h *CoordinationHandler) GetNotifications(c *gin.Context) {
	userID := c.Param("userId")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	feed, err := h.notify.List(c.Request.Context(), userID, limit)
	if err != nil {
		// Degraded: an unavailable feed reads as empty.
		c.JSON(http.StatusOK, gin.H{"notifications": []*models.Notification{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": feed})
}

// MarkNotificationRead handles POST /notifications/:userId/:id/read.
func (h *CoordinationHandler) MarkNotificationRead(c *gin.Context) {
	userID := c.Param("userId")
	id := c.Param("id")

	if err := h.notify.MarkRead(c.Request.Context(), userID, id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// UnreadCount handles GET /notifications/:userId/unread.
func (h *CoordinationHandler) UnreadCount(c *gin.Context) {
	userID := c.Param("userId")
	count, _ := h.notify.UnreadCount(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// ClearNotifications handles DELETE /notifications/:userId.
func (h *CoordinationHandler) ClearNotifications(c *gin.Context) {
	userID := c.Param("userId")
	if err := h.notify.Clear(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notifications cleared"})
}

// Heartbeat handles POST /presence/:userId/heartbeat.
func (h *CoordinationHandler) Heartbeat(c *gin.Context) {
	userID := c.Param("userId")

	var metadata map[string]interface{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&metadata); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if err := h.presence.SetOnline(c.Request.Context(), userID, metadata); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record heartbeat"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "heartbeat recorded"})
}

// SignOff handles DELETE /presence/:userId.
func (h *CoordinationHandler) SignOff(c *gin.Context) {
	userID := c.Param("userId")
	if err := h.presence.SetOffline(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign off"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed off"})
}

// GetPresence handles GET /presence/:userId.
func (h *CoordinationHandler) GetPresence(c *gin.Context) {
	userID := c.Param("userId")
	online, _ := h.presence.IsOnline(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": online})
}

// GetOnlineUsers handles GET /presence.
func (h *CoordinationHandler) GetOnlineUsers(c *gin.Context) {
	users, _ := h.presence.OnlineUsers(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"online_users": users})
}
