package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stroomweg/internal/broker"
)

type HealthHandler struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func (h *HealthHandler) Register(r *gin.Engine) {
	r.GET("/health", h.health)
}

func (h *HealthHandler) health(c *gin.Context) {
	ctx := c.Request.Context()

	dbOK := false
	if h.DB != nil {
		if sqlDB, err := h.DB.DB(); err == nil && sqlDB.PingContext(ctx) == nil {
			dbOK = true
		}
	}

	redisOK := false
	var speedTS, jtTS *string
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err == nil {
			redisOK = true
		}
		if v, err := h.Redis.Get(ctx, broker.KeySpeedsTimestamp).Result(); err == nil && v != "" {
			speedTS = &v
		}
		if v, err := h.Redis.Get(ctx, broker.KeyJourneyTimeTimestamp).Result(); err == nil && v != "" {
			jtTS = &v
		}
	}

	status := "healthy"
	if !dbOK || !redisOK {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            status,
		"database":          connState(dbOK),
		"redis":             connState(redisOK),
		"last_speed_update": speedTS,
		"last_jt_update":    jtTS,
		"checked_at":        time.Now().UTC().Format(time.RFC3339),
	})
}

func connState(ok bool) string {
	if ok {
		return "connected"
	}
	return "disconnected"
}
