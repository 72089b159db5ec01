package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health reports liveness of the API and its two backing stores. Returns 503
// when either store is unreachable so the orchestrator can recycle the pod.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		postgresUp := false
		if sqlDB, err := db.DB(); err == nil && sqlDB.PingContext(ctx) == nil {
			postgresUp = true
		}
		redisUp := rdb.Ping(ctx).Err() == nil

		status := http.StatusOK
		if !postgresUp || !redisUp {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"db":    storeStatus(postgresUp),
			"redis": storeStatus(redisUp),
		})
	}
}

func storeStatus(up bool) string {
	if up {
		return "connected"
	}
	return "error"
}
