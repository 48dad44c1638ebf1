package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nipunrajk/accessiblity-sub002/models"
	"github.com/nipunrajk/accessiblity-sub002/scanner"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports worker pool utilisation and degrades status when more than 80%
// of the workers are busy.
func Health(sc *scanner.Scanner, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := sc.Stats()

		status := "healthy"
		if stats.MaxWorkers > 0 && stats.InUse > int(float64(stats.MaxWorkers)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
			Version:   "0.1.0",
		})
	}
}

// PoolStats returns a handler for GET /api/v1/pool/stats.
func PoolStats(sc *scanner.Scanner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, sc.Stats())
	}
}
