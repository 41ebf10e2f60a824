package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prodex/models"
)

// PoolStatser reports browser page pool utilisation. Nil when the
// browser is disabled.
type PoolStatser interface {
	Stats() models.PoolStats
}

// Health returns the handler for GET /health.
//
// Reports pool utilisation and degrades status when > 80% of pages are active.
func Health(pool PoolStatser, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.PoolStats
		if pool != nil {
			stats = pool.Stats()
		}

		status := "ok"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    status,
			Service:   "prodex",
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			PoolStats: stats,
		})
	}
}
