package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dashcheck/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "busy" while every run slot is taken; new runs still queue.
func Health(runs *Runs, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, max := runs.Stats()

		status := "healthy"
		if active >= max {
			status = "busy"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			ActiveRuns: active,
			MaxRuns:    max,
			Version:    Version,
		})
	}
}
