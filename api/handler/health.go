package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flighttrack/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Pinger checks that storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health returns a handler for GET /api/v1/health.
//
// Reports 503 "degraded" when the lookup cache cannot be reached.
func Health(store Pinger, engineName string, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		code, status, storage := http.StatusOK, "healthy", "ok"
		if err := store.Ping(ctx); err != nil {
			code, status, storage = http.StatusServiceUnavailable, "degraded", err.Error()
		}

		c.JSON(code, models.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Engine:  engineName,
			Storage: storage,
			Version: Version,
		})
	}
}
