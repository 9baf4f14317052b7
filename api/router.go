package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/flighttrack/api/handler"
	"github.com/use-agent/flighttrack/api/middleware"
	"github.com/use-agent/flighttrack/config"
	"github.com/use-agent/flighttrack/metrics"
)

// Deps are the components the routes are wired to.
type Deps struct {
	Tracker    handler.Tracker
	Store      handler.Pinger
	EngineName string
	Metrics    *metrics.Metrics
	StartTime  time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	Track:   Auth (if API keys are configured)
//
// Health and metrics sit outside auth so monitoring probes always work.
func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(deps.Metrics.Handler()))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(deps.Store, deps.EngineName, deps.StartTime))

	protected := v1.Group("")
	protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	protected.GET("/track-flight", handler.TrackFlight(deps.Tracker))

	return r
}
