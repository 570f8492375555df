// Package api exposes the run executor over HTTP.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/dashcheck/api/handler"
	"github.com/use-agent/dashcheck/api/middleware"
	"github.com/use-agent/dashcheck/config"
)

// NewRouter creates the gin engine.
//
//	GET  /api/v1/health     no auth
//	POST /api/v1/runs       auth, rate limited
//	GET  /api/v1/runs/:id   auth, rate limited
//
// ctx bounds the rate limiter's background sweep.
func NewRouter(ctx context.Context, runs *handler.Runs, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(runs, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	protected.POST("/runs", runs.Post())
	protected.GET("/runs/:id", runs.Get())

	return r
}
