package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nipunrajk/accessiblity-sub002/api/handler"
	"github.com/nipunrajk/accessiblity-sub002/api/middleware"
	"github.com/nipunrajk/accessiblity-sub002/audit"
	"github.com/nipunrajk/accessiblity-sub002/cache"
	"github.com/nipunrajk/accessiblity-sub002/config"
	"github.com/nipunrajk/accessiblity-sub002/content"
	"github.com/nipunrajk/accessiblity-sub002/metrics"
	"github.com/nipunrajk/accessiblity-sub002/scanner"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics endpoints sit outside auth so monitoring probes and
// Prometheus scrapes always work.
func NewRouter(sc *scanner.Scanner, au *audit.Auditor, ex *content.Extractor, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	// Prometheus scrape endpoint.
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/api/v1")

	// Health endpoint, no auth required.
	v1.GET("/health", handler.Health(sc, startTime))

	// Protected group: auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	// Scan
	protected.POST("/scan", handler.Scan(sc, au, ex, cc))

	// Screenshot
	protected.POST("/screenshot", handler.Screenshot(sc))

	// Pool introspection
	protected.GET("/pool/stats", handler.PoolStats(sc))

	return r
}
