package http

import (
	"github.com/gin-gonic/gin"

	"github.com/leaselens/leaselens/internal/application/analysis"
	"github.com/leaselens/leaselens/internal/config"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/logging"
	"github.com/leaselens/leaselens/internal/infrastructure/monitoring/prometheus"
)

// RouterConfig aggregates everything the route tree needs.  Optional
// collaborators may be nil; the corresponding middleware or endpoint is then
// simply not mounted.
type RouterConfig struct {
	Service *analysis.Service

	// Checkers feed the readiness endpoint, keyed by dependency name.
	Checkers map[string]Checker

	Server    config.ServerConfig
	RateLimit config.RateLimitConfig

	Logger  logging.Logger
	Metrics *prometheus.Metrics
}

// NewRouter builds the complete gin engine: global middleware, health and
// metrics endpoints, and the versioned API group.
func NewRouter(cfg RouterConfig) *gin.Engine {
	switch cfg.Server.Mode {
	case gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Logger != nil {
		r.Use(requestLogger(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(requestMetrics(cfg.Metrics))
	}
	if cfg.RateLimit.Enabled {
		r.Use(rateLimiter(cfg.RateLimit))
	}
	if cfg.Server.MaxBodySize > 0 {
		r.Use(bodySizeLimit(cfg.Server.MaxBodySize))
	}

	health := &healthHandler{checkers: cfg.Checkers}
	r.GET("/healthz", health.live)
	r.GET("/readyz", health.ready)

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	registerAnalysisRoutes(api, cfg.Service)

	return r
}

// registerAnalysisRoutes mounts the contract and offer endpoints.
func registerAnalysisRoutes(api *gin.RouterGroup, service *analysis.Service) {
	if service == nil {
		return
	}
	h := &analysisHandler{service: service}

	contracts := api.Group("/contracts")
	contracts.POST("/analyze", h.analyze)
	contracts.POST("/analyze-batch", h.analyzeBatch)
	contracts.POST("/extract", h.extract)

	offers := api.Group("/offers")
	offers.POST("/score", h.score)
	offers.POST("/compare", h.compare)
	offers.GET("/:id", h.getOffer)
}
