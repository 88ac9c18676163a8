package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/healthpoint-api/internal/middleware"
	"github.com/jwalitptl/healthpoint-api/pkg/metrics"
)

// Handler is a route group that needs no authentication.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AuthHandler is a route group with per-role protected routes.
type AuthHandler interface {
	RegisterRoutes(*gin.RouterGroup, *middleware.AuthMiddleware)
}

type Router struct {
	engine  *gin.Engine
	auth    *middleware.AuthMiddleware
	healthH Handler
	panels  []AuthHandler
}

type RouterConfig struct {
	RateLimit      rate.Limit
	RateBurst      int
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MaxBodySize    int64
	MaxUploadSize  int64
	// MediaDir and MediaURL serve uploaded images when both are set.
	MediaDir string
	MediaURL string
	Metrics  *metrics.Metrics
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	healthH Handler,
	config RouterConfig,
	panels ...AuthHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:  engine,
		auth:    auth,
		healthH: healthH,
		panels:  panels,
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)
	if config.Metrics != nil {
		engine.Use(middleware.Metrics(config.Metrics))
	}
	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.ErrorHandler(),
		middleware.Validation(),
	)

	if config.RateLimit > 0 {
		engine.Use(middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		}).RateLimit())
	}

	sizes := middleware.DefaultSizeLimitConfig()
	if config.MaxBodySize > 0 {
		sizes.MaxBodySize = config.MaxBodySize
	}
	if config.MaxUploadSize > 0 {
		sizes.MaxUploadSize = config.MaxUploadSize
	}
	engine.Use(middleware.SizeLimit(sizes))

	if config.MediaDir != "" && config.MediaURL != "" {
		engine.Static(config.MediaURL, config.MediaDir)
	}
	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	r.healthH.RegisterRoutes(api)
	for _, p := range r.panels {
		p.RegisterRoutes(api, r.auth)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
