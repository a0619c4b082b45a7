// Package router 提供 HTTP 路由配置
package router

import (
	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/internal/interfaces/http/handler"
	"regdraft-ai-api/internal/interfaces/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Health    *handler.HealthHandler
	Session   *handler.SessionHandler
	Pipeline  *handler.PipelineHandler
	Summary   *handler.SummaryHandler
	Notes     *handler.NotesHandler
	Dashboard *handler.DashboardHandler
}

// Deps 中间件依赖；Limiter 与 Tokens 可为空
type Deps struct {
	Sessions middleware.SessionLookup
	Tokens   middleware.TokenParser
	Limiter  middleware.RateLimiter
}

// Router HTTP 路由器
type Router struct {
	engine   *gin.Engine
	cfg      *config.Config
	handlers Handlers
	deps     Deps
}

// New 创建新的路由器
func New(cfg *config.Config, handlers Handlers, deps Deps) *Router {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:   gin.New(),
		cfg:      cfg,
		handlers: handlers,
		deps:     deps,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// Engine 返回 Gin Engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.RequestID())

	r.engine.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: r.cfg.Security.CORS.AllowedOrigins,
		AllowedMethods: r.cfg.Security.CORS.AllowedMethods,
		AllowedHeaders: r.cfg.Security.CORS.AllowedHeaders,
	}))

	if r.cfg.Observability.Tracing.Enabled {
		r.engine.Use(middleware.Trace(r.cfg.App.Name))
		r.engine.Use(middleware.TraceContext())
	}

	if r.cfg.Observability.Metrics.Enabled {
		r.engine.Use(middleware.Metrics())
	}

	r.engine.Use(middleware.Audit(middleware.AuditConfig{
		Enabled:   true,
		SkipPaths: middleware.DefaultAuditSkipPaths,
	}))
}

func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.handlers.Health.Health)
	r.engine.GET("/ready", r.handlers.Health.Ready)
	r.engine.GET("/live", r.handlers.Health.Live)

	if r.cfg.Observability.Metrics.Enabled {
		path := r.cfg.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.engine.GET(path, gin.WrapH(promhttp.Handler()))
	}

	limit := middleware.RateLimit(middleware.RateLimitConfig{
		Enabled:           r.cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: r.cfg.Security.RateLimit.RequestsPerSecond,
	}, r.deps.Limiter)

	v1 := r.engine.Group("/v1")
	v1.POST("/sessions", limit, r.handlers.Session.CreateSession)

	authed := v1.Group("")
	authed.Use(
		middleware.SessionAuth(middleware.SessionAuthConfig{Enabled: r.cfg.Security.Auth.Enabled}, r.deps.Sessions, r.deps.Tokens),
		limit,
	)
	RegisterV1Routes(authed, r.handlers)
}
