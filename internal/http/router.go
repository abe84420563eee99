package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/http/middlewares"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps are the process-level collaborators the router wires into handlers.
type Deps struct {
	// Users backs every auth operation (postgres.UsersRepo or memory.UsersRepo).
	Users service.UserStore
	// Ping reports store readiness for /readyz. Nil means always ready.
	Ping func(ctx context.Context) error
	// Draining flips /readyz to 503 once shutdown has begun.
	Draining func() bool
	// Prom and Gatherer are optional. Without them /metrics is not mounted.
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != config.EnvDev {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	// global so preflights reach it before routing
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))

	var (
		outcomes      service.OutcomeRecorder
		verifications middlewares.VerificationRecorder
	)
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
		outcomes = deps.Prom
		verifications = deps.Prom
	}

	// health
	h := handlers.NewHealthHandler(deps.Ping, deps.Draining)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// docs
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// auth wiring
	tokens := auth.NewManager(cfg.JWTSecret, auth.TokenTTL)
	authSvc := service.NewAuthService(deps.Users, tokens, log, outcomes)
	authHandler := handlers.NewAuthHandler(authSvc, log, cfg.ExposeErrors())
	authMW := middlewares.NewAuthMiddleware(tokens, verifications)

	api := r.Group("/api")
	api.Use(middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login)

	protected := authGroup.Group("")
	protected.Use(authMW.RequireAuth())
	protected.GET("/validate-token", authHandler.ValidateToken)
	protected.GET("/profile", authHandler.Profile)
	protected.PUT("/update-profile", authHandler.UpdateProfile)
	protected.POST("/change-password", authHandler.ChangePassword)

	// frontend
	frontend := handlers.NewFrontendHandler(cfg.TemplatesDir)
	r.Static("/static", cfg.StaticDir)
	r.GET("/templates/:page", frontend.Page)
	r.GET("/", handlers.RedirectToIndex)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "not_found", "Route not found", nil)
	})

	return r
}
