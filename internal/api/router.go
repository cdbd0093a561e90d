package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/jansathi/portal/internal/app"
	iauth "github.com/jansathi/portal/internal/auth"
	"github.com/jansathi/portal/internal/handlers"
	"github.com/jansathi/portal/internal/middleware"
	"github.com/jansathi/portal/internal/models"
	"github.com/jansathi/portal/internal/monitoring"
	"github.com/jansathi/portal/internal/realtime"
	"github.com/jansathi/portal/internal/services"
)

// Deps bundles the long-lived collaborators the router wires into handlers.
type Deps struct {
	DB         *gorm.DB
	Config     *app.Config
	JWT        *iauth.JWTService
	Verifier   *iauth.Verifier
	Challenges *iauth.ChallengeService
	Hub        *realtime.Hub
	RateStore  middleware.RateStore

	// Health is optional; when set, the liveness/readiness endpoints and the
	// admin health report are registered.
	Health *monitoring.HealthManager
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("verifier must be provided")
	}
	if deps.Challenges == nil {
		return nil, fmt.Errorf("challenge service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	voteSvc, err := services.NewVoteService(deps.DB, deps.Hub)
	if err != nil {
		return nil, err
	}
	policySvc, err := services.NewPolicyService(deps.DB)
	if err != nil {
		return nil, err
	}
	profileSvc, err := services.NewProfileService(deps.DB)
	if err != nil {
		return nil, err
	}
	applicationSvc, err := services.NewApplicationService(deps.DB, deps.Hub)
	if err != nil {
		return nil, err
	}
	recommendationSvc, err := services.NewRecommendationService(deps.DB)
	if err != nil {
		return nil, err
	}
	statsSvc, err := services.NewStatsService(deps.DB)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(deps.RateStore, deps.Config.RateLimit.Requests, deps.Config.RateLimit.Window))

	registerHealthRoutes(r)

	requireAuth := middleware.Auth(deps.JWT)
	requireAdmin := middleware.RequireRole(models.RoleAdmin, models.RoleSuperAdmin)

	authHandler := handlers.NewAuthHandler(deps.Verifier, deps.Challenges)
	registerAuthRoutes(r, authRouteDeps{
		Handler:   authHandler,
		RateStore: deps.RateStore,
		Limits:    deps.Config.RateLimit,
	})

	api := r.Group("/api")
	api.Use(requireAuth)

	registerPolicyRoutes(r, api, handlers.NewPolicyHandler(policySvc, voteSvc))
	registerProfileRoutes(api, handlers.NewProfileHandler(profileSvc, recommendationSvc))
	registerApplicationRoutes(api, handlers.NewApplicationHandler(applicationSvc))

	admin := api.Group("/admin")
	admin.Use(requireAdmin)
	registerAdminRoutes(admin, handlers.NewAdminHandler(policySvc, applicationSvc, statsSvc, recommendationSvc))

	if mon := handlers.NewMonitoringHandler(deps.Health); mon != nil {
		r.GET("/health/live", mon.Live)
		r.GET("/health/ready", mon.Ready)
		admin.GET("/system/health", mon.Report)
	}

	// WebSocket dials cannot carry an Authorization header, so the live feed
	// sits outside the bearer middleware and authenticates from the query.
	rtHandler := handlers.NewRealtimeHandler(deps.Hub, deps.JWT, realtime.StreamVotes, realtime.StreamApplications)
	r.GET("/api/admin/live", rtHandler.Stream)
	r.GET("/api/admin/live/:stream", rtHandler.Stream)

	// Metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
