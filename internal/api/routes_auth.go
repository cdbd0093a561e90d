package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/app"
	"github.com/jansathi/portal/internal/handlers"
	"github.com/jansathi/portal/internal/middleware"
)

type authRouteDeps struct {
	Handler   *handlers.AuthHandler
	RateStore middleware.RateStore
	Limits    app.RateLimitConfig
}

func registerAuthRoutes(engine *gin.Engine, deps authRouteDeps) {
	// Credential endpoints carry a tighter limit than the rest of the API.
	throttle := middleware.RateLimit(deps.RateStore, deps.Limits.AuthRequests, deps.Limits.AuthWindow)

	auth := engine.Group("/api/auth")
	{
		auth.GET("/captcha", deps.Handler.Captcha)
		auth.POST("/signup", throttle, deps.Handler.Signup)
		auth.POST("/signup/verify", throttle, deps.Handler.VerifySignup)
		auth.POST("/login/begin", throttle, deps.Handler.LoginBegin)
		auth.POST("/login/complete", throttle, deps.Handler.LoginComplete)
	}

	adminAuth := engine.Group("/api/admin/auth")
	{
		adminAuth.POST("/login/begin", throttle, deps.Handler.AdminLoginBegin)
		adminAuth.POST("/login/complete", throttle, deps.Handler.AdminLoginComplete)
	}
}
