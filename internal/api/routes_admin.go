package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/handlers"
)

func registerAdminRoutes(admin *gin.RouterGroup, handler *handlers.AdminHandler) {
	admin.GET("/stats", handler.Dashboard)

	policies := admin.Group("/policies")
	{
		policies.GET("", handler.ListPolicies)
		policies.POST("", handler.CreatePolicy)
		policies.GET("/:id", handler.GetPolicy)
		policies.PATCH("/:id/status", handler.UpdatePolicyStatus)
	}

	applications := admin.Group("/applications")
	{
		applications.GET("", handler.ListApplications)
		applications.PATCH("/:id/status", handler.ResolveApplication)
	}

	admin.GET("/recommendations", handler.ListCatalog)
}
