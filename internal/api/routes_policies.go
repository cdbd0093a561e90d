package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/handlers"
)

func registerPolicyRoutes(engine *gin.Engine, api *gin.RouterGroup, handler *handlers.PolicyHandler) {
	// The active list and category vocabulary are public; voting needs a
	// session.
	public := engine.Group("/api")
	{
		public.GET("/policies", handler.ListActive)
		// Not nested under /policies: a static segment cannot share the
		// position the :id parameter claims below.
		public.GET("/categories", handler.Categories)
	}

	policies := api.Group("/policies")
	{
		policies.POST("/:id/vote", handler.Vote)
		policies.GET("/:id/vote", handler.VoteStatus)
		policies.GET("/:id/results", handler.Results)
	}
}
