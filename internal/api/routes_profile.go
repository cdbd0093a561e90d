package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/handlers"
)

func registerProfileRoutes(api *gin.RouterGroup, handler *handlers.ProfileHandler) {
	profile := api.Group("/profile")
	{
		profile.GET("", handler.Get)
		profile.PUT("", handler.Update)
		profile.GET("/recommendations", handler.Recommendations)
	}
}

func registerApplicationRoutes(api *gin.RouterGroup, handler *handlers.ApplicationHandler) {
	applications := api.Group("/applications")
	{
		applications.GET("", handler.ListMine)
		applications.POST("", handler.Submit)
	}
}
