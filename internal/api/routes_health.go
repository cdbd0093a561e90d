package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/handlers"
)

func registerHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", handlers.Health())
	engine.GET("/api/health", handlers.Health())
}
