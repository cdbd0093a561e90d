package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jansathi/portal/internal/middleware"
)

// requestContext safely returns the request context with a background fallback for tests.
func requestContext(c *gin.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if req := c.Request; req != nil {
		return req.Context()
	}
	return context.Background()
}

// currentUserID extracts the authenticated subject set by the auth middleware.
func currentUserID(c *gin.Context) string {
	v, ok := c.Get(middleware.CtxUserIDKey)
	if !ok {
		return ""
	}
	id, _ := v.(string)
	return id
}
