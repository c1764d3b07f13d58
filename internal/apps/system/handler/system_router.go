package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterSystemRoutes registers health and metrics routes
func RegisterSystemRoutes(router *gin.RouterGroup, h *SystemHandler) {
	router.GET("/health", h.Health)
	router.GET("/metrics", h.Metrics)
}

// RegisterSystemDebugRoutes registers the development-only diagnostic routes
func RegisterSystemDebugRoutes(router *gin.RouterGroup, h *SystemHandler) {
	router.GET("/debug/config", h.DebugConfig)
	router.GET("/test-litellm-update/:phone_number", h.ResyncLimits)
}
