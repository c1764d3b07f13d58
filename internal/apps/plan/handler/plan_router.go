package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterPlanRoutes registers all plan routes
func RegisterPlanRoutes(router *gin.RouterGroup, h *PlanHandler) {
	router.GET("/plans", h.GetPlans)
}
