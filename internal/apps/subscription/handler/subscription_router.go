package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterSubscriptionRoutes registers all subscription routes
func RegisterSubscriptionRoutes(router *gin.RouterGroup, h *SubscriptionHandler) {
	router.GET("/subscription/:phone_number", h.GetSubscription)
}
