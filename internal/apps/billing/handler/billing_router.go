package handler

import (
	"github.com/gin-gonic/gin"
)

// RegisterBillingRoutes registers checkout and webhook routes
func RegisterBillingRoutes(router *gin.RouterGroup, h *BillingHandler) {
	router.POST("/create-checkout-session", h.CreateCheckoutSession)
	router.POST("/webhook", h.HandleWebhook)
}

// RegisterBillingDebugRoutes registers the development-only mock checkout routes
func RegisterBillingDebugRoutes(router *gin.RouterGroup, h *BillingHandler) {
	router.GET("/mock-payment", h.MockPayment)
	router.POST("/webhook-mock", h.MockWebhook)
}
