package handler

import (
	"net/http"

	"otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/common/validation"

	"github.com/gin-gonic/gin"
)

// SubscriptionHandler handles HTTP endpoints for user subscriptions
type SubscriptionHandler struct {
	service service.SubscriptionService
}

// NewSubscriptionHandler creates a new instance of SubscriptionHandler
func NewSubscriptionHandler(service service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// GetSubscription handles GET /subscription/:phone_number
func (h *SubscriptionHandler) GetSubscription(c *gin.Context) {
	phone := c.Param("phone_number")
	if !validation.IsPhone(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	sub, err := h.service.GetOrCreate(c.Request.Context(), validation.NormalizePhone(phone))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub.ToResponse())
}
