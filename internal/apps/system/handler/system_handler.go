package handler

import (
	"errors"
	"net/http"

	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/apps/system/service"
	"otp-gateway/internal/common/validation"

	"github.com/gin-gonic/gin"
)

// SystemHandler handles health, metrics and diagnostic endpoints
type SystemHandler struct {
	service service.SystemService
	metrics http.Handler
}

// NewSystemHandler creates a new instance of SystemHandler
func NewSystemHandler(service service.SystemService, metrics http.Handler) *SystemHandler {
	return &SystemHandler{service: service, metrics: metrics}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	resp := h.service.Health(c.Request.Context())
	if !resp.Healthy() {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Metrics handles GET /metrics
func (h *SystemHandler) Metrics(c *gin.Context) {
	h.metrics.ServeHTTP(c.Writer, c.Request)
}

// DebugConfig handles GET /debug/config
func (h *SystemHandler) DebugConfig(c *gin.Context) {
	resp, err := h.service.DebugConfig(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ResyncLimits handles GET /test-litellm-update/:phone_number
func (h *SystemHandler) ResyncLimits(c *gin.Context) {
	phone := c.Param("phone_number")
	if !validation.IsPhone(phone) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid phone number"})
		return
	}

	resp, err := h.service.ResyncLimits(c.Request.Context(), validation.NormalizePhone(phone))
	if err != nil {
		if errors.Is(err, subservice.ErrSubscriptionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No subscription found for this phone number"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
