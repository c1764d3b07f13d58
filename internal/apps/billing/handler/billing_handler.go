package handler

import (
	"errors"
	"io"
	"net/http"

	"otp-gateway/internal/apps/billing/models"
	"otp-gateway/internal/apps/billing/service"
	planservice "otp-gateway/internal/apps/plan/service"

	"github.com/gin-gonic/gin"
)

// maxWebhookBody caps the size of a webhook payload
const maxWebhookBody = 1 << 20

// BillingHandler handles HTTP endpoints for checkout and billing webhooks
type BillingHandler struct {
	service       service.BillingService
	backendOrigin string
}

// NewBillingHandler creates a new instance of BillingHandler
func NewBillingHandler(service service.BillingService, backendOrigin string) *BillingHandler {
	return &BillingHandler{service: service, backendOrigin: backendOrigin}
}

// CreateCheckoutSession handles POST /create-checkout-session
func (h *BillingHandler) CreateCheckoutSession(c *gin.Context) {
	var req models.CreateCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.CreateCheckout(c.Request.Context(), req)
	if err != nil {
		var providerErr *service.ProviderError
		switch {
		case errors.Is(err, service.ErrInvalidPlan):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot create checkout for free plan"})
		case errors.Is(err, planservice.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		case errors.Is(err, service.ErrCheckoutUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Payments are not configured"})
		case errors.As(err, &providerErr):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stripe error: " + providerErr.Err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error creating checkout: " + err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleWebhook handles POST /webhook
// Verified events are always acknowledged; only verification failures are rejected.
func (h *BillingHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader("Stripe-Signature")); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MockWebhook handles POST /webhook-mock
func (h *BillingHandler) MockWebhook(c *gin.Context) {
	var req models.MockWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.MockUpgrade(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, planservice.ErrPlanNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
