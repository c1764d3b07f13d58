package handler

import (
	"errors"
	"net/http"
	"strings"

	"otp-gateway/internal/apps/apikey/models"
	"otp-gateway/internal/apps/apikey/service"
	"otp-gateway/internal/common/litellm"

	"github.com/gin-gonic/gin"
)

// SpendHandler handles HTTP endpoints for proxy spend logs
type SpendHandler struct {
	service service.KeyService
}

// NewSpendHandler creates a new instance of SpendHandler
func NewSpendHandler(service service.KeyService) *SpendHandler {
	return &SpendHandler{service: service}
}

// SpendLogs handles GET /spend/logs
func (h *SpendHandler) SpendLogs(c *gin.Context) {
	var query models.SpendLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	apiKey := query.APIKey
	if apiKey == "" {
		apiKey = bearerToken(c.GetHeader("Authorization"))
	}
	if apiKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "api_key is required (query param or Bearer token)"})
		return
	}

	logs, err := h.service.SpendLogs(c.Request.Context(), apiKey, query.Limit, query.Offset)
	if err != nil {
		var statusErr *litellm.StatusError
		switch {
		case errors.Is(err, service.ErrUnknownAPIKey):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.As(err, &statusErr):
			c.JSON(statusErr.StatusCode, gin.H{"error": "Failed to fetch logs: " + statusErr.Body})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error retrieving spend logs: " + err.Error()})
		}
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", logs)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
