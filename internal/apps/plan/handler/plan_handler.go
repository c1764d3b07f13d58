package handler

import (
	"net/http"

	"otp-gateway/internal/apps/plan/models"
	"otp-gateway/internal/apps/plan/service"

	"github.com/gin-gonic/gin"
)

// PlanHandler handles HTTP endpoints for the plan catalog
type PlanHandler struct {
	service service.PlanService
}

// NewPlanHandler creates a new instance of PlanHandler
func NewPlanHandler(service service.PlanService) *PlanHandler {
	return &PlanHandler{service: service}
}

// GetPlans handles GET /plans
func (h *PlanHandler) GetPlans(c *gin.Context) {
	plans, err := h.service.GetPlans(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := models.PlansResponse{Plans: make([]models.PlanResponse, 0, len(plans))}
	for i := range plans {
		resp.Plans = append(resp.Plans, plans[i].ToResponse())
	}
	c.JSON(http.StatusOK, resp)
}
