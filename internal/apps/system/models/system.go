package models

import (
	planmodels "otp-gateway/internal/apps/plan/models"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthResponse is the composite health of the gateway and its dependencies
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	LiteLLM   string `json:"litellm,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// Healthy reports whether the gateway can serve requests
func (h *HealthResponse) Healthy() bool {
	return h.Status == StatusHealthy
}

// DebugConfigResponse exposes the effective configuration with secrets withheld
type DebugConfigResponse struct {
	LiteLLMURL       string                    `json:"litellm_url"`
	AdminKeyPresent  bool                      `json:"admin_key_present"`
	AdminKeyLength   int                       `json:"admin_key_length"`
	StripeKeyPresent bool                      `json:"stripe_secret_key_present"`
	StripeMockMode   bool                      `json:"stripe_mock_mode"`
	DatabaseURL      string                    `json:"database_url"`
	Plans            []planmodels.PlanResponse `json:"plan_configs"`
}

// LimitSyncResponse reports a manual re-push of a subscriber's plan limits
type LimitSyncResponse struct {
	PhoneNumber   string                  `json:"phone_number"`
	CurrentPlan   string                  `json:"current_plan"`
	PlanConfig    planmodels.PlanResponse `json:"plan_config"`
	UpdateSuccess bool                    `json:"update_success"`
	Message       string                  `json:"message"`
}
