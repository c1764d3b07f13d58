package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/apps/system/models"
	"otp-gateway/internal/common/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSystemService struct {
	health    *models.HealthResponse
	resync    *models.LimitSyncResponse
	resyncErr error
	phone     string
}

func (s *fakeSystemService) Health(ctx context.Context) *models.HealthResponse {
	return s.health
}

func (s *fakeSystemService) DebugConfig(ctx context.Context) (*models.DebugConfigResponse, error) {
	return &models.DebugConfigResponse{LiteLLMURL: "http://litellm:4000", AdminKeyPresent: true}, nil
}

func (s *fakeSystemService) ResyncLimits(ctx context.Context, phone string) (*models.LimitSyncResponse, error) {
	s.phone = phone
	return s.resync, s.resyncErr
}

func setupRouter(svc *fakeSystemService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m := metrics.NewUnregistered()
	m.OTPIssuedTotal.Inc()
	h := NewSystemHandler(svc, m.Handler())
	RegisterSystemRoutes(r.Group(""), h)
	RegisterSystemDebugRoutes(r.Group(""), h)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	svc := &fakeSystemService{health: &models.HealthResponse{Status: models.StatusHealthy, Database: "connected", LiteLLM: "connected", Timestamp: "2025-01-01T00:00:00Z"}}
	w := get(setupRouter(svc), "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"connected","litellm":"connected","timestamp":"2025-01-01T00:00:00Z"}`, w.Body.String())
}

func TestHealth_Unhealthy(t *testing.T) {
	svc := &fakeSystemService{health: &models.HealthResponse{Status: models.StatusUnhealthy, Database: "connection refused"}}
	w := get(setupRouter(svc), "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","database":"connection refused"}`, w.Body.String())
}

func TestMetrics(t *testing.T) {
	w := get(setupRouter(&fakeSystemService{}), "/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "otp_gateway_otp_issued_total 1")
}

func TestDebugConfig(t *testing.T) {
	w := get(setupRouter(&fakeSystemService{}), "/debug/config")
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "http://litellm:4000", body["litellm_url"])
	assert.Equal(t, true, body["admin_key_present"])
}

func TestResyncLimits(t *testing.T) {
	svc := &fakeSystemService{resync: &models.LimitSyncResponse{PhoneNumber: "+15551234", CurrentPlan: "basic", UpdateSuccess: true, Message: "LiteLLM limits updated"}}
	w := get(setupRouter(svc), "/test-litellm-update/+1-555-1234")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "+15551234", svc.phone)

	var body models.LimitSyncResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "basic", body.CurrentPlan)
	assert.True(t, body.UpdateSuccess)
}

func TestResyncLimits_NoSubscription(t *testing.T) {
	w := get(setupRouter(&fakeSystemService{resyncErr: subservice.ErrSubscriptionNotFound}), "/test-litellm-update/+15550000")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResyncLimits_InvalidPhone(t *testing.T) {
	w := get(setupRouter(&fakeSystemService{}), "/test-litellm-update/not-a-phone")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
