package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"otp-gateway/internal/common/logger"
	"otp-gateway/internal/common/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSetupCORS_AllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(SetupCORS("dev", []string{"https://app.example"}))
	r.GET("/plans", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/plans", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/plans", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAllowAll(t *testing.T) {
	assert.True(t, allowAll("dev", nil))
	assert.True(t, allowAll("prod", []string{"https://a", "*"}))
	assert.True(t, allowAll("dev", []string{"all"}))
	assert.False(t, allowAll("prod", []string{"https://a"}))
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	m := metrics.NewUnregistered()

	r := gin.New()
	r.Use(RequestLogger(logger.NewWithOutput("info", "json", &buf), m))
	r.GET("/subscription/:phone_number", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscription/123", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/subscription/:phone_number", "404")))
	assert.Contains(t, buf.String(), "request rejected")
	assert.Contains(t, buf.String(), `"status":404`)
}
