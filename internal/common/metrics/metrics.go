package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// OTP metrics
	OTPIssuedTotal        prometheus.Counter
	OTPVerificationsTotal *prometheus.CounterVec

	// Proxy key metrics
	KeysProvisionedTotal prometheus.Counter
	LimitSyncTotal       *prometheus.CounterVec

	// Billing metrics
	WebhookEventsTotal          *prometheus.CounterVec
	ReconciliationFailuresTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all metrics on the given registry
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_gateway_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "otp_gateway_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		OTPIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "otp_gateway_otp_issued_total",
				Help: "Total number of OTP challenges issued",
			},
		),
		OTPVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_gateway_otp_verifications_total",
				Help: "Total number of OTP verification attempts",
			},
			[]string{"result"},
		),
		KeysProvisionedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "otp_gateway_keys_provisioned_total",
				Help: "Total number of proxy keys created upstream",
			},
		),
		LimitSyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_gateway_limit_sync_total",
				Help: "Total number of plan limit pushes to the proxy",
			},
			[]string{"result"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_gateway_webhook_events_total",
				Help: "Total number of verified billing webhook events",
			},
			[]string{"type"},
		),
		ReconciliationFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "otp_gateway_reconciliation_failures_total",
				Help: "Billing events that could not be applied to local or proxy state",
			},
			[]string{"type"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OTPIssuedTotal,
		m.OTPVerificationsTotal,
		m.KeysProvisionedTotal,
		m.LimitSyncTotal,
		m.WebhookEventsTotal,
		m.ReconciliationFailuresTotal,
	)

	return m
}

// NewUnregistered returns metrics on a throwaway registry
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler exposes the registry in Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
