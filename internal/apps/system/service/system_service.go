package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	apikeyservice "otp-gateway/internal/apps/apikey/service"
	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"
	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/apps/system/models"
	"otp-gateway/internal/common/database"
	"otp-gateway/internal/common/litellm"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SystemService defines health and diagnostic operations
type SystemService interface {
	Health(ctx context.Context) *models.HealthResponse
	DebugConfig(ctx context.Context) (*models.DebugConfigResponse, error)
	ResyncLimits(ctx context.Context, phone string) (*models.LimitSyncResponse, error)
}

// Settings are the configuration values reported by the debug endpoint
type Settings struct {
	LiteLLMURL      string
	AdminKey        string
	StripeSecretKey string
	DatabaseDSN     string
}

// systemService implements SystemService
type systemService struct {
	db       *gorm.DB
	proxy    litellm.Client
	plans    planservice.PlanService
	subs     subservice.SubscriptionService
	limits   apikeyservice.LimitSynchronizer
	settings Settings
	log      *logrus.Logger
	now      func() time.Time
}

// NewSystemService creates a new instance of SystemService
func NewSystemService(
	db *gorm.DB,
	proxy litellm.Client,
	plans planservice.PlanService,
	subs subservice.SubscriptionService,
	limits apikeyservice.LimitSynchronizer,
	settings Settings,
	log *logrus.Logger,
) SystemService {
	return &systemService{
		db:       db,
		proxy:    proxy,
		plans:    plans,
		subs:     subs,
		limits:   limits,
		settings: settings,
		log:      log,
		now:      time.Now,
	}
}

// Health checks the database and the proxy.
// The proxy state is reported but does not make the gateway unhealthy.
func (s *systemService) Health(ctx context.Context) *models.HealthResponse {
	if err := database.Ping(s.db.WithContext(ctx)); err != nil {
		s.log.WithField("component", "system").WithError(err).Error("Database health check failed")
		return &models.HealthResponse{Status: models.StatusUnhealthy, Database: err.Error()}
	}

	return &models.HealthResponse{
		Status:    models.StatusHealthy,
		Database:  "connected",
		LiteLLM:   s.proxyStatus(ctx),
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}
}

func (s *systemService) proxyStatus(ctx context.Context) string {
	status, err := s.proxy.Health(ctx)
	switch {
	case err != nil:
		return fmt.Sprintf("failed: %v", err)
	case status == http.StatusOK:
		return "connected"
	default:
		return fmt.Sprintf("error_%d", status)
	}
}

// DebugConfig reports the effective configuration without revealing secrets
func (s *systemService) DebugConfig(ctx context.Context) (*models.DebugConfigResponse, error) {
	plans, err := s.plans.GetPlans(ctx)
	if err != nil {
		return nil, err
	}

	resp := &models.DebugConfigResponse{
		LiteLLMURL:       s.settings.LiteLLMURL,
		AdminKeyPresent:  s.settings.AdminKey != "",
		AdminKeyLength:   len(s.settings.AdminKey),
		StripeKeyPresent: s.settings.StripeSecretKey != "",
		StripeMockMode:   s.settings.StripeSecretKey == "",
		DatabaseURL:      utils.MaskDSN(s.settings.DatabaseDSN),
		Plans:            make([]planmodels.PlanResponse, 0, len(plans)),
	}
	for i := range plans {
		resp.Plans = append(resp.Plans, plans[i].ToResponse())
	}
	return resp, nil
}

// ResyncLimits pushes the subscriber's current plan limits to the proxy again
func (s *systemService) ResyncLimits(ctx context.Context, phone string) (*models.LimitSyncResponse, error) {
	sub, err := s.subs.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	resp := &models.LimitSyncResponse{
		PhoneNumber:   phone,
		CurrentPlan:   sub.Plan.Name,
		PlanConfig:    sub.Plan.ToResponse(),
		UpdateSuccess: true,
		Message:       "LiteLLM limits updated",
	}
	if err := s.limits.Push(ctx, phone, &sub.Plan); err != nil {
		resp.UpdateSuccess = false
		resp.Message = fmt.Sprintf("LiteLLM update failed: %v", err)
	}

	s.log.WithFields(logrus.Fields{
		"component": "system",
		"phone":     utils.MaskPhone(phone),
		"plan":      sub.Plan.Name,
		"success":   resp.UpdateSuccess,
	}).Info("Manual limit re-sync")
	return resp, nil
}
