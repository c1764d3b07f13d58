package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"otp-gateway/internal/apps/apikey/models"
	"otp-gateway/internal/apps/apikey/repository"
	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"
	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/common/litellm"
	"otp-gateway/internal/common/metrics"
	"otp-gateway/pkg/secure"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrUpstreamProvision is returned when the proxy rejects a key create or update
	ErrUpstreamProvision = errors.New("upstream key provisioning failed")
	// ErrUnknownAPIKey is returned for keys not issued by this service
	ErrUnknownAPIKey = errors.New("api_key not found")
	// ErrKeyNotFound is returned when a phone number has no provisioned key
	ErrKeyNotFound = errors.New("no api key for phone number")
)

// KeyService defines business logic for proxy API keys
type KeyService interface {
	GetOrProvision(ctx context.Context, phone string) (string, error)
	Provision(ctx context.Context, phone string) (key string, created bool, err error)
	Discard(ctx context.Context, phone, key string)
	SpendLogs(ctx context.Context, apiKey string, limit, offset int) (json.RawMessage, error)
}

// keyService implements KeyService
type keyService struct {
	repo    repository.APIKeyRepository
	plans   planservice.PlanService
	subs    subservice.SubscriptionService
	proxy   litellm.Client
	sealer  secure.Sealer
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// NewKeyService creates a new instance of KeyService
func NewKeyService(
	repo repository.APIKeyRepository,
	plans planservice.PlanService,
	subs subservice.SubscriptionService,
	proxy litellm.Client,
	sealer secure.Sealer,
	m *metrics.Metrics,
	log *logrus.Logger,
) KeyService {
	return &keyService{
		repo:    repo,
		plans:   plans,
		subs:    subs,
		proxy:   proxy,
		sealer:  sealer,
		metrics: m,
		log:     log,
	}
}

// LimitsFor converts a plan into the proxy's key limits
func LimitsFor(plan *planmodels.SubscriptionPlan) litellm.KeyLimits {
	return litellm.KeyLimits{
		MaxBudget:           plan.Budget(),
		MaxParallelRequests: plan.MaxParallelRequests,
		TPMLimit:            plan.TPMLimit,
		RPMLimit:            plan.RPMLimit,
	}
}

// GetOrProvision returns the phone's key, creating one on the proxy with free-plan limits
// the first time. A free subscription is ensured alongside a new key.
func (s *keyService) GetOrProvision(ctx context.Context, phone string) (string, error) {
	key, _, err := s.Provision(ctx, phone)
	return key, err
}

// Provision is GetOrProvision that also reports whether the key was generated by this call.
// A caller whose surrounding transaction fails after a created key must Discard it.
func (s *keyService) Provision(ctx context.Context, phone string) (string, bool, error) {
	existing, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		key, err := s.sealer.Open(existing.KeyCiphertext)
		return key, false, err
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, err
	}

	free, err := s.plans.FreePlan(ctx)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve free plan: %w", err)
	}

	key, err := s.proxy.GenerateKey(ctx, phone, LimitsFor(free))
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUpstreamProvision, err)
	}

	sealed, err := s.sealer.Seal(key)
	if err != nil {
		s.discard(ctx, phone, key)
		return "", false, fmt.Errorf("failed to seal api key: %w", err)
	}

	created, err := s.repo.CreateIfAbsent(ctx, &models.PhoneAPIKey{
		PhoneNumber:    phone,
		KeyCiphertext:  sealed,
		KeyFingerprint: secure.Fingerprint(key),
	})
	if err != nil {
		s.discard(ctx, phone, key)
		return "", false, fmt.Errorf("failed to store api key: %w", err)
	}

	if !created {
		// Lost a concurrent first verification; the stored key wins.
		s.discard(ctx, phone, key)
		winner, err := s.repo.FindByPhone(ctx, phone)
		if err != nil {
			return "", false, fmt.Errorf("failed to load api key: %w", err)
		}
		stored, err := s.sealer.Open(winner.KeyCiphertext)
		return stored, false, err
	}

	if _, err := s.subs.GetOrCreate(ctx, phone); err != nil {
		s.discard(ctx, phone, key)
		return "", false, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.metrics.KeysProvisionedTotal.Inc()
	s.log.WithFields(logrus.Fields{
		"component": "apikey",
		"phone":     utils.MaskPhone(phone),
		"plan":      free.Name,
	}).Info("Provisioned proxy key")

	return key, true, nil
}

// SpendLogs returns the proxy's spend logs for a key issued by this service
func (s *keyService) SpendLogs(ctx context.Context, apiKey string, limit, offset int) (json.RawMessage, error) {
	if _, err := s.repo.FindByFingerprint(ctx, secure.Fingerprint(apiKey)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUnknownAPIKey
		}
		return nil, err
	}
	return s.proxy.SpendLogs(ctx, apiKey, limit, offset)
}

// Discard deletes a key generated by Provision whose binding was rolled back
func (s *keyService) Discard(ctx context.Context, phone, key string) {
	s.discard(ctx, phone, key)
}

// discard deletes an upstream key that could not be bound to the phone
func (s *keyService) discard(ctx context.Context, phone, key string) {
	if err := s.proxy.DeleteKey(context.WithoutCancel(ctx), key); err != nil {
		s.log.WithFields(logrus.Fields{
			"component": "apikey",
			"phone":     utils.MaskPhone(phone),
		}).WithError(err).Warn("Failed to delete orphaned proxy key")
	}
}
