package service

import (
	"context"
	"errors"
	"fmt"

	"otp-gateway/internal/apps/apikey/repository"
	planmodels "otp-gateway/internal/apps/plan/models"
	"otp-gateway/internal/common/litellm"
	"otp-gateway/internal/common/metrics"
	"otp-gateway/pkg/secure"
	"otp-gateway/pkg/utils"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// LimitSynchronizer pushes plan limits onto a phone's proxy key
type LimitSynchronizer interface {
	Push(ctx context.Context, phone string, plan *planmodels.SubscriptionPlan) error
}

type limitSynchronizer struct {
	repo    repository.APIKeyRepository
	proxy   litellm.Client
	sealer  secure.Sealer
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// NewLimitSynchronizer creates a new instance of LimitSynchronizer
func NewLimitSynchronizer(
	repo repository.APIKeyRepository,
	proxy litellm.Client,
	sealer secure.Sealer,
	m *metrics.Metrics,
	log *logrus.Logger,
) LimitSynchronizer {
	return &limitSynchronizer{
		repo:    repo,
		proxy:   proxy,
		sealer:  sealer,
		metrics: m,
		log:     log,
	}
}

// Push applies the plan's limits to the phone's key. No retry is attempted.
func (s *limitSynchronizer) Push(ctx context.Context, phone string, plan *planmodels.SubscriptionPlan) error {
	entry := s.log.WithFields(logrus.Fields{
		"component": "limit_sync",
		"phone":     utils.MaskPhone(phone),
		"plan":      plan.Name,
	})

	record, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.LimitSyncTotal.WithLabelValues("no_key").Inc()
			entry.Warn("No proxy key to update")
			return ErrKeyNotFound
		}
		s.metrics.LimitSyncTotal.WithLabelValues("error").Inc()
		return err
	}

	key, err := s.sealer.Open(record.KeyCiphertext)
	if err != nil {
		s.metrics.LimitSyncTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to open api key: %w", err)
	}

	if err := s.proxy.UpdateKey(ctx, key, LimitsFor(plan)); err != nil {
		s.metrics.LimitSyncTotal.WithLabelValues("failure").Inc()
		entry.WithError(err).Error("Failed to update proxy key limits")
		return fmt.Errorf("%w: %v", ErrUpstreamProvision, err)
	}

	s.metrics.LimitSyncTotal.WithLabelValues("success").Inc()
	entry.Info("Proxy key limits updated")
	return nil
}
