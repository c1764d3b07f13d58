package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"otp-gateway/internal/apps/apikey/models"
	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"
	submodels "otp-gateway/internal/apps/subscription/models"
	subservice "otp-gateway/internal/apps/subscription/service"
	"otp-gateway/internal/common/litellm"

	"gorm.io/gorm"
)

type fakeKeyRepository struct {
	mu        sync.Mutex
	rows      map[string]models.PhoneAPIKey
	createErr error
	// preempt simulates a concurrent insert landing before ours
	preempt *models.PhoneAPIKey
}

func newFakeKeyRepository() *fakeKeyRepository {
	return &fakeKeyRepository{rows: map[string]models.PhoneAPIKey{}}
}

func (r *fakeKeyRepository) CreateIfAbsent(ctx context.Context, key *models.PhoneAPIKey) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return false, r.createErr
	}
	if r.preempt != nil {
		r.rows[r.preempt.PhoneNumber] = *r.preempt
		r.preempt = nil
	}
	if _, ok := r.rows[key.PhoneNumber]; ok {
		return false, nil
	}
	r.rows[key.PhoneNumber] = *key
	return true, nil
}

func (r *fakeKeyRepository) FindByPhone(ctx context.Context, phone string) (*models.PhoneAPIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok := r.rows[phone]; ok {
		return &k, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeKeyRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.PhoneAPIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.rows {
		if k.KeyFingerprint == fingerprint {
			return &k, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeProxy struct {
	litellm.Client
	generated   int
	generateErr error
	updateErr   error
	updates     map[string]litellm.KeyLimits
	lastLimits  litellm.KeyLimits
	deleted     []string
	spendLogs   json.RawMessage
	spendErr    error
}

func newFakeProxy() *fakeProxy {
	return &fakeProxy{updates: map[string]litellm.KeyLimits{}}
}

func (p *fakeProxy) GenerateKey(ctx context.Context, alias string, limits litellm.KeyLimits) (string, error) {
	if p.generateErr != nil {
		return "", p.generateErr
	}
	p.generated++
	p.lastLimits = limits
	return fmt.Sprintf("sk-generated-%d", p.generated), nil
}

func (p *fakeProxy) UpdateKey(ctx context.Context, key string, limits litellm.KeyLimits) error {
	if p.updateErr != nil {
		return p.updateErr
	}
	p.updates[key] = limits
	return nil
}

func (p *fakeProxy) DeleteKey(ctx context.Context, key string) error {
	p.deleted = append(p.deleted, key)
	return nil
}

func (p *fakeProxy) SpendLogs(ctx context.Context, apiKey string, limit, offset int) (json.RawMessage, error) {
	return p.spendLogs, p.spendErr
}

type fakePlanService struct {
	planservice.PlanService
}

func (fakePlanService) FreePlan(ctx context.Context) (*planmodels.SubscriptionPlan, error) {
	p, _ := planmodels.DefaultPlan(planmodels.PlanFree)
	return &p, nil
}

type fakeSubscriptionService struct {
	subservice.SubscriptionService
	ensured []string
	err     error
}

func (s *fakeSubscriptionService) GetOrCreate(ctx context.Context, phone string) (*submodels.UserSubscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.ensured = append(s.ensured, phone)
	return &submodels.UserSubscription{PhoneNumber: phone}, nil
}
