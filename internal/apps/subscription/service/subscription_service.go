package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	planmodels "otp-gateway/internal/apps/plan/models"
	planservice "otp-gateway/internal/apps/plan/service"
	"otp-gateway/internal/apps/subscription/models"
	"otp-gateway/internal/apps/subscription/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BillingPeriod is the lifetime of a paid activation or renewal
const BillingPeriod = 30 * 24 * time.Hour

var (
	// ErrSubscriptionNotFound is returned when no subscription matches the lookup
	ErrSubscriptionNotFound = errors.New("subscription not found")
	// ErrCatalogNotSeeded is returned when the free plan has no stored row
	ErrCatalogNotSeeded = errors.New("plan catalog is not seeded")
)

// SubscriptionService defines business logic for user subscriptions
type SubscriptionService interface {
	GetOrCreate(ctx context.Context, phone string) (*models.UserSubscription, error)
	FindByPhone(ctx context.Context, phone string) (*models.UserSubscription, error)
	Activate(ctx context.Context, req ActivateRequest) (*models.UserSubscription, error)
	RenewByCustomer(ctx context.Context, customerID string, expiresAt time.Time) (*models.UserSubscription, error)
	DowngradeBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserSubscription, error)
	SetCustomerID(ctx context.Context, phone, customerID string) error
}

// ActivateRequest describes a paid plan activation
type ActivateRequest struct {
	PhoneNumber          string
	Plan                 *planmodels.SubscriptionPlan
	StripeCustomerID     string
	StripeSubscriptionID string
	ExpiresAt            time.Time
}

// subscriptionService implements SubscriptionService
type subscriptionService struct {
	repo  repository.SubscriptionRepository
	plans planservice.PlanService
}

// NewSubscriptionService creates a new instance of SubscriptionService
func NewSubscriptionService(repo repository.SubscriptionRepository, plans planservice.PlanService) SubscriptionService {
	return &subscriptionService{repo: repo, plans: plans}
}

// GetOrCreate returns the phone's subscription, creating an active free one on first access
func (s *subscriptionService) GetOrCreate(ctx context.Context, phone string) (*models.UserSubscription, error) {
	sub, err := s.repo.FindByPhone(ctx, phone)
	if err == nil {
		return sub, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	free, err := s.freePlan(ctx)
	if err != nil {
		return nil, err
	}

	// A concurrent first read may win the insert; both then read the same row.
	if _, err := s.repo.CreateIfAbsent(ctx, &models.UserSubscription{
		PhoneNumber: phone,
		PlanID:      free.ID,
		IsActive:    true,
	}); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return s.repo.FindByPhone(ctx, phone)
}

// FindByPhone returns the phone's subscription without creating one
func (s *subscriptionService) FindByPhone(ctx context.Context, phone string) (*models.UserSubscription, error) {
	return s.find(s.repo.FindByPhone(ctx, phone))
}

// Activate moves the phone onto a paid plan until req.ExpiresAt
func (s *subscriptionService) Activate(ctx context.Context, req ActivateRequest) (*models.UserSubscription, error) {
	if req.Plan == nil {
		return nil, errors.New("plan is required")
	}

	sub, err := s.GetOrCreate(ctx, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	expiresAt := req.ExpiresAt
	fields := map[string]interface{}{
		"plan_id":    req.Plan.ID,
		"is_active":  true,
		"expires_at": expiresAt,
	}
	if req.StripeSubscriptionID != "" {
		fields["stripe_subscription_id"] = req.StripeSubscriptionID
		sub.StripeSubscriptionID = &req.StripeSubscriptionID
	}
	if req.StripeCustomerID != "" && sub.StripeCustomerID == nil {
		fields["stripe_customer_id"] = req.StripeCustomerID
		sub.StripeCustomerID = &req.StripeCustomerID
	}
	if err := s.repo.Update(ctx, sub.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to activate subscription: %w", err)
	}

	sub.PlanID = req.Plan.ID
	sub.Plan = *req.Plan
	sub.IsActive = true
	sub.ExpiresAt = &expiresAt
	return sub, nil
}

// RenewByCustomer extends the subscription owned by the billing customer
func (s *subscriptionService) RenewByCustomer(ctx context.Context, customerID string, expiresAt time.Time) (*models.UserSubscription, error) {
	sub, err := s.find(s.repo.FindByCustomerID(ctx, customerID))
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sub.ID, map[string]interface{}{
		"is_active":  true,
		"expires_at": expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to renew subscription: %w", err)
	}

	sub.IsActive = true
	sub.ExpiresAt = &expiresAt
	return sub, nil
}

// DowngradeBySubscriptionID returns the matching subscription to the free plan
func (s *subscriptionService) DowngradeBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserSubscription, error) {
	sub, err := s.find(s.repo.FindBySubscriptionID(ctx, subscriptionID))
	if err != nil {
		return nil, err
	}

	free, err := s.freePlan(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, sub.ID, map[string]interface{}{
		"plan_id":                free.ID,
		"is_active":              true,
		"expires_at":             nil,
		"stripe_subscription_id": nil,
	}); err != nil {
		return nil, fmt.Errorf("failed to downgrade subscription: %w", err)
	}

	sub.PlanID = free.ID
	sub.Plan = *free
	sub.IsActive = true
	sub.ExpiresAt = nil
	sub.StripeSubscriptionID = nil
	return sub, nil
}

// SetCustomerID caches the billing customer id on the phone's subscription
func (s *subscriptionService) SetCustomerID(ctx context.Context, phone, customerID string) error {
	sub, err := s.GetOrCreate(ctx, phone)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, sub.ID, map[string]interface{}{"stripe_customer_id": customerID})
}

// freePlan resolves the stored free plan; subscriptions need a persisted plan row
func (s *subscriptionService) freePlan(ctx context.Context) (*planmodels.SubscriptionPlan, error) {
	free, err := s.plans.FreePlan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve free plan: %w", err)
	}
	if free.ID == uuid.Nil {
		return nil, ErrCatalogNotSeeded
	}
	return free, nil
}

func (s *subscriptionService) find(sub *models.UserSubscription, err error) (*models.UserSubscription, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}
