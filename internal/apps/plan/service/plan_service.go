package service

import (
	"context"
	"errors"
	"fmt"

	"otp-gateway/internal/apps/plan/models"
	"otp-gateway/internal/apps/plan/repository"

	"gorm.io/gorm"
)

// ErrPlanNotFound is returned for names outside the catalog
var ErrPlanNotFound = errors.New("plan not found")

// PlanService defines business logic for the plan catalog
type PlanService interface {
	SeedDefaults(ctx context.Context) error
	GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	GetPlan(ctx context.Context, name string) (*models.SubscriptionPlan, error)
	FreePlan(ctx context.Context) (*models.SubscriptionPlan, error)
}

// planService implements PlanService
type planService struct {
	repo repository.PlanRepository
}

// NewPlanService creates a new instance of PlanService
func NewPlanService(repo repository.PlanRepository) PlanService {
	return &planService{repo: repo}
}

// SeedDefaults writes the built-in catalog, refreshing existing rows
func (s *planService) SeedDefaults(ctx context.Context) error {
	if err := s.repo.Upsert(ctx, models.DefaultCatalog()); err != nil {
		return fmt.Errorf("failed to seed plans: %w", err)
	}
	return nil
}

// GetPlans returns the full catalog ordered by price
func (s *planService) GetPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.repo.FindAll(ctx)
}

// GetPlan returns a plan by name
func (s *planService) GetPlan(ctx context.Context, name string) (*models.SubscriptionPlan, error) {
	plan, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, name)
		}
		return nil, err
	}
	return plan, nil
}

// FreePlan returns the stored free plan, or the built-in definition when the catalog is empty
func (s *planService) FreePlan(ctx context.Context) (*models.SubscriptionPlan, error) {
	plan, err := s.GetPlan(ctx, models.PlanFree)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrPlanNotFound) {
		return nil, err
	}
	fallback, _ := models.DefaultPlan(models.PlanFree)
	return &fallback, nil
}
