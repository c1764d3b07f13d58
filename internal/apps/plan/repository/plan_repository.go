package repository

import (
	"context"

	"otp-gateway/internal/apps/plan/models"
	"otp-gateway/internal/common/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanRepository defines data operations for subscription plans
type PlanRepository interface {
	Upsert(ctx context.Context, plans []models.SubscriptionPlan) error
	FindAll(ctx context.Context) ([]models.SubscriptionPlan, error)
	FindByName(ctx context.Context, name string) (*models.SubscriptionPlan, error)
}

// planRepository implements PlanRepository
type planRepository struct {
	db *gorm.DB
}

// NewPlanRepository creates an instance of PlanRepository
func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

// Upsert inserts plans by name or refreshes price and limits of existing ones
func (r *planRepository) Upsert(ctx context.Context, plans []models.SubscriptionPlan) error {
	if len(plans) == 0 {
		return nil
	}
	return database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price_usd", "max_budget", "rpm_limit", "tpm_limit", "max_parallel_requests", "updated_at",
		}),
	}).Create(&plans).Error
}

// FindAll returns every plan ordered by price
func (r *planRepository) FindAll(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := database.Conn(ctx, r.db).Order("price_usd ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// FindByName retrieves a plan by its unique name
func (r *planRepository) FindByName(ctx context.Context, name string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := database.Conn(ctx, r.db).Where("name = ?", name).First(&plan).Error; err != nil {
		return nil, err
	}
	return &plan, nil
}
