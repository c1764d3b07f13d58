package repository

import (
	"context"

	"otp-gateway/internal/apps/subscription/models"
	"otp-gateway/internal/common/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubscriptionRepository defines data operations for user subscriptions
type SubscriptionRepository interface {
	CreateIfAbsent(ctx context.Context, sub *models.UserSubscription) (bool, error)
	FindByPhone(ctx context.Context, phone string) (*models.UserSubscription, error)
	FindByCustomerID(ctx context.Context, customerID string) (*models.UserSubscription, error)
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserSubscription, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

// subscriptionRepository implements SubscriptionRepository
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates an instance of SubscriptionRepository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// CreateIfAbsent inserts sub unless the phone number already has a row.
// It reports whether a row was inserted.
func (r *subscriptionRepository) CreateIfAbsent(ctx context.Context, sub *models.UserSubscription) (bool, error) {
	result := database.Conn(ctx, r.db).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "phone_number"}},
			DoNothing: true,
		}).Create(sub)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByPhone retrieves a subscription with its plan by phone number
func (r *subscriptionRepository) FindByPhone(ctx context.Context, phone string) (*models.UserSubscription, error) {
	return r.findOne(ctx, "phone_number = ?", phone)
}

// FindByCustomerID retrieves a subscription by billing customer id
func (r *subscriptionRepository) FindByCustomerID(ctx context.Context, customerID string) (*models.UserSubscription, error) {
	return r.findOne(ctx, "stripe_customer_id = ?", customerID)
}

// FindBySubscriptionID retrieves a subscription by billing subscription id
func (r *subscriptionRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*models.UserSubscription, error) {
	return r.findOne(ctx, "stripe_subscription_id = ?", subscriptionID)
}

// Update writes the given columns of the subscription row
func (r *subscriptionRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return database.Conn(ctx, r.db).
		Model(&models.UserSubscription{}).
		Where("id = ?", id).
		Updates(fields).Error
}

func (r *subscriptionRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	if err := database.Conn(ctx, r.db).Preload("Plan").Where(query, arg).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}
