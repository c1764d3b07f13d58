package models

import (
	"time"

	planmodels "otp-gateway/internal/apps/plan/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSubscription binds a phone number to its current plan
type UserSubscription struct {
	ID                   uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	PhoneNumber          string                      `gorm:"size:32;not null;uniqueIndex" json:"phone_number"`
	PlanID               uuid.UUID                   `gorm:"type:uuid;not null;index" json:"plan_id"`
	Plan                 planmodels.SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan"`
	StripeCustomerID     *string                     `gorm:"size:255;index" json:"stripe_customer_id,omitempty"`
	StripeSubscriptionID *string                     `gorm:"size:255;index" json:"stripe_subscription_id,omitempty"`
	IsActive             bool                        `gorm:"not null" json:"is_active"`
	ExpiresAt            *time.Time                  `json:"expires_at"`
	CreatedAt            time.Time                   `json:"created_at"`
	UpdatedAt            time.Time                   `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (s *UserSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CustomerID returns the billing customer id or an empty string
func (s *UserSubscription) CustomerID() string {
	if s.StripeCustomerID == nil {
		return ""
	}
	return *s.StripeCustomerID
}

// SubscriptionResponse is the public representation of a subscription
type SubscriptionResponse struct {
	PhoneNumber      string                  `json:"phone_number"`
	Plan             planmodels.PlanResponse `json:"plan"`
	IsActive         bool                    `json:"is_active"`
	ExpiresAt        *time.Time              `json:"expires_at"`
	CreatedAt        time.Time               `json:"created_at"`
	StripeCustomerID *string                 `json:"stripe_customer_id,omitempty"`
}

// ToResponse converts UserSubscription model to SubscriptionResponse
func (s *UserSubscription) ToResponse() SubscriptionResponse {
	return SubscriptionResponse{
		PhoneNumber:      s.PhoneNumber,
		Plan:             s.Plan.ToResponse(),
		IsActive:         s.IsActive,
		ExpiresAt:        s.ExpiresAt,
		CreatedAt:        s.CreatedAt,
		StripeCustomerID: s.StripeCustomerID,
	}
}
