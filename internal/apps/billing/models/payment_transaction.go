package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TransactionStatus represents the status of a checkout attempt
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusSucceeded TransactionStatus = "succeeded"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCanceled  TransactionStatus = "canceled"
)

// PaymentTransaction records one checkout attempt
type PaymentTransaction struct {
	ID                    uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	PhoneNumber           string            `gorm:"size:32;not null;index" json:"phone_number"`
	StripeSessionID       string            `gorm:"size:255;not null;uniqueIndex" json:"stripe_session_id"`
	StripePaymentIntentID *string           `gorm:"size:255;uniqueIndex" json:"stripe_payment_intent_id,omitempty"`
	AmountUSD             decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"amount_usd"`
	PlanName              string            `gorm:"size:32;not null" json:"plan_name"`
	Status                TransactionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Metadata              datatypes.JSON    `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (t *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// CreateCheckoutRequest payload to start a hosted checkout
type CreateCheckoutRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
	PlanType    string `json:"plan_type" binding:"required"`
	SuccessURL  string `json:"success_url" binding:"required,url"`
	CancelURL   string `json:"cancel_url" binding:"required,url"`
}

// CheckoutResponse carries the hosted checkout location
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	Message     string `json:"message,omitempty"`
}

// MockWebhookRequest payload posted by the mock payment page
type MockWebhookRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
	PlanType    string `json:"plan_type" binding:"required"`
	SessionID   string `json:"session_id"`
	Status      string `json:"status"`
}

// MockWebhookResponse reports the outcome of a mock upgrade
type MockWebhookResponse struct {
	Status        string    `json:"status"`
	Message       string    `json:"message"`
	PhoneNumber   string    `json:"phone_number"`
	PlanType      string    `json:"plan_type"`
	PlanID        uuid.UUID `json:"plan_id"`
	LiteLLMUpdate string    `json:"litellm_update"`
}

// MockPaymentQuery is the query string of the mock payment page
type MockPaymentQuery struct {
	SessionID  string `form:"session_id" binding:"required"`
	Phone      string `form:"phone" binding:"required"`
	Plan       string `form:"plan" binding:"required"`
	SuccessURL string `form:"success_url"`
	CancelURL  string `form:"cancel_url"`
}
