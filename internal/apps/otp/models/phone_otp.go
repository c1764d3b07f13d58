package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhoneOTP is a single-use verification challenge for a phone number
type PhoneOTP struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	PhoneNumber string     `gorm:"size:32;not null;index:idx_phone_otp_lookup,priority:1" json:"phone_number"`
	Code        string     `gorm:"size:6;not null;index:idx_phone_otp_lookup,priority:2" json:"-"`
	ExpiresAt   time.Time  `gorm:"not null" json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (o *PhoneOTP) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// SendOTPRequest payload to issue a phone OTP
type SendOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
}

// SendOTPResponse acknowledges an issued OTP without exposing the code
type SendOTPResponse struct {
	Message string `json:"message"`
}

// VerifyOTPRequest payload to verify a phone OTP
type VerifyOTPRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required,phone"`
	OTPCode     string `json:"otp_code" binding:"required,len=6,numeric"`
}

// VerifyOTPResponse carries the proxy key bound to the verified phone
type VerifyOTPResponse struct {
	APIKey string `json:"api_key"`
}
