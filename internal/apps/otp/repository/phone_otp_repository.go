package repository

import (
	"context"
	"time"

	"otp-gateway/internal/apps/otp/models"
	"otp-gateway/internal/common/database"

	"gorm.io/gorm"
)

// PhoneOTPRepository defines data operations for Phone OTP
type PhoneOTPRepository interface {
	Create(ctx context.Context, otp *models.PhoneOTP) error
	Supersede(ctx context.Context, phone string, at time.Time) error
	Consume(ctx context.Context, phone, code string, at time.Time) (bool, error)
}

// phoneOTPRepository implements PhoneOTPRepository
type phoneOTPRepository struct {
	db *gorm.DB
}

// NewPhoneOTPRepository creates an instance of PhoneOTPRepository
func NewPhoneOTPRepository(db *gorm.DB) PhoneOTPRepository {
	return &phoneOTPRepository{db: db}
}

// Create stores a new OTP challenge
func (r *phoneOTPRepository) Create(ctx context.Context, otp *models.PhoneOTP) error {
	return database.Conn(ctx, r.db).Create(otp).Error
}

// Supersede closes every outstanding challenge for a phone number
func (r *phoneOTPRepository) Supersede(ctx context.Context, phone string, at time.Time) error {
	return database.Conn(ctx, r.db).
		Model(&models.PhoneOTP{}).
		Where("phone_number = ? AND used_at IS NULL", phone).
		Update("used_at", at).Error
}

// Consume marks the matching unexpired, unused challenge as used.
// It reports false when no such challenge exists.
func (r *phoneOTPRepository) Consume(ctx context.Context, phone, code string, at time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&models.PhoneOTP{}).
		Where("phone_number = ? AND code = ? AND expires_at > ? AND used_at IS NULL", phone, code, at).
		Update("used_at", at)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
