package repository

import (
	"context"

	"otp-gateway/internal/apps/apikey/models"
	"otp-gateway/internal/common/database"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// APIKeyRepository defines data operations for phone API keys
type APIKeyRepository interface {
	CreateIfAbsent(ctx context.Context, key *models.PhoneAPIKey) (bool, error)
	FindByPhone(ctx context.Context, phone string) (*models.PhoneAPIKey, error)
	FindByFingerprint(ctx context.Context, fingerprint string) (*models.PhoneAPIKey, error)
}

// apiKeyRepository implements APIKeyRepository
type apiKeyRepository struct {
	db *gorm.DB
}

// NewAPIKeyRepository creates an instance of APIKeyRepository
func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

// CreateIfAbsent inserts key unless the phone number already has one.
// It reports whether a row was inserted.
func (r *apiKeyRepository) CreateIfAbsent(ctx context.Context, key *models.PhoneAPIKey) (bool, error) {
	result := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone_number"}},
		DoNothing: true,
	}).Create(key)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByPhone retrieves the key bound to a phone number
func (r *apiKeyRepository) FindByPhone(ctx context.Context, phone string) (*models.PhoneAPIKey, error) {
	var key models.PhoneAPIKey
	if err := database.Conn(ctx, r.db).Where("phone_number = ?", phone).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// FindByFingerprint retrieves a key by the SHA-256 fingerprint of its plaintext
func (r *apiKeyRepository) FindByFingerprint(ctx context.Context, fingerprint string) (*models.PhoneAPIKey, error) {
	var key models.PhoneAPIKey
	if err := database.Conn(ctx, r.db).Where("key_fingerprint = ?", fingerprint).First(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}
