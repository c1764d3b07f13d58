package repository

import (
	"context"

	"otp-gateway/internal/apps/billing/models"
	"otp-gateway/internal/common/database"

	"gorm.io/gorm"
)

// TransactionRepository defines data operations for payment transactions
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.PaymentTransaction) error
	UpdateBySessionID(ctx context.Context, sessionID string, fields map[string]interface{}) (int64, error)
}

// transactionRepository implements TransactionRepository
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates an instance of TransactionRepository
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create stores a new payment transaction
func (r *transactionRepository) Create(ctx context.Context, txn *models.PaymentTransaction) error {
	return database.Conn(ctx, r.db).Create(txn).Error
}

// UpdateBySessionID updates the transaction of a checkout session and returns the affected rows
func (r *transactionRepository) UpdateBySessionID(ctx context.Context, sessionID string, fields map[string]interface{}) (int64, error) {
	result := database.Conn(ctx, r.db).
		Model(&models.PaymentTransaction{}).
		Where("stripe_session_id = ?", sessionID).
		Updates(fields)
	return result.RowsAffected, result.Error
}
