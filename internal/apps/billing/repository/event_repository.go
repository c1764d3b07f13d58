package repository

import (
	"context"

	"otp-gateway/internal/apps/billing/models"
	"otp-gateway/internal/common/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository defines data operations for billing events
type EventRepository interface {
	Record(ctx context.Context, event *models.BillingEvent) (bool, error)
	FindByEventID(ctx context.Context, eventID string) (*models.BillingEvent, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

// eventRepository implements EventRepository
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates an instance of EventRepository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Record stores a delivery unless its event id was seen before.
// It reports whether the event is new.
func (r *eventRepository) Record(ctx context.Context, event *models.BillingEvent) (bool, error) {
	result := database.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// FindByEventID retrieves a delivery by the provider's event id
func (r *eventRepository) FindByEventID(ctx context.Context, eventID string) (*models.BillingEvent, error) {
	var event models.BillingEvent
	if err := database.Conn(ctx, r.db).Where("event_id = ?", eventID).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// Update writes the given columns of the event row
func (r *eventRepository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return database.Conn(ctx, r.db).
		Model(&models.BillingEvent{}).
		Where("id = ?", id).
		Updates(fields).Error
}
