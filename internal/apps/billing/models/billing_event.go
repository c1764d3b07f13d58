package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventStatus tracks how a delivered billing event was handled
type EventStatus string

const (
	EventStatusReceived  EventStatus = "received"
	EventStatusProcessed EventStatus = "processed"
	EventStatusIgnored   EventStatus = "ignored"
	EventStatusFailed    EventStatus = "failed"
)

// BillingEvent is a verified webhook delivery, kept for idempotency and audit
type BillingEvent struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	EventID     string         `gorm:"size:255;not null;uniqueIndex" json:"event_id"`
	Type        string         `gorm:"size:100;not null;index" json:"type"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status      EventStatus    `gorm:"type:varchar(16);not null;index" json:"status"`
	Error       string         `gorm:"type:text" json:"error,omitempty"`
	ProcessedAt *time.Time     `json:"processed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (e *BillingEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Settled reports whether the event needs no further processing
func (e *BillingEvent) Settled() bool {
	return e.Status == EventStatusProcessed || e.Status == EventStatusIgnored
}
