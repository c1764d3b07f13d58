package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhoneAPIKey binds a verified phone number to its proxy key
type PhoneAPIKey struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PhoneNumber    string    `gorm:"size:32;not null;uniqueIndex" json:"phone_number"`
	KeyCiphertext  string    `gorm:"type:text;not null" json:"-"`
	KeyFingerprint string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate hook to generate UUID before creating record
func (k *PhoneAPIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}

// SpendLogsQuery is the query string of GET /spend/logs
type SpendLogsQuery struct {
	APIKey string `form:"api_key"`
	Limit  int    `form:"limit,default=100" binding:"min=1,max=1000"`
	Offset int    `form:"offset,default=0" binding:"min=0"`
}
