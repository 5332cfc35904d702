package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionVerifyOrder    = "VERIFY_ORDER"
	ActionVerifyDocument = "VERIFY_DOCUMENT"
	ActionVerifyBatch    = "VERIFY_BATCH"
	ActionImportOrder    = "IMPORT_ORDER"
)

// AuditLog tracks who ran which verification or import, and its outcome
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nil for CLI and unauthenticated runs
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(64);index" json:"entity_id"`        // External order id
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Pattern or import source
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON summary of the outcome
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
