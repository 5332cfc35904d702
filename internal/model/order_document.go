package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderDocument is a stored copy of an order document, keyed by the
// platform's external order id. The document itself is kept verbatim.
type OrderDocument struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ExternalID string         `gorm:"type:varchar(64);not null;uniqueIndex" json:"external_id"`
	Document   datatypes.JSON `json:"document"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (d *OrderDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Order decodes the stored document.
func (d *OrderDocument) Order() (*Order, error) {
	return DecodeOrder(d.Document)
}
