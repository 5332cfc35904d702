package repository

import (
	"context"
	"errors"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/pagination"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository interface {
	FindByExternalID(ctx context.Context, externalID string) (*model.OrderDocument, error)
	// Upsert stores doc under its external id and reports whether a new row was created.
	Upsert(ctx context.Context, doc *model.OrderDocument) (bool, error)
	List(ctx context.Context, page, limit int) ([]model.OrderDocument, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) FindByExternalID(ctx context.Context, externalID string) (*model.OrderDocument, error) {
	var doc model.OrderDocument
	if err := GetDB(ctx, r.db).Where("external_id = ?", externalID).First(&doc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *orderRepository) Upsert(ctx context.Context, doc *model.OrderDocument) (bool, error) {
	db := GetDB(ctx, r.db)

	var existing model.OrderDocument
	err := db.Where("external_id = ?", doc.ExternalID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return true, db.Create(doc).Error
	case err != nil:
		return false, err
	}

	doc.ID = existing.ID
	doc.CreatedAt = existing.CreatedAt
	if err := db.Model(&existing).Update("document", doc.Document).Error; err != nil {
		return false, err
	}
	doc.UpdatedAt = existing.UpdatedAt
	return false, nil
}

// List returns documents newest first without their bodies.
func (r *orderRepository) List(ctx context.Context, page, limit int) ([]model.OrderDocument, int64, error) {
	var docs []model.OrderDocument
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.OrderDocument{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.
		Select("id", "external_id", "created_at", "updated_at").
		Order("created_at DESC").
		Scopes(pagination.Scope(page, limit)).
		Find(&docs).Error; err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}
