package repository

import (
	"context"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/pkg/pagination"

	"gorm.io/gorm"
)

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	// List pages through the trail newest first; an empty entityID lists every order.
	List(ctx context.Context, entityID string, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, entityID string, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	byEntity := func(tx *gorm.DB) *gorm.DB {
		if entityID == "" {
			return tx
		}
		return tx.Where("entity_id = ?", entityID)
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Scopes(byEntity).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(byEntity, pagination.Scope(page, limit)).Order("created_at desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
