package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	// ListVerificationEvents returns single-order verification audit entries
	// created within [start, end], oldest first.
	ListVerificationEvents(ctx context.Context, start, end time.Time) ([]model.AuditLog, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) ListVerificationEvents(ctx context.Context, start, end time.Time) ([]model.AuditLog, error) {
	var logs []model.AuditLog
	if err := GetDB(ctx, r.db).Model(&model.AuditLog{}).
		Select("entity_id, entity_name, details, created_at").
		Where("action IN ? AND created_at >= ? AND created_at <= ?",
			[]string{model.ActionVerifyOrder, model.ActionVerifyDocument}, start.UTC(), end.UTC()).
		Order("created_at asc").
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to query verification events: %w", err)
	}
	return logs, nil
}
