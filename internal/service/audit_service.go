package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuditLogResponse struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	Action     string          `json:"action"`
	EntityID   string          `json:"entity_id"`
	EntityName string          `json:"entity_name"`
	Details    json.RawMessage `json:"details"`
	CreatedAt  string          `json:"created_at"`
}

type AuditService interface {
	GetAuditLogs(ctx context.Context, orderID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	repo repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

// GetAuditLogs pages through the verification trail, optionally for one order
func (s *auditService) GetAuditLogs(ctx context.Context, orderID string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.repo.List(ctx, orderID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		userID := ""
		if l.UserID != nil {
			userID = l.UserID.String()
		}
		details := json.RawMessage(l.Details)
		if !json.Valid(details) {
			details = json.RawMessage("null")
		}

		res = append(res, AuditLogResponse{
			ID:         l.ID.String(),
			UserID:     userID,
			Action:     l.Action,
			EntityID:   l.EntityID,
			EntityName: l.EntityName,
			Details:    details,
			CreatedAt:  l.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	return res, total, nil
}

// writeAuditLog records an action without failing the caller.
func writeAuditLog(ctx context.Context, repo repository.AuditRepository, logger *zap.Logger, userID, action, entityID, entityName string, details interface{}) {
	if repo == nil {
		return
	}
	detailsJSON, _ := json.Marshal(details)

	log := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}

	if userID != "" {
		parsed, err := uuid.Parse(userID)
		if err == nil {
			log.UserID = &parsed
		}
	}

	// Best-effort audit log
	if err := repo.Log(ctx, &log); err != nil {
		logger.Warn("failed to write audit log", zap.String("action", action), zap.String("entity_id", entityID), zap.Error(err))
	}
}
