package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/observability/metrics"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// --- DTOs ---

type ImportedOrder struct {
	ExternalID string `json:"external_id"`
	Created    bool   `json:"created"`
}

type ImportOrdersResponse struct {
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Orders   []ImportedOrder `json:"orders"`
}

type OrderDocumentResponse struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// --- Interface ---

type OrderImportService interface {
	// ImportDocuments stores one order document or a JSON array of them. The
	// import is all or nothing.
	ImportDocuments(ctx context.Context, raw []byte, userID string) (ImportOrdersResponse, error)
	ListOrders(ctx context.Context, page, limit int) ([]OrderDocumentResponse, int64, error)
}

type orderImportService struct {
	orders    repository.OrderRepository
	audit     repository.AuditRepository
	txManager repository.TransactionManager
	logger    *zap.Logger
}

func NewOrderImportService(orders repository.OrderRepository, audit repository.AuditRepository, txManager repository.TransactionManager, logger *zap.Logger) OrderImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &orderImportService{orders: orders, audit: audit, txManager: txManager, logger: logger}
}

// --- Implementation ---

func (s *orderImportService) ImportDocuments(ctx context.Context, raw []byte, userID string) (ImportOrdersResponse, error) {
	docs, err := splitDocuments(raw)
	if err != nil {
		metrics.IncOrderImport(metrics.ImportRejected)
		return ImportOrdersResponse{}, err
	}

	resp := ImportOrdersResponse{Orders: make([]ImportedOrder, 0, len(docs))}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, d := range docs {
			created, err := s.orders.Upsert(txCtx, d)
			if err != nil {
				return fmt.Errorf("failed to store order %s: %w", d.ExternalID, err)
			}
			resp.Orders = append(resp.Orders, ImportedOrder{ExternalID: d.ExternalID, Created: created})
		}
		return nil
	})
	if err != nil {
		metrics.IncOrderImport(metrics.ImportRejected)
		return ImportOrdersResponse{}, err
	}

	for _, o := range resp.Orders {
		outcome := metrics.ImportUpdated
		if o.Created {
			resp.Inserted++
			outcome = metrics.ImportInserted
		} else {
			resp.Updated++
		}
		metrics.IncOrderImport(outcome)
		writeAuditLog(ctx, s.audit, s.logger, userID, model.ActionImportOrder, o.ExternalID, outcome, o)
	}

	s.logger.Info("orders imported", zap.Int("inserted", resp.Inserted), zap.Int("updated", resp.Updated))
	return resp, nil
}

func (s *orderImportService) ListOrders(ctx context.Context, page, limit int) ([]OrderDocumentResponse, int64, error) {
	docs, total, err := s.orders.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	res := make([]OrderDocumentResponse, 0, len(docs))
	for _, d := range docs {
		res = append(res, OrderDocumentResponse{
			ID:         d.ID.String(),
			ExternalID: d.ExternalID,
			CreatedAt:  d.CreatedAt.Format("2006-01-02 15:04:05"),
			UpdatedAt:  d.UpdatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	return res, total, nil
}

// --- Helpers ---

// splitDocuments decodes each document once to validate it and to read its
// internalId; the stored copy is the original bytes.
func splitDocuments(raw []byte) ([]*model.OrderDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrInvalidDocument)
	}

	var parts []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	} else {
		parts = []json.RawMessage{trimmed}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: no documents", ErrInvalidDocument)
	}

	docs := make([]*model.OrderDocument, 0, len(parts))
	seen := make(map[string]int, len(parts))
	for i, p := range parts {
		order, err := model.DecodeOrder(p)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %v", ErrInvalidDocument, i, err)
		}
		id := strings.TrimSpace(order.InternalID)
		if id == "" {
			return nil, fmt.Errorf("%w: document %d has no internalId", ErrInvalidDocument, i)
		}
		doc := &model.OrderDocument{ExternalID: id, Document: datatypes.JSON(p)}
		// a later copy of the same order replaces the earlier one
		if at, ok := seen[id]; ok {
			docs[at] = doc
			continue
		}
		seen[id] = len(docs)
		docs = append(docs, doc)
	}
	return docs, nil
}
