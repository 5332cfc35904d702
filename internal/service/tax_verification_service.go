package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/observability/metrics"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	EventVerificationCompleted = "tax_verification.completed"

	StatusClean    = "clean"
	StatusFindings = "findings"
	StatusNotFound = "not_found"
	StatusFailed   = "failed"

	MaxBatchSize = 200
)

var (
	ErrInvalidDocument = errors.New("invalid order document")
	ErrEmptyBatch      = errors.New("order_ids must not be empty")
	ErrBatchTooLarge   = fmt.Errorf("batch exceeds %d orders", MaxBatchSize)
)

// ToleranceSource yields the verification config currently in effect.
type ToleranceSource interface {
	Current() verification.Config
}

// EventPublisher pushes live events to connected dashboards.
type EventPublisher interface {
	Publish(event string, payload interface{})
}

// --- DTOs ---

type VerifyOptions struct {
	Precision int    // 0 means the configured default
	UserID    string // empty for CLI runs
}

type BatchVerificationRequest struct {
	OrderIDs  []string `json:"order_ids" binding:"required"`
	Precision int      `json:"precision"`
}

type TaxSummaryResponse struct {
	TaxID           string          `json:"tax_id"`
	TaxName         string          `json:"tax_name"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	ExpectedTotal   decimal.Decimal `json:"expected_total"` // Sum of stored menu line taxes
	RecomputedTotal decimal.Decimal `json:"recomputed_total"`
	OrderAmount     decimal.Decimal `json:"order_amount"`
	Difference      decimal.Decimal `json:"difference"` // Expected minus recomputed
	IsMatching      bool            `json:"is_matching"`
	Imputed         bool            `json:"order_amount_imputed"`
}

type TaxVerificationResponse struct {
	OrderID         string               `json:"order_id"`
	Precision       int                  `json:"precision"`
	Status          string               `json:"status"`
	Pattern         string               `json:"pattern"`
	PatternCode     int                  `json:"pattern_code"`
	OrderAmount     decimal.Decimal      `json:"order_amount"`
	Mismatches      int                  `json:"mismatches"`
	TotalDifference decimal.Decimal      `json:"total_difference"`
	Taxes           []TaxSummaryResponse `json:"taxes"`
	VerifiedAt      string               `json:"verified_at"`

	// Result is the full finding set; handlers drop it unless asked for.
	Result *verification.Result `json:"result,omitempty"`
}

type BatchItemResponse struct {
	OrderID string                   `json:"order_id"`
	Status  string                   `json:"status"`
	Error   string                   `json:"error,omitempty"`
	Result  *TaxVerificationResponse `json:"result,omitempty"`
}

type BatchVerificationResponse struct {
	Total    int                 `json:"total"`
	Clean    int                 `json:"clean"`
	Findings int                 `json:"findings"`
	NotFound int                 `json:"not_found"`
	Failed   int                 `json:"failed"`
	Items    []BatchItemResponse `json:"items"`
}

// --- Interface ---

type TaxVerificationService interface {
	VerifyOrderByID(ctx context.Context, externalID string, opts VerifyOptions) (*TaxVerificationResponse, error)
	VerifyDocument(ctx context.Context, raw []byte, opts VerifyOptions) (*TaxVerificationResponse, error)
	VerifyBatch(ctx context.Context, req BatchVerificationRequest, userID string) (BatchVerificationResponse, error)
}

type taxVerificationService struct {
	orders     repository.OrderRepository
	audit      repository.AuditRepository
	tolerances ToleranceSource
	events     EventPublisher
	workers    int
	logger     *zap.Logger
}

// NewTaxVerificationService wires the verification engine to the order store.
// events may be nil.
func NewTaxVerificationService(
	orders repository.OrderRepository,
	audit repository.AuditRepository,
	tolerances ToleranceSource,
	events EventPublisher,
	workers int,
	logger *zap.Logger,
) TaxVerificationService {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &taxVerificationService{
		orders:     orders,
		audit:      audit,
		tolerances: tolerances,
		events:     events,
		workers:    workers,
		logger:     logger,
	}
}

// --- Implementation ---

func (s *taxVerificationService) VerifyOrderByID(ctx context.Context, externalID string, opts VerifyOptions) (*TaxVerificationResponse, error) {
	externalID = strings.TrimSpace(externalID)
	start := time.Now()

	verifier, err := s.newVerifier(opts.Precision)
	if err != nil {
		return nil, err
	}

	doc, err := s.orders.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			metrics.ObserveVerification("", metrics.ResultNotFound, time.Since(start))
			return nil, fmt.Errorf("order with ID %s not found: %w", externalID, err)
		}
		return nil, fmt.Errorf("failed to fetch order %s: %w", externalID, err)
	}

	order, err := doc.Order()
	if err != nil {
		return nil, fmt.Errorf("%w: stored order %s: %v", ErrInvalidDocument, externalID, err)
	}
	if order.InternalID == "" {
		order.InternalID = doc.ExternalID
	}

	return s.run(ctx, verifier, order, model.ActionVerifyOrder, opts.UserID, start)
}

func (s *taxVerificationService) VerifyDocument(ctx context.Context, raw []byte, opts VerifyOptions) (*TaxVerificationResponse, error) {
	start := time.Now()

	verifier, err := s.newVerifier(opts.Precision)
	if err != nil {
		return nil, err
	}

	order, err := model.DecodeOrder(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	return s.run(ctx, verifier, order, model.ActionVerifyDocument, opts.UserID, start)
}

// VerifyBatch verifies each order on a bounded worker pool. Per-order
// failures are reported in the items; only cancellation aborts the batch.
func (s *taxVerificationService) VerifyBatch(ctx context.Context, req BatchVerificationRequest, userID string) (BatchVerificationResponse, error) {
	ids := dedupe(req.OrderIDs)
	if len(ids) == 0 {
		return BatchVerificationResponse{}, ErrEmptyBatch
	}
	if len(ids) > MaxBatchSize {
		return BatchVerificationResponse{}, ErrBatchTooLarge
	}
	if _, err := s.newVerifier(req.Precision); err != nil {
		return BatchVerificationResponse{}, err
	}

	items := make([]BatchItemResponse, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.VerifyOrderByID(gctx, id, VerifyOptions{Precision: req.Precision, UserID: userID})
			items[i] = batchItem(id, res, err)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchVerificationResponse{}, fmt.Errorf("failed to verify batch: %w", err)
	}

	resp := BatchVerificationResponse{Total: len(items), Items: items}
	for _, it := range items {
		switch it.Status {
		case StatusClean:
			resp.Clean++
		case StatusFindings:
			resp.Findings++
		case StatusNotFound:
			resp.NotFound++
		default:
			resp.Failed++
		}
	}

	s.writeAuditLog(ctx, userID, model.ActionVerifyBatch, "", fmt.Sprintf("%d orders", resp.Total), map[string]interface{}{
		"order_ids": ids,
		"precision": req.Precision,
		"clean":     resp.Clean,
		"findings":  resp.Findings,
		"not_found": resp.NotFound,
		"failed":    resp.Failed,
	})

	return resp, nil
}

// --- Helpers ---

func (s *taxVerificationService) newVerifier(precision int) (*verification.Verifier, error) {
	return verification.NewVerifier(s.tolerances.Current().WithPrecision(precision))
}

func (s *taxVerificationService) run(ctx context.Context, verifier *verification.Verifier, order *model.Order, action, userID string, start time.Time) (*TaxVerificationResponse, error) {
	result, err := verifier.Verify(order)
	if err != nil {
		metrics.ObserveVerification("", metrics.ResultError, time.Since(start))
		s.logger.Warn("order verification failed",
			zap.String("order_id", order.InternalID),
			zap.Error(err),
		)
		s.writeAuditLog(ctx, userID, action, order.InternalID, "error", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	resp := toVerificationResponse(result)
	info := result.Summary.PatternInfo
	resultLabel := metrics.ResultClean
	if resp.Status == StatusFindings {
		resultLabel = metrics.ResultFindings
	}
	elapsed := time.Since(start)
	metrics.ObserveVerification(info.Pattern.Label(), resultLabel, elapsed)
	metrics.AddMismatches(result.Summary.Mismatches)

	s.logger.Info("order verified",
		zap.String("order_id", resp.OrderID),
		zap.String("pattern", info.Pattern.Label()),
		zap.Bool("pattern_corrected", info.Corrected),
		zap.String("status", resp.Status),
		zap.Int("mismatches", resp.Mismatches),
		zap.String("total_difference", resp.TotalDifference.String()),
		zap.Duration("elapsed", elapsed),
	)

	s.writeAuditLog(ctx, userID, action, resp.OrderID, info.Pattern.Label(), map[string]interface{}{
		"status":           resp.Status,
		"pattern":          info.Code,
		"mismatches":       resp.Mismatches,
		"total_difference": resp.TotalDifference.String(),
		"precision":        resp.Precision,
	})

	if s.events != nil {
		s.events.Publish(EventVerificationCompleted, map[string]interface{}{
			"order_id":   resp.OrderID,
			"status":     resp.Status,
			"pattern":    info.Code,
			"mismatches": resp.Mismatches,
		})
	}

	return resp, nil
}

func toVerificationResponse(r *verification.Result) *TaxVerificationResponse {
	resp := &TaxVerificationResponse{
		OrderID:         r.OrderID,
		Precision:       r.Precision,
		Status:          StatusClean,
		Pattern:         r.Summary.PatternInfo.Name,
		PatternCode:     r.Summary.PatternInfo.Code,
		OrderAmount:     decimal.Zero,
		Mismatches:      r.Summary.Mismatches,
		TotalDifference: r.Summary.TotalDifference,
		Taxes:           make([]TaxSummaryResponse, 0, len(r.Comparisons)),
		VerifiedAt:      time.Now().UTC().Format(time.RFC3339),
		Result:          r,
	}
	if !r.IsClean() {
		resp.Status = StatusFindings
	}

	for _, c := range r.Comparisons {
		resp.OrderAmount = resp.OrderAmount.Add(c.OrderAmount)
		resp.Taxes = append(resp.Taxes, TaxSummaryResponse{
			TaxID:           c.TaxID.String(),
			TaxName:         c.Name,
			TaxRate:         c.Rate,
			ExpectedTotal:   c.MenuSum,
			RecomputedTotal: c.Recomputed,
			OrderAmount:     c.OrderAmount,
			Difference:      c.MenuRecomputedDiff,
			IsMatching:      c.IsMatching,
			Imputed:         c.OrderAmountImputed,
		})
	}
	return resp
}

func batchItem(id string, res *TaxVerificationResponse, err error) BatchItemResponse {
	item := BatchItemResponse{OrderID: id}
	switch {
	case err == nil:
		item.Status = res.Status
		res.Result = nil
		item.Result = res
	case errors.Is(err, repository.ErrOrderNotFound):
		item.Status = StatusNotFound
		item.Error = err.Error()
	default:
		item.Status = StatusFailed
		item.Error = err.Error()
	}
	return item
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *taxVerificationService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	writeAuditLog(ctx, s.audit, s.logger, userID, action, entityID, entityName, details)
}
