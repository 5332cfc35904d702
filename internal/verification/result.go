package verification

import (
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

// Result is the outcome of verifying one order. It holds findings only; the
// order itself is never modified.
type Result struct {
	OrderID     string          `json:"order_id"`
	Precision   int             `json:"precision"`
	Comparisons []TaxComparison `json:"comparisons"`
	Summary     Summary         `json:"summary"`
}

// TaxComparison compares the stored menu tax for one category with the stored
// order tax and with the amount recomputed from prices.
type TaxComparison struct {
	TaxID model.Identifier `json:"tax_id"`
	Name  string           `json:"tax_name"`
	// Rate is the category rate in percent.
	Rate decimal.Decimal `json:"rate"`

	// MenuSum is the exact sum of stored line amounts, never rounded.
	MenuSum            decimal.Decimal `json:"menu_sum"`
	OrderAmount        decimal.Decimal `json:"order_amount"`
	OrderAmountImputed bool            `json:"order_amount_imputed"`
	Recomputed         decimal.Decimal `json:"recomputed"`
	MenuOrderDiff      decimal.Decimal `json:"menu_order_diff"`
	MenuRecomputedDiff decimal.Decimal `json:"menu_recomputed_diff"`
	IsMatching         bool            `json:"is_matching"`

	Details TaxDetails `json:"details"`
}

type TaxDetails struct {
	Items     []TaxLineDetail `json:"items"`
	Modifiers []TaxLineDetail `json:"modifiers"`
}

// TaxLineDetail is the per-line component breakdown of a recomputed tax.
// Modifier rows are per parent unit except RecomputedFinal.
type TaxLineDetail struct {
	Name       string `json:"name"`
	ParentName string `json:"parent_item,omitempty"`
	Qty        int    `json:"qty"`
	ParentQty  int    `json:"parent_qty,omitempty"`

	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Allocation Allocation      `json:"allocation"`

	Rate      decimal.Decimal `json:"rate"`
	TotalRate decimal.Decimal `json:"total_rate"`

	Expected        decimal.Decimal `json:"expected"`
	Recomputed      decimal.Decimal `json:"recomputed"`
	RecomputedFinal decimal.Decimal `json:"recomputed_final"`
	Difference      decimal.Decimal `json:"difference"`
	Formula         string          `json:"formula"`
}

type Summary struct {
	TotalTaxes      int             `json:"total_taxes"`
	Mismatches      int             `json:"mismatches"`
	TotalDifference decimal.Decimal `json:"total_difference"`

	PatternInfo               PatternInfo         `json:"pattern_info"`
	MenuCalculationValidation MenuValidation      `json:"menu_calculation_validation"`
	MenuItemConsistency       MenuItemConsistency `json:"menu_item_consistency"`
	ChargesValidation         ChargesValidation   `json:"charges_validation"`
	TaxReconciliation         TaxReconciliation   `json:"tax_reconciliation"`
	Anomalies                 Anomalies           `json:"anomalies"`
}

// IsClean reports whether no check in the result found a discrepancy.
func (r *Result) IsClean() bool {
	s := r.Summary
	return s.Mismatches == 0 &&
		s.MenuCalculationValidation.IsValid &&
		s.ChargesValidation.IsValid &&
		s.TaxReconciliation.IsValid &&
		(!s.MenuItemConsistency.Available || s.MenuItemConsistency.IsConsistent)
}

// FieldCheck compares one stored value with its recomputed counterpart.
type FieldCheck struct {
	Field     string          `json:"field"`
	Actual    decimal.Decimal `json:"actual"`
	Expected  decimal.Decimal `json:"expected"`
	Delta     decimal.Decimal `json:"delta"`
	Tolerance decimal.Decimal `json:"tolerance"`
	Valid     bool            `json:"valid"`
	Formula   string          `json:"formula"`
}

func newFieldCheck(field string, actual, expected, tolerance decimal.Decimal, formula string) FieldCheck {
	delta := actual.Sub(expected)
	return FieldCheck{
		Field:     field,
		Actual:    actual,
		Expected:  expected,
		Delta:     delta,
		Tolerance: tolerance,
		Valid:     delta.Abs().LessThanOrEqual(tolerance),
		Formula:   formula,
	}
}
