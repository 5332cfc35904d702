package verification

import (
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

// Tier grades how well the three tax sources agree for one category.
type Tier string

const (
	// TierExact: menu lines alone match the order tax.
	TierExact Tier = "exact"
	// TierCombined: menu plus charges match, menu alone does not.
	TierCombined Tier = "combined"
	// TierMenuOnly: menu lines match but adding charges overshoots. A warning,
	// not a failure; the order tax usually leaves the charge tax out.
	TierMenuOnly Tier = "menu_only"
	TierMismatch Tier = "mismatch"
)

type ReconciliationRow struct {
	TaxID            model.Identifier `json:"tax_id"`
	Name             string           `json:"tax_name"`
	MenuTotal        decimal.Decimal  `json:"menu_total"`
	ChargeTotal      decimal.Decimal  `json:"charge_total"`
	Combined         decimal.Decimal  `json:"combined"`
	OrderAmount      decimal.Decimal  `json:"order_amount"`
	MenuVariance     decimal.Decimal  `json:"menu_variance"`
	CombinedVariance decimal.Decimal  `json:"combined_variance"`
	InMenu           bool             `json:"in_menu"`
	InCharges        bool             `json:"in_charges"`
	InOrder          bool             `json:"in_order"`
	Tier             Tier             `json:"tier"`
}

type Anomalies struct {
	// MissingInOrder lists ids used by lines or charges with no order tax.
	MissingInOrder []model.Identifier `json:"missing_in_order"`
	// OrderOnly lists order taxes no line or charge refers to.
	OrderOnly []model.Identifier `json:"order_only"`
}

func (a Anomalies) Empty() bool {
	return len(a.MissingInOrder) == 0 && len(a.OrderOnly) == 0
}

type TaxReconciliation struct {
	Rows      []ReconciliationRow `json:"rows"`
	Anomalies Anomalies           `json:"anomalies"`
	IsValid   bool                `json:"is_valid"`
}

// CrossSourceReconciler totals each tax category across menu lines, included
// charges and order taxes.
type CrossSourceReconciler struct {
	cfg Config
}

func NewCrossSourceReconciler(cfg Config) CrossSourceReconciler {
	return CrossSourceReconciler{cfg: cfg}
}

func (r CrossSourceReconciler) Reconcile(order *model.Order) TaxReconciliation {
	var rows []ReconciliationRow

	// rows are keyed by suffix match; the longest id form is kept for display
	row := func(id model.Identifier) *ReconciliationRow {
		for i := range rows {
			if rows[i].TaxID.MatchesSuffix(id) {
				rows[i].TaxID = rows[i].TaxID.Longer(id)
				return &rows[i]
			}
		}
		rows = append(rows, ReconciliationRow{
			TaxID:       id,
			MenuTotal:   decimal.Zero,
			ChargeTotal: decimal.Zero,
			OrderAmount: decimal.Zero,
		})
		return &rows[len(rows)-1]
	}

	for _, cat := range order.OrderTaxes {
		if cat.ID.IsZero() {
			continue
		}
		rw := row(cat.ID)
		rw.InOrder = true
		rw.OrderAmount = rw.OrderAmount.Add(cat.Amount)
		if rw.Name == "" {
			rw.Name = cat.Name
		}
	}

	for _, li := range order.LineItems {
		for _, t := range li.Taxes {
			if t.TaxID.IsZero() {
				continue
			}
			rw := row(t.TaxID)
			rw.InMenu = true
			rw.MenuTotal = rw.MenuTotal.Add(t.Amount)
		}
		for _, mod := range li.Modifiers {
			for _, t := range mod.Taxes {
				if t.TaxID.IsZero() {
					continue
				}
				rw := row(t.TaxID)
				rw.InMenu = true
				rw.MenuTotal = rw.MenuTotal.Add(t.Amount.Mul(li.Qty.Decimal()))
			}
		}
	}

	for _, ch := range order.Charges {
		if !ch.IncludeInInvoice {
			continue
		}
		for _, frag := range ch.TaxFragments {
			if frag.TaxID.IsZero() {
				continue
			}
			rw := row(frag.TaxID)
			rw.InCharges = true
			rw.ChargeTotal = rw.ChargeTotal.Add(frag.Amount)
		}
	}

	out := TaxReconciliation{IsValid: true}
	tol := r.cfg.Tolerance()
	for i := range rows {
		rw := &rows[i]
		rw.Combined = rw.MenuTotal.Add(rw.ChargeTotal)
		rw.MenuVariance = rw.MenuTotal.Sub(rw.OrderAmount)
		rw.CombinedVariance = rw.Combined.Sub(rw.OrderAmount)

		menuOK := rw.MenuVariance.Abs().LessThanOrEqual(tol)
		combinedOK := rw.CombinedVariance.Abs().LessThanOrEqual(tol)
		switch {
		case menuOK && combinedOK:
			rw.Tier = TierExact
		case combinedOK:
			rw.Tier = TierCombined
		case menuOK:
			rw.Tier = TierMenuOnly
		default:
			rw.Tier = TierMismatch
			out.IsValid = false
		}

		switch {
		case !rw.InOrder:
			out.Anomalies.MissingInOrder = append(out.Anomalies.MissingInOrder, rw.TaxID)
			out.IsValid = false
		case !rw.InMenu && !rw.InCharges:
			out.Anomalies.OrderOnly = append(out.Anomalies.OrderOnly, rw.TaxID)
		}
	}
	out.Rows = rows
	return out
}
