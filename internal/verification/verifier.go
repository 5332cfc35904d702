package verification

import (
	"fmt"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

// Verifier reconciles the tax amounts stored on an order with amounts
// recomputed from its prices. It holds no per-order state, so one Verifier
// may be shared by concurrent callers.
type Verifier struct {
	cfg         Config
	classifier  PatternClassifier
	apportioner Apportioner
	lines       LineValidator
	charges     ChargeValidator
	reconciler  CrossSourceReconciler
	consistency ConsistencyComparator
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Verifier{
		cfg:         cfg,
		classifier:  NewPatternClassifier(cfg),
		apportioner: NewApportioner(cfg),
		lines:       NewLineValidator(cfg),
		charges:     NewChargeValidator(cfg),
		reconciler:  NewCrossSourceReconciler(cfg),
		consistency: NewConsistencyComparator(cfg),
	}, nil
}

func (v *Verifier) Config() Config {
	return v.cfg
}

// Verify runs every check over the order. The only error is a
// *TaxAssignmentError, returned before any comparison when no line carries
// a tax; all discrepancies are reported in the Result.
func (v *Verifier) Verify(order *model.Order) (*Result, error) {
	menuIDs := menuTaxIDs(order)
	if len(menuIDs) == 0 {
		items, mods := 0, 0
		for _, li := range order.LineItems {
			items++
			mods += len(li.Modifiers)
		}
		return nil, &TaxAssignmentError{Items: items, Modifiers: mods}
	}

	info := v.classifier.Classify(order)
	params := NewAllocationParams(order, info)
	ix := newTaxIndex(order)

	res := &Result{
		OrderID:     order.InternalID,
		Precision:   v.cfg.Precision,
		Comparisons: []TaxComparison{},
	}

	totalDiff := decimal.Zero
	for _, cat := range order.OrderTaxes {
		if !relevant(cat.ID, menuIDs) {
			continue
		}
		cmp := v.compare(order, cat, ix, params)
		if !cmp.IsMatching {
			res.Summary.Mismatches++
		}
		totalDiff = totalDiff.Add(cmp.MenuOrderDiff)
		res.Comparisons = append(res.Comparisons, cmp)
	}

	res.Summary.TotalTaxes = len(res.Comparisons)
	res.Summary.TotalDifference = v.cfg.round(totalDiff)
	res.Summary.PatternInfo = info
	res.Summary.MenuCalculationValidation = v.lines.Validate(order, info, params)
	res.Summary.MenuItemConsistency = v.consistency.Compare(order)
	res.Summary.ChargesValidation = v.charges.Validate(order)
	res.Summary.TaxReconciliation = v.reconciler.Reconcile(order)
	res.Summary.Anomalies = res.Summary.TaxReconciliation.Anomalies
	return res, nil
}

func relevant(id model.Identifier, menuIDs []model.Identifier) bool {
	for _, m := range menuIDs {
		if m.MatchesSuffix(id) {
			return true
		}
	}
	return false
}

func (v *Verifier) compare(order *model.Order, cat model.TaxCategory, ix taxIndex, params AllocationParams) TaxComparison {
	cmp := TaxComparison{
		TaxID:   cat.ID,
		Name:    cat.Name,
		Rate:    cat.Rate,
		MenuSum: storedMenuTax(order, cat.ID),
		Details: TaxDetails{Items: []TaxLineDetail{}, Modifiers: []TaxLineDetail{}},
	}
	if cmp.Name == "" {
		cmp.Name = "Tax " + cat.ID.Short()
	}

	recomputed := decimal.Zero
	for _, li := range order.LineItems {
		if li.HasTax(cat.ID) {
			d := v.detail(li, cat, ix, params, 1)
			recomputed = recomputed.Add(d.RecomputedFinal)
			cmp.Details.Items = append(cmp.Details.Items, d)
		}
		for _, mod := range li.Modifiers {
			if !mod.HasTax(cat.ID) {
				continue
			}
			d := v.detail(mod, cat, ix, params, int(li.Qty))
			d.ParentName = li.Name
			d.ParentQty = int(li.Qty)
			recomputed = recomputed.Add(d.RecomputedFinal)
			cmp.Details.Modifiers = append(cmp.Details.Modifiers, d)
		}
	}

	cmp.Recomputed = v.cfg.round(recomputed)
	cmp.OrderAmount = cat.Amount
	if cmp.OrderAmount.IsZero() && cmp.Recomputed.IsPositive() {
		cmp.OrderAmount = cmp.Recomputed
		cmp.OrderAmountImputed = true
	}
	cmp.MenuOrderDiff = v.cfg.round(cmp.MenuSum.Sub(cmp.OrderAmount))
	cmp.MenuRecomputedDiff = v.cfg.round(cmp.MenuSum.Sub(cmp.Recomputed))
	cmp.IsMatching = cmp.MenuOrderDiff.Abs().LessThanOrEqual(v.cfg.Tolerance())
	return cmp
}

// detail recomputes one line's share of the category. multiplier is the
// parent quantity for modifiers and 1 for items.
func (v *Verifier) detail(li model.LineItem, cat model.TaxCategory, ix taxIndex, params AllocationParams, multiplier int) TaxLineDetail {
	rates := ix.resolve(li)
	alloc := params.Allocate(li)

	rate := rates.RateFor(cat.ID)
	if rate.IsZero() && rates.Source == RateSourceDerived && len(li.Taxes) == 1 {
		rate = rates.Total
	}

	tax := v.apportioner.Split(alloc.Taxable, rate, rates.Total)
	final := tax.Mul(decimal.NewFromInt(int64(multiplier)))
	expected := li.StoredTax(cat.ID)

	formula := v.apportioner.SplitFormula(alloc.Taxable, rate, rates.Total, tax)
	if multiplier != 1 {
		formula = fmt.Sprintf("(%s) × %d = %s", formula, multiplier, v.cfg.fixed(final))
	}

	return TaxLineDetail{
		Name:            li.Name,
		Qty:             int(li.Qty),
		UnitPrice:       li.Price.UnitPrice,
		TotalPrice:      li.Price.TotalPrice,
		Allocation:      roundAllocation(v.cfg, alloc),
		Rate:            rate,
		TotalRate:       rates.Total,
		Expected:        expected,
		Recomputed:      tax,
		RecomputedFinal: final,
		Difference:      v.cfg.round(expected.Sub(tax)),
		Formula:         formula,
	}
}

func roundAllocation(cfg Config, a Allocation) Allocation {
	return Allocation{
		Base:                     cfg.round(a.Base),
		LineDiscount:             cfg.round(a.LineDiscount),
		PostItem:                 cfg.round(a.PostItem),
		DistributedOrderDiscount: cfg.round(a.DistributedOrderDiscount),
		Taxable:                  cfg.round(a.Taxable),
	}
}
