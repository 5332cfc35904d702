package verification

import (
	"fmt"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

const (
	FieldGrossAmount                = "grossAmount"
	FieldTaxExclusiveUnitPrice      = "taxExclusiveUnitPrice"
	FieldTaxExclusiveDiscountAmount = "taxExclusiveDiscountAmount"
	FieldTaxAmount                  = "taxAmount"
	FieldNetAmount                  = "netAmount"
	FieldTotalPrice                 = "totalPrice"
)

type LineKind string

const (
	LineKindItem     LineKind = "item"
	LineKindModifier LineKind = "modifier"
)

// LineCheck is the price-field validation of one line or modifier.
type LineCheck struct {
	Name       string          `json:"name"`
	Key        string          `json:"key"`
	Kind       LineKind        `json:"kind"`
	ParentName string          `json:"parent_name,omitempty"`
	Qty        int             `json:"qty"`
	TotalRate  decimal.Decimal `json:"total_rate"`
	RateSource RateSource      `json:"rate_source"`
	Allocation Allocation      `json:"allocation"`
	Fields     []FieldCheck    `json:"fields"`
	Valid      bool            `json:"valid"`
}

// MenuValidation is the price-field validation of every line in an order.
type MenuValidation struct {
	TotalItems        int         `json:"total_items"`
	IsValid           bool        `json:"is_valid"`
	CalculationErrors int         `json:"calculation_errors"`
	Details           []LineCheck `json:"details"`
	ValidationNote    string      `json:"validation_note"`
	DiscountContext   string      `json:"discount_context"`
}

// LineValidator recomputes the six derived price fields of each line and
// compares them with the stored values.
type LineValidator struct {
	cfg Config
}

func NewLineValidator(cfg Config) LineValidator {
	return LineValidator{cfg: cfg}
}

func (v LineValidator) Validate(order *model.Order, info PatternInfo, params AllocationParams) MenuValidation {
	ix := newTaxIndex(order)
	out := MenuValidation{
		IsValid:         true,
		DiscountContext: info.Rationale,
	}

	netOnly := true
	record := func(lc LineCheck) {
		out.TotalItems++
		for _, f := range lc.Fields {
			if f.Valid {
				continue
			}
			out.CalculationErrors++
			if f.Field != FieldNetAmount {
				netOnly = false
			}
		}
		if !lc.Valid {
			out.IsValid = false
		}
		out.Details = append(out.Details, lc)
	}

	for _, li := range order.LineItems {
		record(v.checkLine(li, LineKindItem, "", ix, info, params))
		for _, mod := range li.Modifiers {
			record(v.checkLine(mod, LineKindModifier, li.Name, ix, info, params))
		}
	}

	out.ValidationNote = v.note(info, out.CalculationErrors, netOnly)
	return out
}

func (v LineValidator) checkLine(li model.LineItem, kind LineKind, parent string, ix taxIndex, info PatternInfo, params AllocationParams) LineCheck {
	rates := ix.resolve(li)
	alloc := params.Allocate(li)
	tol := v.cfg.Tolerance()
	netTol := tol
	if info.Pattern.SharesOrderDiscount() {
		netTol = tol.Mul(v.cfg.NetToleranceMultiplier)
	}

	p := li.Price
	r := rates.Total
	divisor := one.Add(r)
	taxed := rates.IsTaxed()
	f := v.cfg.fixed

	lc := LineCheck{
		Name:       li.Name,
		Key:        li.Key(),
		Kind:       kind,
		ParentName: parent,
		Qty:        int(li.Qty),
		TotalRate:  r,
		RateSource: rates.Source,
		Allocation: roundAllocation(v.cfg, alloc),
		Valid:      true,
	}

	gross := v.cfg.round(alloc.Base)
	lc.Fields = append(lc.Fields, newFieldCheck(FieldGrossAmount, p.GrossAmount, gross, tol,
		fmt.Sprintf("unitPrice × qty = %s × %d", f(p.UnitPrice), li.Qty)))

	if taxed {
		lc.Fields = append(lc.Fields,
			newFieldCheck(FieldTaxExclusiveUnitPrice, p.TaxExclusiveUnitPrice, v.cfg.round(p.UnitPrice.Div(divisor)), tol,
				fmt.Sprintf("unitPrice / (1 + R) = %s / %s", f(p.UnitPrice), divisor.Round(6))),
			newFieldCheck(FieldTaxExclusiveDiscountAmount, p.TaxExclusiveDiscountAmount, v.cfg.round(p.DiscountAmount.Div(divisor)), tol,
				fmt.Sprintf("discountAmount / (1 + R) = %s / %s", f(p.DiscountAmount), divisor.Round(6))),
			newFieldCheck(FieldTaxAmount, p.TaxAmount, v.cfg.round(alloc.Taxable.Sub(alloc.Taxable.Div(divisor))), tol,
				fmt.Sprintf("taxable − taxable / (1 + R) = %s − %s / %s", f(alloc.Taxable), f(alloc.Taxable), divisor.Round(6))),
			newFieldCheck(FieldNetAmount, p.NetAmount, v.cfg.round(alloc.Taxable.Div(divisor)), netTol,
				v.netFormula(info, alloc, divisor)),
		)
	} else {
		lc.Fields = append(lc.Fields,
			newFieldCheck(FieldTaxExclusiveUnitPrice, p.TaxExclusiveUnitPrice, p.UnitPrice, tol,
				fmt.Sprintf("unitPrice (tax free) = %s", f(p.UnitPrice))),
			newFieldCheck(FieldTaxExclusiveDiscountAmount, p.TaxExclusiveDiscountAmount, p.DiscountAmount, tol,
				fmt.Sprintf("discountAmount (tax free) = %s", f(p.DiscountAmount))),
			newFieldCheck(FieldTaxAmount, p.TaxAmount, decimal.Zero, tol, "tax free line"),
			newFieldCheck(FieldNetAmount, p.NetAmount, v.cfg.round(alloc.Taxable), netTol,
				v.netFormula(info, alloc, one)),
		)
	}

	lc.Fields = append(lc.Fields, newFieldCheck(FieldTotalPrice, p.TotalPrice, v.cfg.round(alloc.Base.Sub(p.DiscountAmount)), tol,
		fmt.Sprintf("grossAmount − discountAmount = %s − %s", f(alloc.Base), f(p.DiscountAmount))))

	for _, fc := range lc.Fields {
		if !fc.Valid {
			lc.Valid = false
			break
		}
	}
	return lc
}

func (v LineValidator) netFormula(info PatternInfo, a Allocation, divisor decimal.Decimal) string {
	f := v.cfg.fixed
	switch info.Pattern {
	case PatternOrderLevelOnly:
		return fmt.Sprintf("(gross − distributed order discount) / (1 + R) = (%s − %s) / %s",
			f(a.Base), f(a.DistributedOrderDiscount), divisor.Round(6))
	case PatternItemLevelOnly:
		return fmt.Sprintf("(gross − discount) / (1 + R) = (%s − %s) / %s",
			f(a.Base), f(a.LineDiscount), divisor.Round(6))
	case PatternCombined:
		return fmt.Sprintf("(gross − discount − distributed residual) / (1 + R) = (%s − %s − %s) / %s",
			f(a.Base), f(a.LineDiscount), f(a.DistributedOrderDiscount), divisor.Round(6))
	default:
		return fmt.Sprintf("gross / (1 + R) = %s / %s", f(a.Base), divisor.Round(6))
	}
}

func (v LineValidator) note(info PatternInfo, errs int, netOnly bool) string {
	var note string
	switch info.Pattern {
	case PatternNoDiscounts:
		note = "No discounts: every stored field must match its recomputed value."
	case PatternOrderLevelOnly:
		note = "Order-level discount distributed proportionally across lines; netAmount tolerance widened for allocation drift."
	case PatternItemLevelOnly:
		note = "Item-level discounts are absorbed at each line; stored fields must match directly."
		if info.Corrected {
			note += " The order-level discount duplicates the item-level total and was not distributed."
		}
	case PatternCombined:
		note = "Two-stage allocation: line discounts first, then the residual order discount; netAmount tolerance widened for allocation drift."
	}

	switch {
	case errs == 0:
		note += " All fields valid."
	case netOnly && info.Pattern.SharesOrderDiscount():
		note += fmt.Sprintf(" %d netAmount mismatch(es) are consistent with shared-discount allocation artifacts.", errs)
	default:
		note += fmt.Sprintf(" %d field mismatch(es) found.", errs)
	}
	return note
}
