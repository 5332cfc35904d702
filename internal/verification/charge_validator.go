package verification

import (
	"fmt"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

// Charge issue codes.
const (
	IssueChargeAmountMismatch     = "charge_amount_mismatch"
	IssueChargeFragmentsMismatch  = "charge_fragments_mismatch"
	IssueChargeRecomputeMismatch  = "charge_tax_recompute_mismatch"
	IssueChargeTaxMissingInOrder  = "charge_tax_missing_in_order"
	IssueChargeTaxExceedsOrderTax = "charge_tax_exceeds_order_tax"
)

// ChargeCheck is the validation of one included charge.
type ChargeCheck struct {
	Index              int             `json:"index"`
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	TaxExclusiveAmount decimal.Decimal `json:"tax_exclusive_amount"`
	Tax                decimal.Decimal `json:"tax"`
	FragmentSum        decimal.Decimal `json:"fragment_sum"`
	Fields             []FieldCheck    `json:"fields"`
	Valid              bool            `json:"valid"`
}

// ChargeIssue is a non-fatal charge finding.
type ChargeIssue struct {
	Code        string           `json:"code"`
	ChargeIndex int              `json:"charge_index"`
	TaxID       model.Identifier `json:"tax_id,omitempty"`
	Message     string           `json:"message"`
}

type ChargesValidation struct {
	IncludedCount int             `json:"included_count"`
	ExcludedCount int             `json:"excluded_count"`
	IncludedTotal decimal.Decimal `json:"included_total"`
	Charges       []ChargeCheck   `json:"charges"`
	TotalCheck    FieldCheck      `json:"total_check"`
	TaxTotalCheck FieldCheck      `json:"tax_total_check"`
	Issues        []ChargeIssue   `json:"issues"`
	IsValid       bool            `json:"is_valid"`
}

// ChargeValidator checks invoice charges and their tax fragments against the
// order-level totals. Charges not included in the invoice are ignored.
type ChargeValidator struct {
	cfg         Config
	apportioner Apportioner
}

func NewChargeValidator(cfg Config) ChargeValidator {
	return ChargeValidator{cfg: cfg, apportioner: NewApportioner(cfg)}
}

func (v ChargeValidator) Validate(order *model.Order) ChargesValidation {
	ix := newTaxIndex(order)
	tol := v.cfg.Tolerance()
	f := v.cfg.fixed

	out := ChargesValidation{IncludedTotal: decimal.Zero, IsValid: true}

	// per order tax category, indexed like order.OrderTaxes
	aggregate := make([]decimal.Decimal, len(order.OrderTaxes))
	for i := range aggregate {
		aggregate[i] = decimal.Zero
	}
	// first included charge whose fragments name the category
	firstCharge := make([]int, len(order.OrderTaxes))
	seen := make([]bool, len(order.OrderTaxes))

	for idx, ch := range order.Charges {
		if !ch.IncludeInInvoice {
			out.ExcludedCount++
			continue
		}
		out.IncludedCount++
		out.IncludedTotal = out.IncludedTotal.Add(ch.Amount)

		check := ChargeCheck{
			Index:              idx,
			Type:               ch.Type,
			Amount:             ch.Amount,
			TaxExclusiveAmount: ch.TaxExclusiveAmount,
			Tax:                ch.Tax,
			FragmentSum:        decimal.Zero,
			Valid:              true,
		}
		for _, frag := range ch.TaxFragments {
			check.FragmentSum = check.FragmentSum.Add(frag.Amount)
		}

		amountCheck := newFieldCheck("amount", ch.TaxExclusiveAmount.Add(ch.Tax), ch.Amount, tol,
			fmt.Sprintf("taxExclusiveAmount + tax = %s + %s", f(ch.TaxExclusiveAmount), f(ch.Tax)))
		check.Fields = append(check.Fields, amountCheck)
		if !amountCheck.Valid {
			out.Issues = append(out.Issues, ChargeIssue{
				Code:        IssueChargeAmountMismatch,
				ChargeIndex: idx,
				Message: fmt.Sprintf("charge %q: taxExclusiveAmount + tax = %s, amount = %s",
					ch.Type, f(amountCheck.Actual), f(ch.Amount)),
			})
		}

		if len(ch.TaxFragments) > 0 {
			fragCheck := newFieldCheck("tax", check.FragmentSum, ch.Tax, tol,
				fmt.Sprintf("sum of %d tax fragment(s)", len(ch.TaxFragments)))
			check.Fields = append(check.Fields, fragCheck)
			if !fragCheck.Valid {
				out.Issues = append(out.Issues, ChargeIssue{
					Code:        IssueChargeFragmentsMismatch,
					ChargeIndex: idx,
					Message: fmt.Sprintf("charge %q: tax fragments sum to %s, tax = %s",
						ch.Type, f(check.FragmentSum), f(ch.Tax)),
				})
			}
		}

		for _, frag := range ch.TaxFragments {
			pos := -1
			for i, c := range order.OrderTaxes {
				if c.ID.MatchesSuffix(frag.TaxID) {
					pos = i
					break
				}
			}
			if pos < 0 {
				out.Issues = append(out.Issues, ChargeIssue{
					Code:        IssueChargeTaxMissingInOrder,
					ChargeIndex: idx,
					TaxID:       frag.TaxID,
					Message:     fmt.Sprintf("charge %q: tax %s is not present in order taxes", ch.Type, frag.TaxID),
				})
				continue
			}
			if !seen[pos] {
				seen[pos] = true
				firstCharge[pos] = idx
			}
			aggregate[pos] = aggregate[pos].Add(frag.Amount)
		}

		if len(ch.TaxFragments) == 1 {
			frag := ch.TaxFragments[0]
			if cat, ok := ix.find(frag.TaxID); ok {
				rate := cat.Rate.Div(hundred)
				expected := v.apportioner.InclusiveTax(ch.Amount, rate)
				rc := newFieldCheck("taxFragment", frag.Amount, expected, tol,
					fmt.Sprintf("amount − amount / (1 + rate) = %s − %s / %s", f(ch.Amount), f(ch.Amount), one.Add(rate).Round(6)))
				check.Fields = append(check.Fields, rc)
				if !rc.Valid {
					out.Issues = append(out.Issues, ChargeIssue{
						Code:        IssueChargeRecomputeMismatch,
						ChargeIndex: idx,
						TaxID:       frag.TaxID,
						Message: fmt.Sprintf("charge %q: stored tax %s, recomputed %s at %s%%",
							ch.Type, f(frag.Amount), f(expected), cat.Rate),
					})
				}
			}
		}

		for _, fc := range check.Fields {
			if !fc.Valid {
				check.Valid = false
			}
		}
		out.Charges = append(out.Charges, check)
	}

	for i, cat := range order.OrderTaxes {
		if aggregate[i].GreaterThan(cat.Amount.Add(tol)) {
			out.Issues = append(out.Issues, ChargeIssue{
				Code:        IssueChargeTaxExceedsOrderTax,
				ChargeIndex: firstCharge[i],
				TaxID:       cat.ID,
				Message: fmt.Sprintf("charge tax for %s totals %s, above the order tax amount %s",
					cat.ID, f(aggregate[i]), f(cat.Amount)),
			})
		}
	}

	summary := order.PaymentSummary()
	subtotal := CalculatedSubtotal(order)
	orderDisc := OrderLevelDiscount(order)
	out.TotalCheck = newFieldCheck("totalPrice", summary.TotalPrice,
		out.IncludedTotal.Add(subtotal).Sub(orderDisc), tol,
		fmt.Sprintf("charges + subtotal − order discount = %s + %s − %s", f(out.IncludedTotal), f(subtotal), f(orderDisc)))

	taxSum := decimal.Zero
	for _, cat := range order.OrderTaxes {
		taxSum = taxSum.Add(cat.Amount)
	}
	out.TaxTotalCheck = newFieldCheck("taxAmount", summary.TaxAmount, taxSum, tol,
		fmt.Sprintf("sum of %d order tax amount(s)", len(order.OrderTaxes)))

	out.IsValid = len(out.Issues) == 0 && out.TotalCheck.Valid && out.TaxTotalCheck.Valid
	for _, c := range out.Charges {
		if !c.Valid {
			out.IsValid = false
		}
	}
	return out
}
