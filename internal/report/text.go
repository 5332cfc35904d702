package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"

	"github.com/shopspring/decimal"
)

const ruleWidth = 60

// Render writes the text report for res.
func Render(w io.Writer, view View, res *verification.Result) error {
	r := &renderer{w: w, view: view, res: res, places: int32(res.Precision)}
	r.header()
	r.pattern()
	r.menuValidation()
	r.consistency()
	r.taxes()
	r.charges()
	if view != ViewBasic {
		r.reconciliation()
	}
	r.summary()
	return r.err
}

type renderer struct {
	w      io.Writer
	view   View
	res    *verification.Result
	places int32
	err    error
}

func (r *renderer) printf(format string, args ...interface{}) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) section(title string) {
	r.printf("\n%s\n%s\n", title, strings.Repeat("=", ruleWidth))
}

func (r *renderer) money(d decimal.Decimal) string {
	return d.StringFixedBank(r.places)
}

func (r *renderer) table(write func(tw *tabwriter.Writer)) {
	if r.err != nil {
		return
	}
	tw := tabwriter.NewWriter(r.w, 0, 0, 2, ' ', 0)
	write(tw)
	r.err = tw.Flush()
}

func status(ok bool) string {
	if ok {
		return "PASSED"
	}
	return "FAILED"
}

func (r *renderer) header() {
	line := strings.Repeat("─", ruleWidth-2)
	r.printf("┌%s┐\n", line)
	r.printf("│ %-*s │\n", ruleWidth-4, "ORDER TAX VERIFICATION")
	r.printf("│ %-*s │\n", ruleWidth-4, "Order: "+r.res.OrderID)
	r.printf("│ %-*s │\n", ruleWidth-4, fmt.Sprintf("Precision: %d decimal places", r.res.Precision))
	r.printf("└%s┘\n", line)
}

func (r *renderer) pattern() {
	info := r.res.Summary.PatternInfo
	r.section("DISCOUNT PATTERN")
	r.printf("   %s\n", info.Name)
	if info.Corrected {
		r.printf("   Corrected from pattern %d: %s\n", info.NaiveCode, info.Rationale)
	}
	r.printf("   Order-level discount:     %s\n", r.money(info.OrderDiscount))
	r.printf("   Item-level discounts:     %s\n", r.money(info.ItemDiscounts))
	if info.Pattern == verification.PatternCombined {
		r.printf("   Remaining order discount: %s\n", r.money(info.ResidualOrderDiscount))
	}
	if info.DiscountWarning != "" {
		r.printf("   WARNING: %s\n", info.DiscountWarning)
	}
}

func (r *renderer) menuValidation() {
	mv := r.res.Summary.MenuCalculationValidation
	r.section("MENU CALCULATION VALIDATION")
	r.printf("   Status: %s | Lines: %d | Errors: %d\n", status(mv.IsValid), mv.TotalItems, mv.CalculationErrors)
	if mv.ValidationNote != "" {
		r.printf("   %s\n", mv.ValidationNote)
	}
	if r.view == ViewBasic {
		return
	}

	r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "   LINE\tFIELD\tSTORED\tEXPECTED\tDELTA\tSTATUS")
		for _, lc := range mv.Details {
			if r.view == ViewFailures && lc.Valid {
				continue
			}
			name := lc.Name
			if lc.Kind == verification.LineKindModifier {
				name = "└─ " + name
			}
			for _, f := range lc.Fields {
				if r.view == ViewFailures && f.Valid {
					continue
				}
				fmt.Fprintf(tw, "   %s\t%s\t%s\t%s\t%s\t%s\n",
					name, f.Field, r.money(f.Actual), r.money(f.Expected), r.money(f.Delta), status(f.Valid))
				name = ""
			}
		}
	})
}

func (r *renderer) consistency() {
	mc := r.res.Summary.MenuItemConsistency
	r.section("MENU ITEM CONSISTENCY")
	if !mc.Available {
		r.printf("   Skipped: %s\n", mc.Reason)
		return
	}
	r.printf("   Status: %s | Compared: %d | Mismatches: %d | Unmatched: %d primary, %d redundant\n",
		status(mc.IsConsistent), mc.Compared, mc.Mismatches, mc.UnmatchedPrimary, mc.UnmatchedRedundant)
	if r.view == ViewBasic {
		return
	}
	for _, e := range mc.Entries {
		if e.Matches {
			continue
		}
		for _, f := range e.Fields {
			if !f.Matches {
				r.printf("   %s: %s differs by %s\n", e.Name, f.Field, r.money(f.Delta))
			}
		}
	}
}

func (r *renderer) taxes() {
	r.section("TAX VERIFICATION")

	variance := decimal.Zero
	for _, c := range r.res.Comparisons {
		variance = variance.Add(c.MenuRecomputedDiff)
	}
	overall := "PASSED"
	if variance.Abs().GreaterThanOrEqual(passThreshold) {
		overall = "VARIANCES DETECTED"
	}
	r.printf("   Overall Status: %s\n\n", overall)

	for _, c := range r.res.Comparisons {
		r.printf("└─ %s (%s%%) | ID: %s | Total Tax: %s | %s\n",
			c.Name, c.Rate.StringFixed(2), c.TaxID, r.money(c.Recomputed), SeverityOf(c.MenuRecomputedDiff))
		r.printf("   ├─ Stored on menu: %s | Stored on order: %s", r.money(c.MenuSum), r.money(c.OrderAmount))
		if c.OrderAmountImputed {
			r.printf(" (imputed)")
		}
		r.printf("\n")
		if r.view != ViewBasic {
			r.taxLines(c)
		}
		r.printf("   └─ Variance: %s\n", r.money(c.MenuRecomputedDiff))
	}

	for _, row := range r.res.Summary.TaxReconciliation.Rows {
		if row.InMenu || !row.InCharges {
			continue
		}
		r.printf("└─ %s | ID: %s | Total Tax: %s | %s (Charges-only)\n",
			rowName(row), row.TaxID, r.money(row.ChargeTotal), SeverityOf(row.CombinedVariance))
	}
}

func (r *renderer) taxLines(c verification.TaxComparison) {
	lines := make([]verification.TaxLineDetail, 0, len(c.Details.Items)+len(c.Details.Modifiers))
	lines = append(lines, c.Details.Items...)
	lines = append(lines, c.Details.Modifiers...)

	r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "   │  LINE\tQTY\tTAXABLE\tEXPECTED\tRECOMPUTED\tDIFF\tSTATUS")
		for _, d := range lines {
			sev := SeverityOf(d.Difference)
			if r.view == ViewFailures && sev == SeverityOK {
				continue
			}
			name := d.Name
			if d.ParentName != "" {
				name = fmt.Sprintf("└─ %s (on %s ×%d)", d.Name, d.ParentName, d.ParentQty)
			}
			fmt.Fprintf(tw, "   │  %s\t%d\t%s\t%s\t%s\t%s\t%s\n",
				name, d.Qty, r.money(d.Allocation.Taxable), r.money(d.Expected), r.money(d.RecomputedFinal), r.money(d.Difference), sev)
		}
	})
	if r.view == ViewFull {
		for _, d := range lines {
			r.printf("   │  %s: %s\n", d.Name, d.Formula)
		}
	}
}

func (r *renderer) charges() {
	cv := r.res.Summary.ChargesValidation
	if cv.IncludedCount == 0 && cv.ExcludedCount == 0 {
		return
	}
	r.section("CHARGES")
	r.printf("   Status: %s | Included: %d (%s) | Excluded: %d\n",
		status(cv.IsValid), cv.IncludedCount, r.money(cv.IncludedTotal), cv.ExcludedCount)
	r.printf("   Order total:  stored %s, expected %s (%s)\n",
		r.money(cv.TotalCheck.Actual), r.money(cv.TotalCheck.Expected), status(cv.TotalCheck.Valid))
	r.printf("   Order tax:    stored %s, expected %s (%s)\n",
		r.money(cv.TaxTotalCheck.Actual), r.money(cv.TaxTotalCheck.Expected), status(cv.TaxTotalCheck.Valid))
	for _, issue := range cv.Issues {
		r.printf("   [%s] charge #%d: %s\n", issue.Code, issue.ChargeIndex, issue.Message)
	}
}

func (r *renderer) reconciliation() {
	rec := r.res.Summary.TaxReconciliation
	r.section("TAX RECONCILIATION")
	r.table(func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "   TAX\tMENU\tCHARGES\tCOMBINED\tORDER\tVARIANCE\tTIER")
		for _, row := range rec.Rows {
			if r.view == ViewFailures && row.Tier != verification.TierMismatch && row.Tier != verification.TierMenuOnly {
				continue
			}
			fmt.Fprintf(tw, "   %s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				rowName(row), r.money(row.MenuTotal), r.money(row.ChargeTotal), r.money(row.Combined),
				r.money(row.OrderAmount), r.money(row.CombinedVariance), row.Tier)
		}
	})

	a := rec.Anomalies
	if len(a.MissingInOrder) > 0 {
		r.printf("   Taxes missing from order: %s\n", joinIDs(a.MissingInOrder))
	}
	if len(a.OrderOnly) > 0 {
		r.printf("   Order-only taxes: %s\n", joinIDs(a.OrderOnly))
	}
}

func (r *renderer) summary() {
	s := r.res.Summary
	r.section("ORDER SUMMARY")
	r.printf("   Taxes compared: %d | Mismatches: %d | Total difference: %s\n",
		s.TotalTaxes, s.Mismatches, r.money(s.TotalDifference))
	result := "CLEAN"
	if !r.res.IsClean() {
		result = "FINDINGS"
	}
	r.printf("   Result: %s\n", result)
}

func rowName(row verification.ReconciliationRow) string {
	if row.Name != "" {
		return row.Name
	}
	return "Tax " + row.TaxID.Short()
}

func joinIDs[T fmt.Stringer](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}
