package report

import (
	"bytes"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/verification"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet        = "summary"
	taxesSheet          = "taxes"
	linesSheet          = "lines"
	chargesSheet        = "charges"
	reconciliationSheet = "reconciliation"
)

// BuildXLSX exports res as a workbook with one sheet per section.
func BuildXLSX(res *verification.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	for _, name := range []string{taxesSheet, linesSheet, chargesSheet, reconciliationSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	s := res.Summary
	info := s.PatternInfo
	sw := &sheetWriter{f: f}
	sw.rows(summarySheet, [][]interface{}{
		{"Order Tax Verification"},
		{},
		{"Order", res.OrderID},
		{"Precision", res.Precision},
		{"Pattern", info.Name},
		{"Pattern corrected", info.Corrected},
		{"Order-level discount", num(info.OrderDiscount)},
		{"Item-level discounts", num(info.ItemDiscounts)},
		{"Remaining order discount", num(info.ResidualOrderDiscount)},
		{"Discount warning", info.DiscountWarning},
		{"Taxes compared", s.TotalTaxes},
		{"Mismatches", s.Mismatches},
		{"Total difference", num(s.TotalDifference)},
		{"Menu validation", s.MenuCalculationValidation.IsValid},
		{"Charges validation", s.ChargesValidation.IsValid},
		{"Reconciliation", s.TaxReconciliation.IsValid},
		{"Clean", res.IsClean()},
	})

	taxRows := [][]interface{}{{"Tax ID", "Name", "Rate %", "Menu sum", "Order amount", "Imputed", "Recomputed", "Menu - order", "Menu - recomputed", "Matching", "Severity"}}
	lineRows := [][]interface{}{{"Tax ID", "Line", "Parent", "Qty", "Parent qty", "Unit price", "Taxable", "Rate", "Expected", "Recomputed", "Difference", "Formula"}}
	for _, c := range res.Comparisons {
		taxRows = append(taxRows, []interface{}{
			c.TaxID.String(), c.Name, num(c.Rate), num(c.MenuSum), num(c.OrderAmount), c.OrderAmountImputed,
			num(c.Recomputed), num(c.MenuOrderDiff), num(c.MenuRecomputedDiff), c.IsMatching, string(SeverityOf(c.MenuRecomputedDiff)),
		})
		for _, d := range append(append([]verification.TaxLineDetail{}, c.Details.Items...), c.Details.Modifiers...) {
			lineRows = append(lineRows, []interface{}{
				c.TaxID.String(), d.Name, d.ParentName, d.Qty, d.ParentQty, num(d.UnitPrice), num(d.Allocation.Taxable),
				num(d.Rate), num(d.Expected), num(d.RecomputedFinal), num(d.Difference), d.Formula,
			})
		}
	}
	sw.rows(taxesSheet, taxRows)
	sw.rows(linesSheet, lineRows)

	chargeRows := [][]interface{}{{"Charge", "Type", "Amount", "Tax exclusive", "Tax", "Fragments", "Valid"}}
	for _, ch := range s.ChargesValidation.Charges {
		chargeRows = append(chargeRows, []interface{}{
			ch.Index, ch.Type, num(ch.Amount), num(ch.TaxExclusiveAmount), num(ch.Tax), num(ch.FragmentSum), ch.Valid,
		})
	}
	chargeRows = append(chargeRows, []interface{}{}, []interface{}{"Issue", "Charge", "Tax ID", "Message"})
	for _, is := range s.ChargesValidation.Issues {
		chargeRows = append(chargeRows, []interface{}{is.Code, is.ChargeIndex, is.TaxID.String(), is.Message})
	}
	sw.rows(chargesSheet, chargeRows)

	recRows := [][]interface{}{{"Tax ID", "Name", "Menu", "Charges", "Combined", "Order", "Menu variance", "Combined variance", "Tier"}}
	for _, row := range s.TaxReconciliation.Rows {
		recRows = append(recRows, []interface{}{
			row.TaxID.String(), row.Name, num(row.MenuTotal), num(row.ChargeTotal), num(row.Combined),
			num(row.OrderAmount), num(row.MenuVariance), num(row.CombinedVariance), string(row.Tier),
		})
	}
	sw.rows(reconciliationSheet, recRows)

	if sw.err != nil {
		return nil, sw.err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type sheetWriter struct {
	f   *excelize.File
	err error
}

func (sw *sheetWriter) rows(sheet string, rows [][]interface{}) {
	for i, row := range rows {
		if sw.err != nil || len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetSheetRow(sheet, cell, &row)
	}
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
