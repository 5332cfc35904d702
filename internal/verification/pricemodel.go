package verification

import (
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ItemLevelDiscountTotal sums every line discount plus every modifier
// discount multiplied by its parent quantity.
func ItemLevelDiscountTotal(order *model.Order) decimal.Decimal {
	total := decimal.Zero
	for _, li := range order.LineItems {
		total = total.Add(li.Price.DiscountAmount)
		for _, mod := range li.Modifiers {
			total = total.Add(mod.Price.DiscountAmount.Mul(li.Qty.Decimal()))
		}
	}
	return total
}

// HasItemLevelDiscounts reports whether any line or modifier carries a positive discount.
func HasItemLevelDiscounts(order *model.Order) bool {
	for _, li := range order.LineItems {
		if li.Price.DiscountAmount.IsPositive() {
			return true
		}
		for _, mod := range li.Modifiers {
			if mod.Price.DiscountAmount.IsPositive() {
				return true
			}
		}
	}
	return false
}

func OrderLevelDiscount(order *model.Order) decimal.Decimal {
	return order.PaymentSummary().DiscountAmount
}

// CalculatedSubtotal is the pre-discount order subtotal: the stored summary
// unit price when positive, else the sum of line totals with modifier totals
// scaled by their parent quantity.
func CalculatedSubtotal(order *model.Order) decimal.Decimal {
	if stored := order.PaymentSummary().UnitPrice; stored.IsPositive() {
		return stored
	}
	total := decimal.Zero
	for _, li := range order.LineItems {
		total = total.Add(li.Price.TotalPrice)
		for _, mod := range li.Modifiers {
			total = total.Add(mod.Price.TotalPrice.Mul(li.Qty.Decimal()))
		}
	}
	return total
}

// lineBase is unitPrice × qty, the ground truth gross for a line or a
// modifier (per parent unit).
func lineBase(li model.LineItem) decimal.Decimal {
	return li.Price.UnitPrice.Mul(li.Qty.Decimal())
}

// menuTaxIDs returns every tax id found on lines and modifiers in first-seen
// order, merged by suffix.
func menuTaxIDs(order *model.Order) []model.Identifier {
	var ids []model.Identifier
	add := func(id model.Identifier) {
		if id.IsZero() {
			return
		}
		for i, existing := range ids {
			if existing.MatchesSuffix(id) {
				ids[i] = existing.Longer(id)
				return
			}
		}
		ids = append(ids, id)
	}
	for _, li := range order.LineItems {
		for _, t := range li.Taxes {
			add(t.TaxID)
		}
		for _, mod := range li.Modifiers {
			for _, t := range mod.Taxes {
				add(t.TaxID)
			}
		}
	}
	return ids
}

// storedMenuTax sums the stored tax for a category across lines, modifier
// amounts scaled by parent quantity. Values are not rounded.
func storedMenuTax(order *model.Order, id model.Identifier) decimal.Decimal {
	total := decimal.Zero
	for _, li := range order.LineItems {
		total = total.Add(li.StoredTax(id))
		for _, mod := range li.Modifiers {
			total = total.Add(mod.StoredTax(id).Mul(li.Qty.Decimal()))
		}
	}
	return total
}

// --- Rates ---

// RateSource tells where a line's total rate came from.
type RateSource string

const (
	RateSourceEmbedded RateSource = "embedded"
	RateSourceOrder    RateSource = "order_taxes"
	RateSourceDerived  RateSource = "derived"
	RateSourceNone     RateSource = "none"
)

// taxIndex resolves order tax categories by suffix-matched id.
type taxIndex struct {
	categories []model.TaxCategory
}

func newTaxIndex(order *model.Order) taxIndex {
	return taxIndex{categories: order.OrderTaxes}
}

func (ix taxIndex) find(id model.Identifier) (model.TaxCategory, bool) {
	for _, c := range ix.categories {
		if c.ID == id {
			return c, true
		}
	}
	for _, c := range ix.categories {
		if c.ID.MatchesSuffix(id) {
			return c, true
		}
	}
	return model.TaxCategory{}, false
}

// LineRates holds the decimal rates (0.05 for 5%) applicable to a line.
type LineRates struct {
	Rates  []CategoryRate
	Total  decimal.Decimal
	Source RateSource
}

type CategoryRate struct {
	TaxID model.Identifier
	Rate  decimal.Decimal
}

// IsTaxed reports whether the line has a positive total rate.
func (r LineRates) IsTaxed() bool {
	return r.Total.IsPositive()
}

// RateFor returns the rate of the category on this line, or zero.
func (r LineRates) RateFor(id model.Identifier) decimal.Decimal {
	for _, cr := range r.Rates {
		if cr.TaxID.MatchesSuffix(id) {
			return cr.Rate
		}
	}
	return decimal.Zero
}

// resolve collects the rates of every tax on the line: embedded rates first,
// then order tax categories. When neither yields a positive total and the
// stored tax-exclusive unit price is below the unit price, the total is
// back-derived from their ratio.
func (ix taxIndex) resolve(li model.LineItem) LineRates {
	out := LineRates{Total: decimal.Zero, Source: RateSourceNone}
	embedded, looked := false, false

	for _, t := range li.Taxes {
		var rate decimal.Decimal
		switch {
		case t.Rate != nil:
			rate = t.Rate.Div(hundred)
			embedded = true
		default:
			if c, ok := ix.find(t.TaxID); ok {
				rate = c.Rate.Div(hundred)
				looked = true
			}
		}
		out.Rates = append(out.Rates, CategoryRate{TaxID: t.TaxID, Rate: rate})
		out.Total = out.Total.Add(rate)
	}

	switch {
	case out.Total.IsPositive() && embedded:
		out.Source = RateSourceEmbedded
	case out.Total.IsPositive() && looked:
		out.Source = RateSourceOrder
	default:
		unit, exclusive := li.Price.UnitPrice, li.Price.TaxExclusiveUnitPrice
		if exclusive.IsPositive() && exclusive.LessThan(unit) {
			out.Total = unit.Div(exclusive).Sub(one)
			out.Source = RateSourceDerived
		}
	}
	return out
}
