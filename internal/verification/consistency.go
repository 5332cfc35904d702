package verification

import (
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

const reasonNoRedundantLines = "itemDetails not present"

type ConsistencyField struct {
	Field     string          `json:"field"`
	Primary   decimal.Decimal `json:"primary"`
	Redundant decimal.Decimal `json:"redundant"`
	Delta     decimal.Decimal `json:"delta"`
	Matches   bool            `json:"matches"`
}

type ConsistencyEntry struct {
	Key        string             `json:"key"`
	Name       string             `json:"name"`
	IsModifier bool               `json:"is_modifier"`
	ParentKey  string             `json:"parent_key,omitempty"`
	Fields     []ConsistencyField `json:"fields"`
	Matches    bool               `json:"matches"`
}

// MenuItemConsistency compares menuDetails with the redundant itemDetails
// array. Modifier rows are informational and excluded from the tallies.
type MenuItemConsistency struct {
	Available          bool               `json:"available"`
	Reason             string             `json:"reason,omitempty"`
	Compared           int                `json:"compared"`
	Mismatches         int                `json:"mismatches"`
	UnmatchedPrimary   int                `json:"unmatched_primary"`
	UnmatchedRedundant int                `json:"unmatched_redundant"`
	Entries            []ConsistencyEntry `json:"entries"`
	IsConsistent       bool               `json:"is_consistent"`
}

type ConsistencyComparator struct {
	cfg Config
}

func NewConsistencyComparator(cfg Config) ConsistencyComparator {
	return ConsistencyComparator{cfg: cfg}
}

func (c ConsistencyComparator) Compare(order *model.Order) MenuItemConsistency {
	if !order.HasRedundantLineItems() {
		return MenuItemConsistency{Available: false, Reason: reasonNoRedundantLines}
	}

	out := MenuItemConsistency{Available: true}
	pairs, used := pairLines(order.LineItems, order.RedundantLineItems)

	for i, primary := range order.LineItems {
		pos := pairs[i]
		if pos < 0 {
			out.UnmatchedPrimary++
			continue
		}
		redundant := order.RedundantLineItems[pos]

		entry := c.compareLine(primary, redundant, false, "")
		out.Compared++
		if !entry.Matches {
			out.Mismatches++
		}
		out.Entries = append(out.Entries, entry)

		modPairs, _ := pairLines(primary.Modifiers, redundant.Modifiers)
		for j, mod := range primary.Modifiers {
			mpos := modPairs[j]
			if mpos < 0 {
				continue
			}
			out.Entries = append(out.Entries, c.compareLine(mod, redundant.Modifiers[mpos], true, primary.Key()))
		}
	}

	for _, u := range used {
		if !u {
			out.UnmatchedRedundant++
		}
	}

	out.IsConsistent = out.Mismatches == 0 && out.UnmatchedPrimary == 0 && out.UnmatchedRedundant == 0
	return out
}

// pairLines maps each primary line to a redundant one, or -1. Keys are
// claimed first so a name match never steals a line another primary owns by
// id; lines still unpaired then fall back to their name.
func pairLines(primary, redundant []model.LineItem) ([]int, []bool) {
	pairs := make([]int, len(primary))
	used := make([]bool, len(redundant))
	for i, li := range primary {
		pairs[i] = claim(redundant, used, func(r model.LineItem) bool { return r.Key() == li.Key() })
	}
	for i, li := range primary {
		if pairs[i] >= 0 || li.Name == "" {
			continue
		}
		pairs[i] = claim(redundant, used, func(r model.LineItem) bool { return r.Name == li.Name })
	}
	return pairs, used
}

// claim returns the first unused line accepted by match, marking it used.
func claim(lines []model.LineItem, used []bool, match func(model.LineItem) bool) int {
	for i, li := range lines {
		if !used[i] && match(li) {
			used[i] = true
			return i
		}
	}
	return -1
}

func (c ConsistencyComparator) compareLine(primary, redundant model.LineItem, modifier bool, parentKey string) ConsistencyEntry {
	entry := ConsistencyEntry{
		Key:        primary.Key(),
		Name:       primary.Name,
		IsModifier: modifier,
		ParentKey:  parentKey,
		Matches:    true,
	}

	pp, rp := primary.Price, redundant.Price
	pairs := []struct {
		field string
		a, b  decimal.Decimal
	}{
		{"qty", primary.Qty.Decimal(), redundant.Qty.Decimal()},
		{"unitPrice", pp.UnitPrice, rp.UnitPrice},
		{FieldGrossAmount, pp.GrossAmount, rp.GrossAmount},
		{"discountAmount", pp.DiscountAmount, rp.DiscountAmount},
		{FieldTaxExclusiveUnitPrice, pp.TaxExclusiveUnitPrice, rp.TaxExclusiveUnitPrice},
		{FieldTaxExclusiveDiscountAmount, pp.TaxExclusiveDiscountAmount, rp.TaxExclusiveDiscountAmount},
		{FieldTaxAmount, pp.TaxAmount, rp.TaxAmount},
		{FieldNetAmount, pp.NetAmount, rp.NetAmount},
		{FieldTotalPrice, pp.TotalPrice, rp.TotalPrice},
	}

	tol := c.cfg.Tolerance()
	for _, p := range pairs {
		delta := p.b.Sub(p.a)
		ok := delta.Abs().LessThanOrEqual(tol)
		entry.Fields = append(entry.Fields, ConsistencyField{
			Field:     p.field,
			Primary:   p.a,
			Redundant: p.b,
			Delta:     delta,
			Matches:   ok,
		})
		if !ok {
			entry.Matches = false
		}
	}
	return entry
}
