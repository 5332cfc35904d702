package verification

import (
	"testing"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistency_NotAvailable(t *testing.T) {
	mc := NewConsistencyComparator(DefaultConfig()).Compare(decodeOrder(t, noDiscountOrder))

	assert.False(t, mc.Available)
	assert.Equal(t, "itemDetails not present", mc.Reason)
}

func cloneLines(lines []model.LineItem) []model.LineItem {
	out := make([]model.LineItem, len(lines))
	for i, li := range lines {
		out[i] = li
		out[i].Modifiers = append([]model.LineItem(nil), li.Modifiers...)
	}
	return out
}

func TestConsistency_IdenticalCopy(t *testing.T) {
	order := decodeOrder(t, combinedOrder)
	order.RedundantLineItems = cloneLines(order.LineItems)

	mc := NewConsistencyComparator(DefaultConfig()).Compare(order)
	assert.True(t, mc.Available)
	assert.True(t, mc.IsConsistent)
	assert.Equal(t, 2, mc.Compared)
	assert.Len(t, mc.Entries, 3, "two lines plus one informational modifier row")
}

func TestConsistency_FallsBackToName(t *testing.T) {
	order := &model.Order{
		LineItems: []model.LineItem{
			{InternalID: "item-1", Name: "Tea", Qty: 1, Price: model.PriceBreakdown{UnitPrice: dec("3"), TotalPrice: dec("3")}},
			{InternalID: "item-2", Name: "Tea", Qty: 2, Price: model.PriceBreakdown{UnitPrice: dec("3"), TotalPrice: dec("6")}},
		},
		RedundantLineItems: []model.LineItem{
			{Name: "Tea", Qty: 1, Price: model.PriceBreakdown{UnitPrice: dec("3"), TotalPrice: dec("3")}},
			{InternalID: "item-2", Name: "Tea", Qty: 2, Price: model.PriceBreakdown{UnitPrice: dec("3"), TotalPrice: dec("6")}},
		},
	}

	mc := NewConsistencyComparator(DefaultConfig()).Compare(order)
	assert.Equal(t, 2, mc.Compared)
	assert.Zero(t, mc.UnmatchedPrimary)
	assert.Zero(t, mc.UnmatchedRedundant)
	assert.Zero(t, mc.Mismatches, "item-2 keeps its id match; item-1 takes the name-only copy")
	assert.True(t, mc.IsConsistent)
}

func TestConsistency_FieldDeltaAndUnmatched(t *testing.T) {
	order := decodeOrder(t, combinedOrder)
	redundant := cloneLines(order.LineItems)
	redundant[0].Price.TotalPrice = dec("44.5")
	redundant[0].Modifiers[0].Price.TaxAmount = dec("1")
	redundant[1].ID = "other"
	redundant[1].Name = "Other dish"
	order.RedundantLineItems = redundant

	mc := NewConsistencyComparator(DefaultConfig()).Compare(order)
	assert.False(t, mc.IsConsistent)
	assert.Equal(t, 1, mc.Compared)
	assert.Equal(t, 1, mc.Mismatches, "modifier mismatches are not tallied")
	assert.Equal(t, 1, mc.UnmatchedPrimary)
	assert.Equal(t, 1, mc.UnmatchedRedundant)

	require.Len(t, mc.Entries, 2)
	steak := mc.Entries[0]
	assert.False(t, steak.Matches)
	for _, f := range steak.Fields {
		if f.Field == FieldTotalPrice {
			assertDecimal(t, "-0.5", f.Delta)
		}
	}
	assert.True(t, mc.Entries[1].IsModifier)
	assert.False(t, mc.Entries[1].Matches)
}

func TestConsistency_NameIsKeyWithoutIds(t *testing.T) {
	order := &model.Order{
		LineItems:          []model.LineItem{{Name: "Tea", Qty: 1, Price: model.PriceBreakdown{UnitPrice: dec("3")}}},
		RedundantLineItems: []model.LineItem{{Name: "Tea", Qty: 1, Price: model.PriceBreakdown{UnitPrice: dec("3")}}},
	}

	mc := NewConsistencyComparator(DefaultConfig()).Compare(order)
	assert.True(t, mc.IsConsistent)
	assert.Equal(t, "Tea", mc.Entries[0].Key)
}
