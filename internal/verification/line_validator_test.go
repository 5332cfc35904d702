package verification

import (
	"strings"
	"testing"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validate(t *testing.T, order *model.Order) MenuValidation {
	t.Helper()
	cfg := DefaultConfig()
	info := NewPatternClassifier(cfg).Classify(order)
	return NewLineValidator(cfg).Validate(order, info, NewAllocationParams(order, info))
}

func field(t *testing.T, lc LineCheck, name string) FieldCheck {
	t.Helper()
	for _, f := range lc.Fields {
		if f.Field == name {
			return f
		}
	}
	require.Failf(t, "missing field", "field %s not checked", name)
	return FieldCheck{}
}

func TestLineValidator_ConsistentLine(t *testing.T) {
	mv := validate(t, decodeOrder(t, noDiscountOrder))

	assert.True(t, mv.IsValid)
	assert.Equal(t, 1, mv.TotalItems)
	assert.Zero(t, mv.CalculationErrors)
	require.Len(t, mv.Details, 1)

	lc := mv.Details[0]
	assert.Len(t, lc.Fields, 6)
	assert.Equal(t, RateSourceOrder, lc.RateSource)
	assertDecimal(t, "20", field(t, lc, FieldGrossAmount).Expected)
	assertDecimal(t, "9.09091", field(t, lc, FieldTaxExclusiveUnitPrice).Expected)
	assertDecimal(t, "1.81818", field(t, lc, FieldTaxAmount).Expected)
	assertDecimal(t, "18.18182", field(t, lc, FieldNetAmount).Expected)
	assert.Contains(t, mv.ValidationNote, "All fields valid")
}

func TestLineValidator_StoredGrossZeroIsReportedButNotUsed(t *testing.T) {
	doc := strings.Replace(noDiscountOrder, `"grossAmount": 20`, `"grossAmount": 0`, 1)
	mv := validate(t, decodeOrder(t, doc))

	assert.False(t, mv.IsValid)
	assert.Equal(t, 1, mv.CalculationErrors)

	lc := mv.Details[0]
	gross := field(t, lc, FieldGrossAmount)
	assert.False(t, gross.Valid)
	assertDecimal(t, "-20", gross.Delta)

	// derived fields still use unitPrice × qty
	assert.True(t, field(t, lc, FieldTaxAmount).Valid)
	assert.True(t, field(t, lc, FieldNetAmount).Valid)
	assert.True(t, field(t, lc, FieldTotalPrice).Valid)
}

func TestLineValidator_EmbeddedRateWins(t *testing.T) {
	doc := strings.Replace(noDiscountOrder,
		`"taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 1.81818}]`,
		`"taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 1.81818, "rate": 10}]`, 1)
	doc = strings.Replace(doc, `"rate": 10, "amount": 1.81818}]`, `"rate": 99, "amount": 1.81818}]`, 1)

	mv := validate(t, decodeOrder(t, doc))
	assert.Equal(t, RateSourceEmbedded, mv.Details[0].RateSource)
	assertDecimal(t, "0.1", mv.Details[0].TotalRate)
	assert.True(t, mv.IsValid)
}

func TestLineValidator_BackDerivesRate(t *testing.T) {
	order := &model.Order{LineItems: []model.LineItem{{
		Name: "Soup", Qty: 2,
		Price: model.PriceBreakdown{
			UnitPrice: dec("10"), GrossAmount: dec("20"),
			TaxExclusiveUnitPrice: dec("9.09091"),
			TaxAmount:             dec("1.81818"), NetAmount: dec("18.18182"), TotalPrice: dec("20"),
		},
	}}}

	mv := validate(t, order)
	lc := mv.Details[0]
	assert.Equal(t, RateSourceDerived, lc.RateSource)
	assert.True(t, lc.TotalRate.IsPositive())
	assert.True(t, field(t, lc, FieldTaxAmount).Valid)
	assert.True(t, field(t, lc, FieldNetAmount).Valid)
}

func TestLineValidator_TaxFreeLine(t *testing.T) {
	order := &model.Order{LineItems: []model.LineItem{{
		Name: "Water", Qty: 3,
		Price: model.PriceBreakdown{
			UnitPrice: dec("1.5"), GrossAmount: dec("4.5"), DiscountAmount: dec("0.5"),
			TaxExclusiveUnitPrice: dec("1.5"), TaxExclusiveDiscountAmount: dec("0.5"),
			NetAmount: dec("4"), TotalPrice: dec("4"),
		},
	}}}

	mv := validate(t, order)
	assert.True(t, mv.IsValid, "%+v", mv.Details)
	assert.Equal(t, RateSourceNone, mv.Details[0].RateSource)
	assertDecimal(t, "0", field(t, mv.Details[0], FieldTaxAmount).Expected)
}

const orderLevelFullPrices = `{
	"menuDetails": [
		{"_id": "a", "name": "Pizza", "qty": 2,
		 "price": {"unitPrice": 20, "grossAmount": 40, "taxExclusiveUnitPrice": 18.18182,
		           "taxAmount": 3.27273, "netAmount": 32.72727, "totalPrice": 40},
		 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 3.27273}]},
		{"_id": "b", "name": "Pasta", "qty": 1,
		 "price": {"unitPrice": 60, "grossAmount": 60, "taxExclusiveUnitPrice": 54.54545,
		           "taxAmount": 4.90909, "netAmount": 49.0959, "totalPrice": 60},
		 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 4.90909}]}
	],
	"orderTaxes": [{"_id": "64f1a2b3c4d5e6f7a8b9c0d1", "rate": 10, "amount": 8.18182}],
	"paymentDetails": {"priceDetails": {"unitPrice": 100, "discountAmount": 10, "totalPrice": 90, "taxAmount": 8.18182}}
}`

func TestLineValidator_NetToleranceWidenedForSharedDiscounts(t *testing.T) {
	mv := validate(t, decodeOrder(t, orderLevelFullPrices))

	pizza := mv.Details[0]
	assertDecimal(t, "0.001", field(t, pizza, FieldNetAmount).Tolerance)
	assertDecimal(t, "0.00001", field(t, pizza, FieldTaxAmount).Tolerance)
	assert.True(t, pizza.Valid)

	pasta := mv.Details[1]
	assert.False(t, field(t, pasta, FieldNetAmount).Valid)
	assert.True(t, field(t, pasta, FieldTaxAmount).Valid)

	assert.Equal(t, 1, mv.CalculationErrors)
	assert.Contains(t, mv.ValidationNote, "allocation artifacts")
}

func TestLineValidator_StrictNetToleranceWithoutSharedDiscounts(t *testing.T) {
	mv := validate(t, decodeOrder(t, noDiscountOrder))
	assertDecimal(t, "0.00001", field(t, mv.Details[0], FieldNetAmount).Tolerance)
}

func TestLineValidator_ModifiersValidatedPerUnit(t *testing.T) {
	mv := validate(t, decodeOrder(t, combinedOrder))

	require.Len(t, mv.Details, 3)
	sauce := mv.Details[1]
	assert.Equal(t, LineKindModifier, sauce.Kind)
	assert.Equal(t, "Steak", sauce.ParentName)
	assertDecimal(t, "1.8", sauce.Allocation.Taxable)
	assertDecimal(t, "0.16364", field(t, sauce, FieldTaxAmount).Expected)
}
