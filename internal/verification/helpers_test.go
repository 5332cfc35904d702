package verification

import (
	"testing"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	vatID      = "64f1a2b3c4d5e6f7a8b9c0d1"
	vatShortID = "a8b9c0d1"
	levyID     = "64f1a2b3c4d5e6f7a8b9ffff"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

func decodeOrder(t *testing.T, doc string) *model.Order {
	t.Helper()
	order, err := model.DecodeOrder([]byte(doc))
	require.NoError(t, err)
	return order
}

func mustVerifier(t *testing.T) *Verifier {
	t.Helper()
	v, err := NewVerifier(DefaultConfig())
	require.NoError(t, err)
	return v
}

// noDiscountOrder is internally consistent: 2 × 10.00 at 10% VAT.
const noDiscountOrder = `{
	"internalId": "ORD-P1",
	"menuDetails": [{
		"_id": "line-1", "name": "Burger", "qty": 2,
		"price": {
			"unitPrice": 10, "grossAmount": 20, "discountAmount": 0,
			"taxExclusiveUnitPrice": 9.09091, "taxExclusiveDiscountAmount": 0,
			"taxAmount": 1.81818, "netAmount": 18.18182, "totalPrice": 20
		},
		"taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 1.81818}]
	}],
	"orderTaxes": [{"_id": {"$oid": "64f1a2b3c4d5e6f7a8b9c0d1"}, "name": "VAT", "rate": 10, "amount": 1.81818}],
	"paymentDetails": {"priceDetails": {"unitPrice": 20, "discountAmount": 0, "totalPrice": 20, "taxAmount": 1.81818}},
	"charges": []
}`

// orderLevelOrder has a 10.00 order discount over a 100.00 subtotal.
const orderLevelOrder = `{
	"internalId": "ORD-P2",
	"menuDetails": [
		{"_id": "a", "name": "Pizza", "qty": 2, "price": {"unitPrice": 20, "grossAmount": 40, "totalPrice": 40},
		 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 3.27273}]},
		{"_id": "b", "name": "Pasta", "qty": 1, "price": {"unitPrice": 60, "grossAmount": 60, "totalPrice": 60},
		 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 4.90909}]}
	],
	"orderTaxes": [{"_id": "64f1a2b3c4d5e6f7a8b9c0d1", "name": "VAT", "rate": 10, "amount": 8.18182}],
	"paymentDetails": {"priceDetails": {"unitPrice": 100, "discountAmount": 10, "totalPrice": 90, "taxAmount": 8.18182}}
}`

// combinedOrder has item discounts of 6.00 and an order discount of 13.90,
// leaving a residual of 7.90 spread over post-item amounts totalling 79.00.
const combinedOrder = `{
	"internalId": "ORD-P4",
	"menuDetails": [
		{"_id": "a", "name": "Steak", "qty": 2,
		 "price": {"unitPrice": 25, "grossAmount": 50, "discountAmount": 5, "totalPrice": 45},
		 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 3.68182}],
		 "extraDetails": [
			{"_id": "m", "name": "Sauce", "qty": 1,
			 "price": {"unitPrice": 2.5, "grossAmount": 2.5, "discountAmount": 0.5, "totalPrice": 2},
			 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 0.16364}]}
		 ]},
		{"_id": "b", "name": "Salad", "qty": 1,
		 "price": {"unitPrice": 30, "grossAmount": 30, "totalPrice": 30},
		 "taxes": [{"taxId": "64f1a2b3c4d5e6f7a8b9c0d1", "amount": 2.45455}]}
	],
	"orderTaxes": [{"_id": "64f1a2b3c4d5e6f7a8b9c0d1", "name": "VAT", "rate": 10, "amount": 6.46365}],
	"paymentDetails": {"priceDetails": {"unitPrice": 85, "discountAmount": 13.9, "totalPrice": 71.1, "taxAmount": 6.46365}}
}`
