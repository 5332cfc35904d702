package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Order is the restaurant order document as stored by the ordering platform.
// Missing numeric fields decode to zero; Normalize must run once after
// decoding so the rest of the code can rely on positive quantities.
type Order struct {
	InternalID     string         `json:"internalId"`
	LineItems      []LineItem     `json:"menuDetails"`
	OrderTaxes     []TaxCategory  `json:"orderTaxes"`
	PaymentDetails PaymentDetails `json:"paymentDetails"`
	Charges        []Charge       `json:"charges"`

	// RedundantLineItems is the secondary copy of the lines some sources
	// write alongside menuDetails. Nil when the document has none.
	RedundantLineItems []LineItem `json:"itemDetails,omitempty"`
}

type PaymentDetails struct {
	PriceDetails PriceSummary `json:"priceDetails"`
}

// PriceSummary holds order-level totals.
type PriceSummary struct {
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
}

// LineItem is a sold menu item, or a modifier when nested under one.
// Modifier amounts are per unit of the parent item.
type LineItem struct {
	ID         Identifier     `json:"_id"`
	InternalID Identifier     `json:"internalId,omitempty"`
	Name       string         `json:"name"`
	Qty        Quantity       `json:"qty"`
	Price      PriceBreakdown `json:"price"`
	Taxes      []AppliedTax   `json:"taxes"`
	Modifiers  []LineItem     `json:"extraDetails,omitempty"`
}

type PriceBreakdown struct {
	UnitPrice                  decimal.Decimal `json:"unitPrice"`
	GrossAmount                decimal.Decimal `json:"grossAmount"`
	DiscountAmount             decimal.Decimal `json:"discountAmount"`
	TaxExclusiveUnitPrice      decimal.Decimal `json:"taxExclusiveUnitPrice"`
	TaxExclusiveDiscountAmount decimal.Decimal `json:"taxExclusiveDiscountAmount"`
	TaxAmount                  decimal.Decimal `json:"taxAmount"`
	NetAmount                  decimal.Decimal `json:"netAmount"`
	TotalPrice                 decimal.Decimal `json:"totalPrice"`
}

// AppliedTax is the stored tax for one category on a line. Rate is a
// percentage and only present when the source embedded it.
type AppliedTax struct {
	TaxID  Identifier       `json:"taxId"`
	Amount decimal.Decimal  `json:"amount"`
	Rate   *decimal.Decimal `json:"rate,omitempty"`
}

// TaxCategory is an order-level tax total.
type TaxCategory struct {
	ID     Identifier      `json:"_id"`
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// UnmarshalJSON resolves the alternative field names used by older
// documents: taxId for _id, taxRate for rate, and taxAmount or value for
// amount. taxAmount wins over amount when both are present.
func (t *TaxCategory) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        Identifier       `json:"_id"`
		TaxID     Identifier       `json:"taxId"`
		Name      string           `json:"name"`
		Rate      *decimal.Decimal `json:"rate"`
		TaxRate   *decimal.Decimal `json:"taxRate"`
		TaxAmount *decimal.Decimal `json:"taxAmount"`
		Amount    *decimal.Decimal `json:"amount"`
		Value     *decimal.Decimal `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.ID = raw.ID
	if t.ID.IsZero() {
		t.ID = raw.TaxID
	}
	t.Name = raw.Name
	t.Rate = firstDecimal(raw.Rate, raw.TaxRate)
	t.Amount = firstDecimal(raw.TaxAmount, raw.Amount, raw.Value)
	return nil
}

// Charge is a non-item invoice line such as a delivery fee.
type Charge struct {
	Type               string          `json:"type"`
	Amount             decimal.Decimal `json:"amount"`
	TaxExclusiveAmount decimal.Decimal `json:"taxExclusiveAmount"`
	Tax                decimal.Decimal `json:"tax"`
	TaxFragments       []TaxFragment   `json:"taxes"`
	IncludeInInvoice   bool            `json:"includeInInvoice"`
}

type TaxFragment struct {
	TaxID  Identifier      `json:"taxId"`
	Amount decimal.Decimal `json:"amount"`
}

// Quantity is a line quantity. Documents exported from the order store carry
// it as an integer, a float or an extended-JSON number wrapper.
type Quantity int

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}

	if data[0] == '{' {
		var wrapped map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		for _, key := range []string{"$numberInt", "$numberLong", "$numberDouble", "$numberDecimal"} {
			if v, ok := wrapped[key]; ok {
				return q.UnmarshalJSON(v)
			}
		}
		return fmt.Errorf("unsupported quantity value %s", string(data))
	}

	d, err := decimal.NewFromString(strings.Trim(string(data), `"`))
	if err != nil {
		return fmt.Errorf("invalid quantity %s: %w", string(data), err)
	}
	*q = Quantity(d.IntPart())
	return nil
}

func (q Quantity) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(q))
}

// PaymentSummary is a shorthand for PaymentDetails.PriceDetails.
func (o *Order) PaymentSummary() PriceSummary {
	return o.PaymentDetails.PriceDetails
}

// HasRedundantLineItems reports whether the document carried an itemDetails array.
func (o *Order) HasRedundantLineItems() bool {
	return o.RedundantLineItems != nil
}

// Normalize applies ingestion defaults in place: non-positive quantities
// become 1 and names are trimmed.
func (o *Order) Normalize() {
	o.InternalID = strings.TrimSpace(o.InternalID)
	for i := range o.LineItems {
		o.LineItems[i].normalize()
	}
	for i := range o.RedundantLineItems {
		o.RedundantLineItems[i].normalize()
	}
}

func (li *LineItem) normalize() {
	if li.Qty <= 0 {
		li.Qty = 1
	}
	li.Name = strings.TrimSpace(li.Name)
	for i := range li.Modifiers {
		li.Modifiers[i].normalize()
	}
}

// Key is the identifier used to pair this line with its counterpart in the
// redundant array: internalId, then _id, then name.
func (li LineItem) Key() string {
	switch {
	case !li.InternalID.IsZero():
		return li.InternalID.String()
	case !li.ID.IsZero():
		return li.ID.String()
	default:
		return li.Name
	}
}

// HasTax reports whether the line carries a stored amount for the category.
func (li LineItem) HasTax(id Identifier) bool {
	for _, t := range li.Taxes {
		if t.TaxID.MatchesSuffix(id) {
			return true
		}
	}
	return false
}

// StoredTax sums the stored amounts for the category on this line alone.
func (li LineItem) StoredTax(id Identifier) decimal.Decimal {
	total := decimal.Zero
	for _, t := range li.Taxes {
		if t.TaxID.MatchesSuffix(id) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

// DecodeOrder parses a raw order document and normalizes it.
func DecodeOrder(data []byte) (*Order, error) {
	var order Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order document: %w", err)
	}
	order.Normalize()
	return &order, nil
}

func firstDecimal(values ...*decimal.Decimal) decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return decimal.Zero
}
