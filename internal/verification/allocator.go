package verification

import (
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

// AllocationParams carries the order-wide figures the allocator needs, so
// per-line calculations never reach back into the order.
type AllocationParams struct {
	Pattern       Pattern
	OrderDiscount decimal.Decimal
	// Subtotal divides the order discount under Pattern 2.
	Subtotal decimal.Decimal
	// Residual and PostItemTotal drive the second stage of Pattern 4.
	Residual      decimal.Decimal
	PostItemTotal decimal.Decimal
}

// NewAllocationParams precomputes denominators for the classified order.
// PostItemTotal covers every line and modifier, modifiers weighted by their
// parent quantity.
func NewAllocationParams(order *model.Order, info PatternInfo) AllocationParams {
	p := AllocationParams{
		Pattern:       info.Pattern,
		OrderDiscount: info.OrderDiscount,
		Subtotal:      CalculatedSubtotal(order),
		Residual:      info.ResidualOrderDiscount,
		PostItemTotal: decimal.Zero,
	}
	for _, li := range order.LineItems {
		p.PostItemTotal = p.PostItemTotal.Add(postItem(li))
		for _, mod := range li.Modifiers {
			p.PostItemTotal = p.PostItemTotal.Add(postItem(mod).Mul(li.Qty.Decimal()))
		}
	}
	return p
}

// Allocation is the taxable-base breakdown of one line or modifier. For
// modifiers every figure is per unit of the parent.
type Allocation struct {
	Base                     decimal.Decimal `json:"base"`
	LineDiscount             decimal.Decimal `json:"line_discount"`
	PostItem                 decimal.Decimal `json:"post_item"`
	DistributedOrderDiscount decimal.Decimal `json:"distributed_order_discount"`
	Taxable                  decimal.Decimal `json:"taxable_amount"`
}

// Allocate derives the taxable amount from unitPrice × qty and the line
// discount only; stored gross and net amounts are never trusted here. A zero
// denominator leaves the base unadjusted.
func (p AllocationParams) Allocate(li model.LineItem) Allocation {
	base := lineBase(li)
	a := Allocation{
		Base:                     base,
		LineDiscount:             decimal.Zero,
		PostItem:                 base,
		DistributedOrderDiscount: decimal.Zero,
		Taxable:                  base,
	}

	switch p.Pattern {
	case PatternOrderLevelOnly:
		if p.Subtotal.IsZero() {
			return a
		}
		a.DistributedOrderDiscount = p.OrderDiscount.Div(p.Subtotal).Mul(base)
		a.Taxable = base.Sub(a.DistributedOrderDiscount)
	case PatternItemLevelOnly:
		a.LineDiscount = li.Price.DiscountAmount
		a.PostItem = base.Sub(a.LineDiscount)
		a.Taxable = a.PostItem
	case PatternCombined:
		a.LineDiscount = li.Price.DiscountAmount
		a.PostItem = base.Sub(a.LineDiscount)
		a.Taxable = a.PostItem
		if p.PostItemTotal.IsZero() {
			return a
		}
		a.DistributedOrderDiscount = p.Residual.Mul(a.PostItem).Div(p.PostItemTotal)
		a.Taxable = a.PostItem.Sub(a.DistributedOrderDiscount)
	}
	return a
}

func postItem(li model.LineItem) decimal.Decimal {
	return lineBase(li).Sub(li.Price.DiscountAmount)
}
