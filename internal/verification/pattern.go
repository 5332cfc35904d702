package verification

import (
	"fmt"

	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/model"
	"github.com/shopspring/decimal"
)

// Pattern is how discounts were applied to an order.
type Pattern int

const (
	PatternNoDiscounts    Pattern = 1
	PatternOrderLevelOnly Pattern = 2
	PatternItemLevelOnly  Pattern = 3
	PatternCombined       Pattern = 4
)

func (p Pattern) String() string {
	switch p {
	case PatternNoDiscounts:
		return "Pattern 1: No Discounts"
	case PatternOrderLevelOnly:
		return "Pattern 2: Order-Level Discount Only"
	case PatternItemLevelOnly:
		return "Pattern 3: Item-Level Discounts Only"
	case PatternCombined:
		return "Pattern 4: Combined (Item + Order Level Discounts)"
	default:
		return fmt.Sprintf("Pattern %d", int(p))
	}
}

// Label is the metric-friendly name of the pattern.
func (p Pattern) Label() string {
	switch p {
	case PatternNoDiscounts:
		return "no_discounts"
	case PatternOrderLevelOnly:
		return "order_level_only"
	case PatternItemLevelOnly:
		return "item_level_only"
	case PatternCombined:
		return "combined"
	default:
		return "unknown"
	}
}

// SharesOrderDiscount reports whether the pattern spreads an order-level
// amount over several lines.
func (p Pattern) SharesOrderDiscount() bool {
	return p == PatternOrderLevelOnly || p == PatternCombined
}

// PatternInfo is the classification of one order.
type PatternInfo struct {
	Pattern   Pattern `json:"-"`
	Code      int     `json:"code"`
	Name      string  `json:"pattern"`
	Corrected bool    `json:"corrected"`
	// NaiveCode is the classification before the duplicate-discount correction.
	NaiveCode int    `json:"naive_code"`
	Rationale string `json:"rationale"`

	HasItemDiscounts      bool            `json:"has_item_discounts"`
	OrderDiscount         decimal.Decimal `json:"order_discount"`
	ItemDiscounts         decimal.Decimal `json:"item_discounts"`
	ResidualOrderDiscount decimal.Decimal `json:"remaining_order_discount"`

	DiscountValid   bool   `json:"discount_valid"`
	DiscountWarning string `json:"discount_warning,omitempty"`
}

// PatternClassifier assigns one of the four discount patterns to an order.
type PatternClassifier struct {
	cfg Config
}

func NewPatternClassifier(cfg Config) PatternClassifier {
	return PatternClassifier{cfg: cfg}
}

func (c PatternClassifier) Classify(order *model.Order) PatternInfo {
	hasItem := HasItemLevelDiscounts(order)
	orderDisc := OrderLevelDiscount(order)
	itemTotal := ItemLevelDiscountTotal(order)

	naive := c.naive(hasItem, orderDisc)
	final, corrected := c.Reclassify(naive, orderDisc, itemTotal)

	info := PatternInfo{
		Pattern:          final,
		Code:             int(final),
		Name:             final.String(),
		Corrected:        corrected,
		NaiveCode:        int(naive),
		HasItemDiscounts: hasItem,
		OrderDiscount:    orderDisc,
		ItemDiscounts:    itemTotal,
		DiscountValid:    true,
	}

	switch final {
	case PatternNoDiscounts:
		info.ResidualOrderDiscount = decimal.Zero
		info.Rationale = "no item-level discounts and no order-level discount"
	case PatternOrderLevelOnly:
		info.ResidualOrderDiscount = orderDisc
		info.Rationale = fmt.Sprintf("order-level discount %s distributed proportionally; no item-level discounts", c.cfg.fixed(orderDisc))
	case PatternItemLevelOnly:
		info.ResidualOrderDiscount = decimal.Zero
		info.Rationale = fmt.Sprintf("item-level discounts %s applied at the line", c.cfg.fixed(itemTotal))
		if corrected {
			info.Rationale = fmt.Sprintf(
				"order-level discount %s duplicates item-level discounts %s (difference %s); treated as item-level only",
				c.cfg.fixed(orderDisc), c.cfg.fixed(itemTotal), c.cfg.fixed(orderDisc.Sub(itemTotal).Abs()),
			)
			info.DiscountWarning = "Pattern corrected from 4 to 3: the order-level discount repeats the item-level discounts and was not distributed again"
		}
	case PatternCombined:
		residual := decimal.Max(decimal.Zero, orderDisc.Sub(itemTotal))
		info.ResidualOrderDiscount = residual
		info.Rationale = fmt.Sprintf(
			"item-level discounts %s applied first, residual order-level discount %s distributed over post-discount amounts",
			c.cfg.fixed(itemTotal), c.cfg.fixed(residual),
		)
		if orderDisc.LessThan(itemTotal) {
			info.DiscountValid = false
			info.DiscountWarning = fmt.Sprintf(
				"order-level discount %s is smaller than item-level discounts %s; residual floored at zero",
				c.cfg.fixed(orderDisc), c.cfg.fixed(itemTotal),
			)
		}
	}
	return info
}

// hasOrderDiscount treats anything within the base tolerance as no discount.
func (c PatternClassifier) hasOrderDiscount(orderDisc decimal.Decimal) bool {
	return orderDisc.GreaterThan(c.cfg.Tolerance())
}

func (c PatternClassifier) naive(hasItem bool, orderDisc decimal.Decimal) Pattern {
	hasOrder := c.hasOrderDiscount(orderDisc)
	switch {
	case hasItem && hasOrder:
		return PatternCombined
	case hasItem:
		return PatternItemLevelOnly
	case hasOrder:
		return PatternOrderLevelOnly
	default:
		return PatternNoDiscounts
	}
}

// Reclassify turns a combined classification into item-level only when the
// order-level discount is within the relative or absolute tolerance of the
// item-level total. Other patterns are returned unchanged, so applying it to
// its own output is a no-op.
func (c PatternClassifier) Reclassify(p Pattern, orderDisc, itemTotal decimal.Decimal) (Pattern, bool) {
	if p != PatternCombined {
		return p, false
	}
	diff := orderDisc.Sub(itemTotal).Abs()
	if diff.LessThanOrEqual(c.cfg.Tolerance()) || diff.LessThanOrEqual(c.cfg.ReclassifyRelativeTolerance.Mul(orderDisc)) {
		return PatternItemLevelOnly, true
	}
	return p, false
}
