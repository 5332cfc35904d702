package verification

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Apportioner splits a tax-inclusive amount across the tax categories that
// apply to it at the same time.
type Apportioner struct {
	cfg Config
}

func NewApportioner(cfg Config) Apportioner {
	return Apportioner{cfg: cfg}
}

// Split returns taxable × rate / (1 + totalRate), rounded half to even.
// rate and totalRate are decimal fractions. Zero is returned for a
// non-positive taxable amount or rate.
func (a Apportioner) Split(taxable, rate, totalRate decimal.Decimal) decimal.Decimal {
	if !taxable.IsPositive() || !rate.IsPositive() || !totalRate.IsPositive() {
		return decimal.Zero
	}
	return a.cfg.round(taxable.Mul(rate).Div(one.Add(totalRate)))
}

// InclusiveTax returns amount − amount / (1 + rate), the tax contained in an
// amount that already includes it.
func (a Apportioner) InclusiveTax(amount, rate decimal.Decimal) decimal.Decimal {
	if !amount.IsPositive() || !rate.IsPositive() {
		return decimal.Zero
	}
	return a.cfg.round(amount.Sub(amount.Div(one.Add(rate))))
}

// SplitFormula renders the calculation behind Split for audit output.
func (a Apportioner) SplitFormula(taxable, rate, totalRate, result decimal.Decimal) string {
	return fmt.Sprintf("%s × %s / (1 + %s) = %s",
		a.cfg.fixed(taxable), rate.Round(6).String(), totalRate.Round(6).String(), a.cfg.fixed(result))
}
