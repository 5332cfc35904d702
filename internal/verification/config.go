package verification

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	DefaultPrecision = 5
	MinPrecision     = 2
	MaxPrecision     = 8
)

var (
	// DefaultReclassifyRelativeTolerance is the share of the order-level
	// discount within which it is treated as a copy of the item-level total.
	DefaultReclassifyRelativeTolerance = decimal.RequireFromString("0.05")

	// DefaultNetToleranceMultiplier widens the netAmount tolerance for
	// patterns that spread a shared discount over several lines.
	DefaultNetToleranceMultiplier = decimal.NewFromInt(100)
)

// Config controls rounding and tolerances for a Verifier.
type Config struct {
	Precision                   int
	ReclassifyRelativeTolerance decimal.Decimal
	NetToleranceMultiplier      decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		Precision:                   DefaultPrecision,
		ReclassifyRelativeTolerance: DefaultReclassifyRelativeTolerance,
		NetToleranceMultiplier:      DefaultNetToleranceMultiplier,
	}
}

// WithPrecision returns a copy of c using p, or the default precision when p is 0.
func (c Config) WithPrecision(p int) Config {
	if p == 0 {
		p = DefaultPrecision
	}
	c.Precision = p
	return c
}

func (c Config) Validate() error {
	if c.Precision < MinPrecision || c.Precision > MaxPrecision {
		return fmt.Errorf("%w: %d (must be between %d and %d)", ErrInvalidPrecision, c.Precision, MinPrecision, MaxPrecision)
	}
	if c.ReclassifyRelativeTolerance.IsNegative() {
		return fmt.Errorf("reclassify relative tolerance must not be negative: %s", c.ReclassifyRelativeTolerance)
	}
	if c.NetToleranceMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("net tolerance multiplier must be at least 1: %s", c.NetToleranceMultiplier)
	}
	return nil
}

// Tolerance is the base absolute tolerance, 10^-precision.
func (c Config) Tolerance() decimal.Decimal {
	return decimal.New(1, -int32(c.Precision))
}

func (c Config) round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(int32(c.Precision))
}

func (c Config) fixed(d decimal.Decimal) string {
	return d.StringFixedBank(int32(c.Precision))
}
