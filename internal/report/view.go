package report

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// View selects how much of a result the text report shows.
type View string

const (
	ViewBasic    View = "basic"
	ViewFull     View = "full"
	ViewFailures View = "failures"
)

func ParseView(s string) (View, error) {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case "":
		return ViewBasic, nil
	case ViewBasic, ViewFull, ViewFailures:
		return v, nil
	default:
		return "", fmt.Errorf("unknown tax view %q (expected basic, full or failures)", s)
	}
}

// Severity grades a difference for display.
type Severity string

const (
	SeverityOK      Severity = "OK"
	SeverityWarning Severity = "WARNING"
	SeverityFail    Severity = "FAIL"
)

var (
	okThreshold      = decimal.New(1, -5)
	warningThreshold = decimal.New(1, -3)
	// overall status tolerance on the summed menu vs recomputed variance
	passThreshold = decimal.New(1, -4)
)

// SeverityOf is OK below 1e-5, WARNING below 1e-3 and FAIL otherwise.
func SeverityOf(delta decimal.Decimal) Severity {
	abs := delta.Abs()
	switch {
	case abs.LessThan(okThreshold):
		return SeverityOK
	case abs.LessThan(warningThreshold):
		return SeverityWarning
	default:
		return SeverityFail
	}
}
