package verification

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTaxAssignment is matched by *TaxAssignmentError.
	ErrNoTaxAssignment = errors.New("tax assignment error")

	ErrInvalidPrecision = errors.New("invalid precision")
)

// TaxAssignmentError is returned when no line or modifier of an order carries
// a tax category, which leaves nothing to reconcile.
type TaxAssignmentError struct {
	Items     int
	Modifiers int
}

func (e *TaxAssignmentError) Error() string {
	return fmt.Sprintf(
		"%s: this menu doesn't have any taxes assigned; found %d menu items and %d modifiers, but all tax arrays are empty. %s",
		ErrNoTaxAssignment, e.Items, e.Modifiers, strings.Join(e.Recommendations(), " "),
	)
}

func (e *TaxAssignmentError) Is(target error) bool {
	return target == ErrNoTaxAssignment
}

// Recommendations lists the corrective steps shown to operators.
func (e *TaxAssignmentError) Recommendations() []string {
	return []string{
		"Ensure tax categories are assigned to menu items before verification.",
		"Check the menu's tax configuration for the brand and location.",
		"Re-sync the order once taxes are configured and verify again.",
	}
}
