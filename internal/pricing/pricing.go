package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// PriceIncrement is the pricing floor: translation cost is always rounded up
// to the next multiple of this amount before certification is added.
const PriceIncrement = 2.50

// RushPercent is the quote-level rush surcharge applied to the document subtotal.
const RushPercent = 0.30

// ErrInvalidArgument is returned when pricing inputs fail validation. No
// pricing result is ever produced from invalid inputs.
var ErrInvalidArgument = errors.New("invalid argument")

// complexityMultipliers is the single authoritative complexity table. Every
// caller prices through ComplexityMultiplier; the table must not be duplicated
// elsewhere.
var complexityMultipliers = map[string]float64{
	"easy":   1.00,
	"low":    1.00,
	"medium": 1.15,
	"hard":   1.25,
	"high":   1.25,
}

// ComplexityMultiplier maps an assessed complexity to its fixed multiplier.
// Unrecognized or empty complexity values price at 1.00.
func ComplexityMultiplier(complexity string) float64 {
	if m, ok := complexityMultipliers[strings.ToLower(strings.TrimSpace(complexity))]; ok {
		return m
	}
	return 1.00
}

// LineInput carries the inputs for a single line total.
type LineInput struct {
	BillablePages        float64
	BaseRate             float64
	LanguageMultiplier   float64
	ComplexityMultiplier float64
	CertificationPrice   float64
}

// ComputeLineTotal prices one billable unit: the translation cost is rounded
// up to the next PriceIncrement, then the certification price is added as-is.
// BillablePages of zero yields the certification price alone.
func ComputeLineTotal(in LineInput) (float64, error) {
	if err := validateLineInput(in); err != nil {
		return 0, err
	}

	raw := in.BillablePages * in.BaseRate * in.LanguageMultiplier * in.ComplexityMultiplier
	rounded := CeilToIncrement(raw)
	return RoundCents(rounded + in.CertificationPrice), nil
}

// CeilToIncrement rounds a translation cost up to the next PriceIncrement.
// Exact multiples are left unchanged.
func CeilToIncrement(v float64) float64 {
	if v <= 0 {
		return 0
	}
	units := RoundCents(v) / PriceIncrement
	return math.Ceil(units-1e-9) * PriceIncrement
}

// RoundCents rounds a monetary value to two decimals, half up.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// ValidateBillablePages checks half-page granularity: zero, or at least 0.5 in
// 0.5 steps.
func ValidateBillablePages(pages float64) error {
	if pages < 0 {
		return fmt.Errorf("%w: billable pages must not be negative", ErrInvalidArgument)
	}
	if pages == 0 {
		return nil
	}
	if pages < 0.5 {
		return fmt.Errorf("%w: billable pages below half-page minimum", ErrInvalidArgument)
	}
	doubled := pages * 2
	if math.Abs(doubled-math.Round(doubled)) > 1e-9 {
		return fmt.Errorf("%w: billable pages must be in half-page steps", ErrInvalidArgument)
	}
	return nil
}

func validateLineInput(in LineInput) error {
	if err := ValidateBillablePages(in.BillablePages); err != nil {
		return err
	}
	if in.BaseRate < 0 {
		return fmt.Errorf("%w: base rate must not be negative", ErrInvalidArgument)
	}
	if in.LanguageMultiplier <= 0 {
		return fmt.Errorf("%w: language multiplier must be positive", ErrInvalidArgument)
	}
	if in.ComplexityMultiplier <= 0 {
		return fmt.Errorf("%w: complexity multiplier must be positive", ErrInvalidArgument)
	}
	if in.CertificationPrice < 0 {
		return fmt.Errorf("%w: certification price must not be negative", ErrInvalidArgument)
	}
	return nil
}
