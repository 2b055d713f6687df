package pricing

import "fmt"

const (
	AdjustmentFixed      = "fixed"
	AdjustmentPercentage = "percentage"
)

// QuoteInput carries quote-level adjustment parameters. Percentage discount
// and surcharge values are expressed as whole percents (10 means 10%).
type QuoteInput struct {
	DocumentSubtotal float64
	IsRush           bool
	DeliveryFee      float64
	HasDiscount      bool
	DiscountType     string
	DiscountValue    float64
	HasSurcharge     bool
	SurchargeType    string
	SurchargeValue   float64
	TaxRate          float64
}

// QuoteTotals is the fully evaluated quote pricing breakdown.
type QuoteTotals struct {
	DocumentSubtotal float64
	RushFee          float64
	DeliveryFee      float64
	DiscountAmount   float64
	SurchargeAmount  float64
	PreTaxTotal      float64
	TaxAmount        float64
	Total            float64
}

// ComputeQuoteTotals applies quote-level adjustments in fixed order:
// subtotal + rush + delivery - discount + surcharge, then tax. Percentage
// amounts are computed against the document subtotal, never a running total.
// Every intermediate value is rounded to cents.
func ComputeQuoteTotals(in QuoteInput) (QuoteTotals, error) {
	if in.DocumentSubtotal < 0 {
		return QuoteTotals{}, fmt.Errorf("%w: document subtotal must not be negative", ErrInvalidArgument)
	}
	if in.DeliveryFee < 0 {
		return QuoteTotals{}, fmt.Errorf("%w: delivery fee must not be negative", ErrInvalidArgument)
	}
	if in.TaxRate < 0 {
		return QuoteTotals{}, fmt.Errorf("%w: tax rate must not be negative", ErrInvalidArgument)
	}

	out := QuoteTotals{
		DocumentSubtotal: RoundCents(in.DocumentSubtotal),
		DeliveryFee:      RoundCents(in.DeliveryFee),
	}

	if in.IsRush {
		out.RushFee = RoundCents(out.DocumentSubtotal * RushPercent)
	}

	var err error
	if in.HasDiscount {
		out.DiscountAmount, err = adjustmentAmount(out.DocumentSubtotal, in.DiscountType, in.DiscountValue)
		if err != nil {
			return QuoteTotals{}, fmt.Errorf("discount: %w", err)
		}
	}
	if in.HasSurcharge {
		out.SurchargeAmount, err = adjustmentAmount(out.DocumentSubtotal, in.SurchargeType, in.SurchargeValue)
		if err != nil {
			return QuoteTotals{}, fmt.Errorf("surcharge: %w", err)
		}
	}

	out.PreTaxTotal = RoundCents(out.DocumentSubtotal + out.RushFee + out.DeliveryFee - out.DiscountAmount + out.SurchargeAmount)
	out.TaxAmount = RoundCents(out.PreTaxTotal * in.TaxRate)
	out.Total = RoundCents(out.PreTaxTotal + out.TaxAmount)
	return out, nil
}

func adjustmentAmount(subtotal float64, adjType string, value float64) (float64, error) {
	if value < 0 {
		return 0, fmt.Errorf("%w: adjustment value must not be negative", ErrInvalidArgument)
	}
	switch adjType {
	case AdjustmentFixed:
		return RoundCents(value), nil
	case AdjustmentPercentage:
		return RoundCents(subtotal * value / 100), nil
	default:
		return 0, fmt.Errorf("%w: unknown adjustment type %q", ErrInvalidArgument, adjType)
	}
}
