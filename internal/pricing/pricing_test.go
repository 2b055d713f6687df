package pricing

import (
	"errors"
	"math"
	"testing"
)

func TestComputeLineTotalMediumComplexityWithCertification(t *testing.T) {
	// 2 pages x $65 x 1.0 x 1.15 = 149.50, ceiled to 150.00, + $30 cert.
	got, err := ComputeLineTotal(LineInput{
		BillablePages:        2,
		BaseRate:             65,
		LanguageMultiplier:   1.0,
		ComplexityMultiplier: ComplexityMultiplier("medium"),
		CertificationPrice:   30,
	})
	if err != nil {
		t.Fatalf("ComputeLineTotal: %v", err)
	}
	if got != 180.00 {
		t.Fatalf("expected 180.00, got %.2f", got)
	}
}

func TestComputeLineTotalExactIncrementUnchanged(t *testing.T) {
	// 2 x 50 x 1.0 x 1.0 = 100.00, already a multiple of 2.50.
	got, err := ComputeLineTotal(LineInput{
		BillablePages:        2,
		BaseRate:             50,
		LanguageMultiplier:   1.0,
		ComplexityMultiplier: 1.0,
	})
	if err != nil {
		t.Fatalf("ComputeLineTotal: %v", err)
	}
	if got != 100.00 {
		t.Fatalf("expected 100.00, got %.2f", got)
	}
}

func TestComputeLineTotalZeroPagesIsCertificationOnly(t *testing.T) {
	got, err := ComputeLineTotal(LineInput{
		BillablePages:        0,
		BaseRate:             65,
		LanguageMultiplier:   1.0,
		ComplexityMultiplier: 1.0,
		CertificationPrice:   24.99,
	})
	if err != nil {
		t.Fatalf("ComputeLineTotal: %v", err)
	}
	if got != 24.99 {
		t.Fatalf("expected 24.99, got %.2f", got)
	}
}

func TestComputeLineTotalAlwaysOnIncrementBeforeCertification(t *testing.T) {
	pages := []float64{0.5, 1, 1.5, 2, 3.5, 7, 12.5}
	rates := []float64{20, 35, 49.99, 65, 80.01}
	langMults := []float64{1.0, 1.25, 1.5}
	complexities := []string{"easy", "low", "medium", "hard", "high", "unknown"}

	for _, p := range pages {
		for _, r := range rates {
			for _, lm := range langMults {
				for _, cx := range complexities {
					got, err := ComputeLineTotal(LineInput{
						BillablePages:        p,
						BaseRate:             r,
						LanguageMultiplier:   lm,
						ComplexityMultiplier: ComplexityMultiplier(cx),
					})
					if err != nil {
						t.Fatalf("ComputeLineTotal(%v,%v,%v,%s): %v", p, r, lm, cx, err)
					}
					rem := math.Mod(math.Round(got*100), 250)
					if rem != 0 {
						t.Fatalf("line total %.2f (pages=%v rate=%v lang=%v cx=%s) not a multiple of 2.50", got, p, r, lm, cx)
					}
					raw := p * r * lm * ComplexityMultiplier(cx)
					if got < raw-1e-9 {
						t.Fatalf("line total %.2f fell below raw cost %.4f", got, raw)
					}
					if got-raw > PriceIncrement {
						t.Fatalf("line total %.2f more than one increment above raw cost %.4f", got, raw)
					}
				}
			}
		}
	}
}

func TestComplexityMultiplierTable(t *testing.T) {
	cases := map[string]float64{
		"easy":    1.00,
		"low":     1.00,
		"medium":  1.15,
		"hard":    1.25,
		"high":    1.25,
		"HIGH":    1.25,
		" medium": 1.15,
		"":        1.00,
		"bogus":   1.00,
	}
	for in, want := range cases {
		if got := ComplexityMultiplier(in); got != want {
			t.Fatalf("ComplexityMultiplier(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestComputeLineTotalRejectsNegativeInputs(t *testing.T) {
	bad := []LineInput{
		{BillablePages: -1, BaseRate: 65, LanguageMultiplier: 1, ComplexityMultiplier: 1},
		{BillablePages: 1, BaseRate: -65, LanguageMultiplier: 1, ComplexityMultiplier: 1},
		{BillablePages: 1, BaseRate: 65, LanguageMultiplier: 0, ComplexityMultiplier: 1},
		{BillablePages: 1, BaseRate: 65, LanguageMultiplier: 1, ComplexityMultiplier: 0},
		{BillablePages: 1, BaseRate: 65, LanguageMultiplier: 1, ComplexityMultiplier: 1, CertificationPrice: -5},
	}
	for i, in := range bad {
		if _, err := ComputeLineTotal(in); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestValidateBillablePagesGranularity(t *testing.T) {
	for _, ok := range []float64{0, 0.5, 1, 1.5, 17, 22.5} {
		if err := ValidateBillablePages(ok); err != nil {
			t.Fatalf("ValidateBillablePages(%v): %v", ok, err)
		}
	}
	for _, bad := range []float64{-0.5, 0.25, 0.75, 1.3} {
		if err := ValidateBillablePages(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("ValidateBillablePages(%v): expected ErrInvalidArgument, got %v", bad, err)
		}
	}
}

func TestComputeQuoteTotalsFixedOrder(t *testing.T) {
	// $300 subtotal, rush 30% -> $90, delivery $25, 10% discount -> $30,
	// tax 5% on 385 -> 19.25, total 404.25.
	got, err := ComputeQuoteTotals(QuoteInput{
		DocumentSubtotal: 300,
		IsRush:           true,
		DeliveryFee:      25,
		HasDiscount:      true,
		DiscountType:     AdjustmentPercentage,
		DiscountValue:    10,
		TaxRate:          0.05,
	})
	if err != nil {
		t.Fatalf("ComputeQuoteTotals: %v", err)
	}
	if got.RushFee != 90 {
		t.Fatalf("expected rush fee 90, got %.2f", got.RushFee)
	}
	if got.DiscountAmount != 30 {
		t.Fatalf("expected discount 30, got %.2f", got.DiscountAmount)
	}
	if got.PreTaxTotal != 385 {
		t.Fatalf("expected pre-tax total 385, got %.2f", got.PreTaxTotal)
	}
	if got.TaxAmount != 19.25 {
		t.Fatalf("expected tax 19.25, got %.2f", got.TaxAmount)
	}
	if got.Total != 404.25 {
		t.Fatalf("expected total 404.25, got %.2f", got.Total)
	}
}

func TestComputeQuoteTotalsPercentagesAgainstSubtotalNotRunningTotal(t *testing.T) {
	got, err := ComputeQuoteTotals(QuoteInput{
		DocumentSubtotal: 200,
		IsRush:           true, // +60
		DeliveryFee:      40,
		HasSurcharge:     true,
		SurchargeType:    AdjustmentPercentage,
		SurchargeValue:   10, // 10% of 200, not of 300
	})
	if err != nil {
		t.Fatalf("ComputeQuoteTotals: %v", err)
	}
	if got.SurchargeAmount != 20 {
		t.Fatalf("expected surcharge 20 (10%% of subtotal), got %.2f", got.SurchargeAmount)
	}
	if got.PreTaxTotal != 320 {
		t.Fatalf("expected pre-tax total 320, got %.2f", got.PreTaxTotal)
	}
}

func TestComputeQuoteTotalsFixedDiscount(t *testing.T) {
	got, err := ComputeQuoteTotals(QuoteInput{
		DocumentSubtotal: 100,
		HasDiscount:      true,
		DiscountType:     AdjustmentFixed,
		DiscountValue:    15.5,
	})
	if err != nil {
		t.Fatalf("ComputeQuoteTotals: %v", err)
	}
	if got.DiscountAmount != 15.5 {
		t.Fatalf("expected discount 15.50, got %.2f", got.DiscountAmount)
	}
	if got.Total != 84.5 {
		t.Fatalf("expected total 84.50, got %.2f", got.Total)
	}
}

func TestComputeQuoteTotalsUnknownAdjustmentType(t *testing.T) {
	_, err := ComputeQuoteTotals(QuoteInput{
		DocumentSubtotal: 100,
		HasDiscount:      true,
		DiscountType:     "prorated",
		DiscountValue:    5,
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
