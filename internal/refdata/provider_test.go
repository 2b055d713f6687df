package refdata

import (
	"context"
	"errors"
	"testing"
)

func TestResolveLanguageTierDefault(t *testing.T) {
	provider := NewProvider(NewMemoryRepo())

	rate, err := provider.ResolveLanguage(context.Background(), "lang-ar", nil)
	if err != nil {
		t.Fatalf("ResolveLanguage: %v", err)
	}
	if rate.Tier != 2 {
		t.Fatalf("expected tier 2, got %d", rate.Tier)
	}
	if rate.Multiplier != 1.25 {
		t.Fatalf("expected multiplier 1.25, got %v", rate.Multiplier)
	}
}

func TestResolveLanguageOverrideWins(t *testing.T) {
	provider := NewProvider(NewMemoryRepo())

	override := 1.8
	rate, err := provider.ResolveLanguage(context.Background(), "lang-es", &override)
	if err != nil {
		t.Fatalf("ResolveLanguage: %v", err)
	}
	if rate.Multiplier != 1.8 {
		t.Fatalf("expected override multiplier 1.8, got %v", rate.Multiplier)
	}
	if rate.Tier != 1 {
		t.Fatalf("expected tier to stay 1 under override, got %d", rate.Tier)
	}
}

func TestResolveLanguageUnknownID(t *testing.T) {
	provider := NewProvider(NewMemoryRepo())

	_, err := provider.ResolveLanguage(context.Background(), "lang-missing", nil)
	if !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}

type countingRepo struct {
	*MemoryRepo
	loads int
}

func (r *countingRepo) ListLanguages(ctx context.Context) ([]Language, error) {
	r.loads++
	return r.MemoryRepo.ListLanguages(ctx)
}

func TestProviderCachesUntilInvalidated(t *testing.T) {
	repo := &countingRepo{MemoryRepo: NewMemoryRepo()}
	provider := NewProvider(repo)

	for i := 0; i < 3; i++ {
		if _, err := provider.ResolveLanguage(context.Background(), "lang-es", nil); err != nil {
			t.Fatalf("ResolveLanguage: %v", err)
		}
	}
	if repo.loads != 1 {
		t.Fatalf("expected 1 repo load, got %d", repo.loads)
	}

	provider.Invalidate()
	if _, err := provider.CertificationPrice(context.Background(), "cert-standard"); err != nil {
		t.Fatalf("CertificationPrice: %v", err)
	}
	if repo.loads != 2 {
		t.Fatalf("expected reload after invalidate, got %d loads", repo.loads)
	}
}

func TestCertificationAndDeliveryLookups(t *testing.T) {
	provider := NewProvider(NewMemoryRepo())

	price, err := provider.CertificationPrice(context.Background(), "cert-notarized")
	if err != nil {
		t.Fatalf("CertificationPrice: %v", err)
	}
	if price != 55.00 {
		t.Fatalf("expected 55.00, got %v", price)
	}

	fee, err := provider.DeliveryFee(context.Background(), "delivery-post")
	if err != nil {
		t.Fatalf("DeliveryFee: %v", err)
	}
	if fee != 25.00 {
		t.Fatalf("expected 25.00, got %v", fee)
	}

	if _, err := provider.DeliveryFee(context.Background(), "delivery-drone"); !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
}
