package refdata

import (
	"context"
	"sync"
)

// MemoryRepo holds reference data in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu             sync.RWMutex
	languages      []Language
	certifications []CertificationType
	deliveries     []DeliveryOption
	settings       PricingSettings
}

// NewMemoryRepo constructs a MemoryRepo pre-seeded with the same rows the SQL
// migrations seed, so dev mode prices like a migrated database.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		languages: []Language{
			{ID: "lang-es", Code: "es", Name: "Spanish", Tier: 1, Multiplier: 1.00},
			{ID: "lang-fr", Code: "fr", Name: "French", Tier: 1, Multiplier: 1.00},
			{ID: "lang-ar", Code: "ar", Name: "Arabic", Tier: 2, Multiplier: 1.25},
			{ID: "lang-ja", Code: "ja", Name: "Japanese", Tier: 2, Multiplier: 1.25},
			{ID: "lang-am", Code: "am", Name: "Amharic", Tier: 3, Multiplier: 1.50},
		},
		certifications: []CertificationType{
			{ID: "cert-standard", Name: "Standard Certification", Price: 30.00, IsDefault: true},
			{ID: "cert-notarized", Name: "Notarized Certification", Price: 55.00},
		},
		deliveries: []DeliveryOption{
			{ID: "delivery-digital", Name: "Digital Delivery", Price: 0},
			{ID: "delivery-post", Name: "Postal Delivery", Price: 25.00},
		},
		settings: PricingSettings{BaseRatePerPage: 65.00, TaxRate: 0},
	}
}

// SetLanguages replaces the language table.
func (r *MemoryRepo) SetLanguages(langs []Language) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.languages = langs
}

// SetCertificationTypes replaces the certification table.
func (r *MemoryRepo) SetCertificationTypes(certs []CertificationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.certifications = certs
}

// SetDeliveryOptions replaces the delivery option table.
func (r *MemoryRepo) SetDeliveryOptions(opts []DeliveryOption) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = opts
}

// SetPricingSettings replaces the pricing settings.
func (r *MemoryRepo) SetPricingSettings(s PricingSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
}

// ListLanguages returns all language rows.
func (r *MemoryRepo) ListLanguages(ctx context.Context) ([]Language, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Language(nil), r.languages...), nil
}

// ListCertificationTypes returns all certification rows.
func (r *MemoryRepo) ListCertificationTypes(ctx context.Context) ([]CertificationType, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]CertificationType(nil), r.certifications...), nil
}

// ListDeliveryOptions returns all delivery option rows.
func (r *MemoryRepo) ListDeliveryOptions(ctx context.Context) ([]DeliveryOption, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]DeliveryOption(nil), r.deliveries...), nil
}

// GetPricingSettings returns the pricing settings row.
func (r *MemoryRepo) GetPricingSettings(ctx context.Context) (PricingSettings, error) {
	if err := ctx.Err(); err != nil {
		return PricingSettings{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings, nil
}
