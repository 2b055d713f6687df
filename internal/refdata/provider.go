package refdata

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Provider is a read-through cache over the reference tables. Lookups load the
// full table once, serve from memory until TTL expiry, and can be invalidated
// explicitly after admin edits.
type Provider struct {
	Repo Repo
	TTL  time.Duration

	mu             sync.RWMutex
	languages      map[string]Language
	certifications map[string]CertificationType
	deliveries     map[string]DeliveryOption
	settings       *PricingSettings
	loadedAt       time.Time
}

// NewProvider constructs a Provider with a 5 minute cache TTL.
func NewProvider(repo Repo) *Provider {
	return &Provider{Repo: repo, TTL: 5 * time.Minute}
}

// ResolveLanguage returns the tier and tier-default multiplier for a language.
// When override is non-nil the override value wins, tier still reflecting the
// language row. Unknown ids fail with ErrReferenceNotFound.
func (p *Provider) ResolveLanguage(ctx context.Context, languageID string, override *float64) (LanguageRate, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return LanguageRate{}, err
	}
	p.mu.RLock()
	lang, ok := p.languages[languageID]
	p.mu.RUnlock()
	if !ok {
		return LanguageRate{}, fmt.Errorf("language %s: %w", languageID, ErrReferenceNotFound)
	}
	rate := LanguageRate{Tier: lang.Tier, Multiplier: lang.Multiplier}
	if override != nil {
		rate.Multiplier = *override
	}
	return rate, nil
}

// CertificationPrice returns the current price of a certification type.
func (p *Provider) CertificationPrice(ctx context.Context, certificationTypeID string) (float64, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	p.mu.RLock()
	cert, ok := p.certifications[certificationTypeID]
	p.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("certification type %s: %w", certificationTypeID, ErrReferenceNotFound)
	}
	return cert.Price, nil
}

// DeliveryFee returns the flat fee of a delivery option.
func (p *Provider) DeliveryFee(ctx context.Context, deliveryOptionID string) (float64, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	p.mu.RLock()
	opt, ok := p.deliveries[deliveryOptionID]
	p.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("delivery option %s: %w", deliveryOptionID, ErrReferenceNotFound)
	}
	return opt.Price, nil
}

// Settings returns quote-wide pricing settings.
func (p *Provider) Settings(ctx context.Context) (PricingSettings, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return PricingSettings{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return *p.settings, nil
}

// Languages returns all language rows for selector population.
func (p *Provider) Languages(ctx context.Context) ([]Language, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Language, 0, len(p.languages))
	for _, l := range p.languages {
		out = append(out, l)
	}
	return out, nil
}

// CertificationTypes returns all certification type rows.
func (p *Provider) CertificationTypes(ctx context.Context) ([]CertificationType, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]CertificationType, 0, len(p.certifications))
	for _, c := range p.certifications {
		out = append(out, c)
	}
	return out, nil
}

// DeliveryOptions returns all delivery option rows.
func (p *Provider) DeliveryOptions(ctx context.Context) ([]DeliveryOption, error) {
	if err := p.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]DeliveryOption, 0, len(p.deliveries))
	for _, d := range p.deliveries {
		out = append(out, d)
	}
	return out, nil
}

// Invalidate drops the cache so the next lookup reloads from the repo.
func (p *Provider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loadedAt = time.Time{}
	p.languages = nil
	p.certifications = nil
	p.deliveries = nil
	p.settings = nil
}

func (p *Provider) ensureLoaded(ctx context.Context) error {
	p.mu.RLock()
	fresh := p.settings != nil && (p.TTL <= 0 || time.Since(p.loadedAt) < p.TTL)
	p.mu.RUnlock()
	if fresh {
		return nil
	}

	langs, err := p.Repo.ListLanguages(ctx)
	if err != nil {
		return fmt.Errorf("load languages: %w", err)
	}
	certs, err := p.Repo.ListCertificationTypes(ctx)
	if err != nil {
		return fmt.Errorf("load certification types: %w", err)
	}
	deliveries, err := p.Repo.ListDeliveryOptions(ctx)
	if err != nil {
		return fmt.Errorf("load delivery options: %w", err)
	}
	settings, err := p.Repo.GetPricingSettings(ctx)
	if err != nil {
		return fmt.Errorf("load pricing settings: %w", err)
	}

	langMap := make(map[string]Language, len(langs))
	for _, l := range langs {
		langMap[l.ID] = l
	}
	certMap := make(map[string]CertificationType, len(certs))
	for _, c := range certs {
		certMap[c.ID] = c
	}
	deliveryMap := make(map[string]DeliveryOption, len(deliveries))
	for _, d := range deliveries {
		deliveryMap[d.ID] = d
	}

	p.mu.Lock()
	p.languages = langMap
	p.certifications = certMap
	p.deliveries = deliveryMap
	p.settings = &settings
	p.loadedAt = time.Now()
	p.mu.Unlock()
	return nil
}
