package quotes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores quotes in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu       sync.RWMutex
	quotes   map[string]Quote
	settings map[string]TranslationSettings
	pricing  map[string]Pricing
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		quotes:   make(map[string]Quote),
		settings: make(map[string]TranslationSettings),
		pricing:  make(map[string]Pricing),
	}
}

// Create stores a quote with its settings and pricing rows.
func (r *MemoryRepo) Create(ctx context.Context, quote Quote, settings TranslationSettings, pricing Pricing) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	number := 1
	for _, q := range r.quotes {
		if q.QuoteNumber >= number {
			number = q.QuoteNumber + 1
		}
	}
	quote.QuoteNumber = number
	r.quotes[quote.ID] = quote
	r.settings[quote.ID] = settings
	r.pricing[quote.ID] = pricing
	return nil
}

// GetQuote returns a quote by ID.
func (r *MemoryRepo) GetQuote(ctx context.Context, quoteID string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	quote, ok := r.quotes[quoteID]
	if !ok {
		return Quote{}, ErrNotFound
	}
	return quote, nil
}

// ListQuotes returns all quotes ordered by quote number.
func (r *MemoryRepo) ListQuotes(ctx context.Context) ([]Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Quote, 0, len(r.quotes))
	for _, quote := range r.quotes {
		out = append(out, quote)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuoteNumber < out[j].QuoteNumber })
	return out, nil
}

// UpdateQuote replaces the quote row.
func (r *MemoryRepo) UpdateQuote(ctx context.Context, quote Quote) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.quotes[quote.ID]; !ok {
		return ErrNotFound
	}
	quote.UpdatedAt = time.Now().UTC()
	r.quotes[quote.ID] = quote
	return nil
}

// GetSettings returns the translation settings of a quote.
func (r *MemoryRepo) GetSettings(ctx context.Context, quoteID string) (TranslationSettings, error) {
	if err := ctx.Err(); err != nil {
		return TranslationSettings{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	settings, ok := r.settings[quoteID]
	if !ok {
		return TranslationSettings{}, ErrNotFound
	}
	return settings, nil
}

// UpdateSettings replaces the settings row.
func (r *MemoryRepo) UpdateSettings(ctx context.Context, settings TranslationSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.settings[settings.QuoteID]; !ok {
		return ErrNotFound
	}
	settings.UpdatedAt = time.Now().UTC()
	r.settings[settings.QuoteID] = settings
	return nil
}

// GetPricing returns the pricing row of a quote.
func (r *MemoryRepo) GetPricing(ctx context.Context, quoteID string) (Pricing, error) {
	if err := ctx.Err(); err != nil {
		return Pricing{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	pricing, ok := r.pricing[quoteID]
	if !ok {
		return Pricing{}, ErrNotFound
	}
	return pricing, nil
}

// UpdatePricing writes the pricing row when the stored version still matches.
func (r *MemoryRepo) UpdatePricing(ctx context.Context, pricing Pricing, expectedVersion int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.pricing[pricing.QuoteID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrConcurrentModification
	}
	pricing.Version = expectedVersion + 1
	pricing.UpdatedAt = time.Now().UTC()
	r.pricing[pricing.QuoteID] = pricing
	return nil
}
