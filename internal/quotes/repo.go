package quotes

import "context"

// Repo defines persistence for quotes, settings, and pricing. UpdatePricing
// is an optimistic write: it only lands when the stored version still equals
// expectedVersion, and increments the version on success.
type Repo interface {
	Create(ctx context.Context, quote Quote, settings TranslationSettings, pricing Pricing) error
	GetQuote(ctx context.Context, quoteID string) (Quote, error)
	ListQuotes(ctx context.Context) ([]Quote, error)
	UpdateQuote(ctx context.Context, quote Quote) error

	GetSettings(ctx context.Context, quoteID string) (TranslationSettings, error)
	UpdateSettings(ctx context.Context, settings TranslationSettings) error

	GetPricing(ctx context.Context, quoteID string) (Pricing, error)
	UpdatePricing(ctx context.Context, pricing Pricing, expectedVersion int64) error
}
