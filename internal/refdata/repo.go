package refdata

import "context"

// Repo defines read operations over externally owned reference tables.
type Repo interface {
	ListLanguages(ctx context.Context) ([]Language, error)
	ListCertificationTypes(ctx context.Context) ([]CertificationType, error)
	ListDeliveryOptions(ctx context.Context) ([]DeliveryOption, error)
	GetPricingSettings(ctx context.Context) (PricingSettings, error)
}
