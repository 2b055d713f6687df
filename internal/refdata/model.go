package refdata

// Language is a source-language reference row. Tier is 1 (standard),
// 2 (complex script) or 3 (rare/specialized); Multiplier is the tier default
// applied to translation cost unless a quote carries an override.
type Language struct {
	ID         string  `json:"id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Tier       int     `json:"tier"`
	Multiplier float64 `json:"multiplier"`
}

// CertificationType is a purchasable certification with its current price.
// Prices are snapshotted onto records at assignment time.
type CertificationType struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	IsDefault bool    `json:"isDefault"`
}

// DeliveryOption is a flat-fee delivery choice.
type DeliveryOption struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PricingSettings holds quote-wide defaults owned by reference data.
type PricingSettings struct {
	BaseRatePerPage float64 `json:"baseRatePerPage"`
	TaxRate         float64 `json:"taxRate"`
}

// LanguageRate is the resolver output for one language.
type LanguageRate struct {
	Tier       int     `json:"tier"`
	Multiplier float64 `json:"multiplier"`
}
