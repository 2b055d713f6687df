package quotes

import "time"

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
)

// Quote is the staff-created aggregate everything else hangs off: files,
// analysis records, groups, and pricing all reference it by ID.
type Quote struct {
	ID            string    `json:"id"`
	QuoteNumber   int       `json:"quoteNumber"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TranslationSettings holds per-quote language selection and the resolved
// pricing multiplier. An override always wins over the tier default and is
// flagged to staff as a custom value.
type TranslationSettings struct {
	QuoteID                    string    `json:"quoteId"`
	SourceLanguageID           string    `json:"sourceLanguageId"`
	TargetLanguageID           string    `json:"targetLanguageId"`
	IntendedUseID              string    `json:"intendedUseId"`
	CountryOfIssue             string    `json:"countryOfIssue"`
	LanguageTier               int       `json:"languageTier"`
	LanguageMultiplier         float64   `json:"languageMultiplier"`
	LanguageMultiplierOverride *float64  `json:"languageMultiplierOverride,omitempty"`
	UpdatedAt                  time.Time `json:"updatedAt"`
}

// EffectiveMultiplier returns the override when set, the tier default
// otherwise.
func (s TranslationSettings) EffectiveMultiplier() float64 {
	if s.LanguageMultiplierOverride != nil {
		return *s.LanguageMultiplierOverride
	}
	return s.LanguageMultiplier
}

// Pricing is the quote-level adjustment inputs plus the reconciled totals.
// Version guards concurrent recalculations: a write carries the version it
// read, and a mismatch means another recalculation landed in between.
type Pricing struct {
	QuoteID          string    `json:"quoteId"`
	DocumentSubtotal float64   `json:"documentSubtotal"`
	IsRush           bool      `json:"isRush"`
	RushFee          float64   `json:"rushFee"`
	DeliveryOptionID *string   `json:"deliveryOptionId,omitempty"`
	DeliveryFee      float64   `json:"deliveryFee"`
	HasDiscount      bool      `json:"hasDiscount"`
	DiscountType     string    `json:"discountType,omitempty"`
	DiscountValue    float64   `json:"discountValue"`
	DiscountAmount   float64   `json:"discountAmount"`
	HasSurcharge     bool      `json:"hasSurcharge"`
	SurchargeType    string    `json:"surchargeType,omitempty"`
	SurchargeValue   float64   `json:"surchargeValue"`
	SurchargeAmount  float64   `json:"surchargeAmount"`
	TaxRate          float64   `json:"taxRate"`
	TaxAmount        float64   `json:"taxAmount"`
	PreTaxTotal      float64   `json:"preTaxTotal"`
	Total            float64   `json:"total"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Detail is a quote with its settings and pricing, for read endpoints.
type Detail struct {
	Quote    Quote               `json:"quote"`
	Settings TranslationSettings `json:"settings"`
	Pricing  Pricing             `json:"pricing"`
}
