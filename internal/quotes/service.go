package quotes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"quoteflow-backend/internal/analyses"
	"quoteflow-backend/internal/groups"
	"quoteflow-backend/internal/pricing"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/metrics"
	"quoteflow-backend/internal/shared/telemetry"
)

// Service owns the quote aggregate: settings, adjustments, and the totals
// reconciliation that every record and group mutation funnels into.
type Service struct {
	Repo    Repo
	Ref     *refdata.Provider
	Records analyses.Repo
	Groups  groups.Repo

	locks sync.Map // quoteID -> *sync.Mutex
}

// CreateInput carries the fields of a new quote.
type CreateInput struct {
	CustomerName     string
	CustomerEmail    string
	SourceLanguageID string
	TargetLanguageID string
	IntendedUseID    string
	CountryOfIssue   string
}

// SettingsPatch is a partial settings update; nil fields are left unchanged.
// ResetOverride clears a custom multiplier so the tier default applies again.
type SettingsPatch struct {
	SourceLanguageID           *string
	TargetLanguageID           *string
	IntendedUseID              *string
	CountryOfIssue             *string
	LanguageMultiplierOverride *float64
	ResetOverride              bool
}

// AdjustmentsInput replaces the quote-level adjustment inputs. Totals are
// re-derived immediately.
type AdjustmentsInput struct {
	IsRush           bool
	DeliveryOptionID *string
	HasDiscount      bool
	DiscountType     string
	DiscountValue    float64
	HasSurcharge     bool
	SurchargeType    string
	SurchargeValue   float64
	TaxRate          *float64
}

// Create opens a draft quote, resolving the source language tier and seeding
// pricing with the default tax rate.
func (s *Service) Create(ctx context.Context, input CreateInput) (Detail, error) {
	if input.SourceLanguageID == "" {
		return Detail{}, fmt.Errorf("%w: source language is required", pricing.ErrInvalidArgument)
	}
	rate, err := s.Ref.ResolveLanguage(ctx, input.SourceLanguageID, nil)
	if err != nil {
		return Detail{}, err
	}
	settings, err := s.Ref.Settings(ctx)
	if err != nil {
		return Detail{}, err
	}

	now := time.Now().UTC()
	quote := Quote{
		ID:            uuid.NewString(),
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		Status:        StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	translation := TranslationSettings{
		QuoteID:            quote.ID,
		SourceLanguageID:   input.SourceLanguageID,
		TargetLanguageID:   input.TargetLanguageID,
		IntendedUseID:      input.IntendedUseID,
		CountryOfIssue:     input.CountryOfIssue,
		LanguageTier:       rate.Tier,
		LanguageMultiplier: rate.Multiplier,
		UpdatedAt:          now,
	}
	price := Pricing{
		QuoteID:   quote.ID,
		TaxRate:   settings.TaxRate,
		Version:   1,
		UpdatedAt: now,
	}

	if err := s.Repo.Create(ctx, quote, translation, price); err != nil {
		return Detail{}, err
	}
	created, err := s.Repo.GetQuote(ctx, quote.ID)
	if err != nil {
		return Detail{}, err
	}
	telemetry.Info("quote.created", map[string]any{"quote_id": quote.ID, "quote_number": created.QuoteNumber})
	return Detail{Quote: created, Settings: translation, Pricing: price}, nil
}

// Get returns a quote with settings and pricing.
func (s *Service) Get(ctx context.Context, quoteID string) (Detail, error) {
	quote, err := s.Repo.GetQuote(ctx, quoteID)
	if err != nil {
		return Detail{}, err
	}
	settings, err := s.Repo.GetSettings(ctx, quoteID)
	if err != nil {
		return Detail{}, err
	}
	price, err := s.Repo.GetPricing(ctx, quoteID)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Quote: quote, Settings: settings, Pricing: price}, nil
}

// List returns all quotes.
func (s *Service) List(ctx context.Context) ([]Quote, error) {
	return s.Repo.ListQuotes(ctx)
}

// Submit marks a quote ready for payment.
func (s *Service) Submit(ctx context.Context, quoteID string) (Quote, error) {
	quote, err := s.Repo.GetQuote(ctx, quoteID)
	if err != nil {
		return Quote{}, err
	}
	quote.Status = StatusSubmitted
	if err := s.Repo.UpdateQuote(ctx, quote); err != nil {
		return Quote{}, err
	}
	return quote, nil
}

// LanguageMultiplier returns the quote's effective language multiplier. It is
// the single source the record and group pricers call into.
func (s *Service) LanguageMultiplier(ctx context.Context, quoteID string) (float64, error) {
	settings, err := s.Repo.GetSettings(ctx, quoteID)
	if err != nil {
		return 0, err
	}
	return settings.EffectiveMultiplier(), nil
}

// UpdateSettings applies a partial settings change. Changing the source
// language re-resolves the tier default but preserves an existing override
// unless it is explicitly reset. A multiplier change reprices every line.
func (s *Service) UpdateSettings(ctx context.Context, quoteID string, patch SettingsPatch) (TranslationSettings, error) {
	settings, err := s.Repo.GetSettings(ctx, quoteID)
	if err != nil {
		return TranslationSettings{}, err
	}
	before := settings.EffectiveMultiplier()

	if patch.SourceLanguageID != nil && *patch.SourceLanguageID != settings.SourceLanguageID {
		rate, err := s.Ref.ResolveLanguage(ctx, *patch.SourceLanguageID, nil)
		if err != nil {
			return TranslationSettings{}, err
		}
		settings.SourceLanguageID = *patch.SourceLanguageID
		settings.LanguageTier = rate.Tier
		settings.LanguageMultiplier = rate.Multiplier
	}
	if patch.TargetLanguageID != nil {
		settings.TargetLanguageID = *patch.TargetLanguageID
	}
	if patch.IntendedUseID != nil {
		settings.IntendedUseID = *patch.IntendedUseID
	}
	if patch.CountryOfIssue != nil {
		settings.CountryOfIssue = *patch.CountryOfIssue
	}
	if patch.ResetOverride {
		settings.LanguageMultiplierOverride = nil
	} else if patch.LanguageMultiplierOverride != nil {
		if *patch.LanguageMultiplierOverride <= 0 {
			return TranslationSettings{}, fmt.Errorf("%w: language multiplier override must be positive", pricing.ErrInvalidArgument)
		}
		settings.LanguageMultiplierOverride = patch.LanguageMultiplierOverride
	}

	if err := s.Repo.UpdateSettings(ctx, settings); err != nil {
		return TranslationSettings{}, err
	}

	if settings.EffectiveMultiplier() != before {
		if err := s.repriceLines(ctx, quoteID, settings.EffectiveMultiplier()); err != nil {
			return TranslationSettings{}, err
		}
	}
	if err := s.Recalculate(ctx, quoteID); err != nil {
		return TranslationSettings{}, err
	}
	return settings, nil
}

// UpdateAdjustments replaces the quote-level adjustment inputs and re-derives
// totals.
func (s *Service) UpdateAdjustments(ctx context.Context, quoteID string, input AdjustmentsInput) (Pricing, error) {
	price, err := s.Repo.GetPricing(ctx, quoteID)
	if err != nil {
		return Pricing{}, err
	}

	price.IsRush = input.IsRush
	price.DeliveryOptionID = input.DeliveryOptionID
	price.DeliveryFee = 0
	if input.DeliveryOptionID != nil {
		fee, err := s.Ref.DeliveryFee(ctx, *input.DeliveryOptionID)
		if err != nil {
			return Pricing{}, err
		}
		price.DeliveryFee = fee
	}
	price.HasDiscount = input.HasDiscount
	price.DiscountType = input.DiscountType
	price.DiscountValue = input.DiscountValue
	price.HasSurcharge = input.HasSurcharge
	price.SurchargeType = input.SurchargeType
	price.SurchargeValue = input.SurchargeValue
	if input.TaxRate != nil {
		if *input.TaxRate < 0 {
			return Pricing{}, fmt.Errorf("%w: tax rate must not be negative", pricing.ErrInvalidArgument)
		}
		price.TaxRate = *input.TaxRate
	}

	if err := s.Repo.UpdatePricing(ctx, price, price.Version); err != nil {
		return Pricing{}, err
	}
	if err := s.Recalculate(ctx, quoteID); err != nil {
		return Pricing{}, err
	}
	return s.Repo.GetPricing(ctx, quoteID)
}

// Recalculate is the single authoritative totals recomputation. It reads a
// consistent snapshot of line items under a per-quote lock, derives the
// adjustment chain in fixed order, and writes the totals row optimistically.
// Idempotent: with no intervening mutation a second call writes the same
// numbers.
func (s *Service) Recalculate(ctx context.Context, quoteID string) error {
	if quoteID == "" {
		return errors.New("quoteID is required")
	}
	lock := s.quoteLock(quoteID)
	lock.Lock()
	defer lock.Unlock()

	started := time.Now()
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		lastErr = s.recalculateOnce(ctx, quoteID)
		if lastErr == nil || !errors.Is(lastErr, ErrConcurrentModification) {
			break
		}
	}
	if lastErr != nil {
		return lastErr
	}

	metrics.IncRecalculation()
	metrics.ObserveRecalculationDurationMs(float64(time.Since(started).Microseconds()) / 1000.0)
	return nil
}

func (s *Service) recalculateOnce(ctx context.Context, quoteID string) error {
	price, err := s.Repo.GetPricing(ctx, quoteID)
	if err != nil {
		return err
	}
	subtotal, err := s.documentSubtotal(ctx, quoteID)
	if err != nil {
		return err
	}

	totals, err := pricing.ComputeQuoteTotals(pricing.QuoteInput{
		DocumentSubtotal: subtotal,
		IsRush:           price.IsRush,
		DeliveryFee:      price.DeliveryFee,
		HasDiscount:      price.HasDiscount,
		DiscountType:     price.DiscountType,
		DiscountValue:    price.DiscountValue,
		HasSurcharge:     price.HasSurcharge,
		SurchargeType:    price.SurchargeType,
		SurchargeValue:   price.SurchargeValue,
		TaxRate:          price.TaxRate,
	})
	if err != nil {
		return err
	}

	next := price
	next.DocumentSubtotal = totals.DocumentSubtotal
	next.RushFee = totals.RushFee
	next.DiscountAmount = totals.DiscountAmount
	next.SurchargeAmount = totals.SurchargeAmount
	next.PreTaxTotal = totals.PreTaxTotal
	next.TaxAmount = totals.TaxAmount
	next.Total = totals.Total
	// Idempotence: identical totals do not consume a version.
	if next == price {
		return nil
	}
	if err := s.Repo.UpdatePricing(ctx, next, next.Version); err != nil {
		return err
	}

	telemetry.Info("quote.recalculated", map[string]any{
		"quote_id":          quoteID,
		"document_subtotal": totals.DocumentSubtotal,
		"total":             totals.Total,
	})
	return nil
}

// documentSubtotal sums completed, non-superseded record line totals plus
// analyzed group line totals. A file assigned to a group never counts twice:
// the group line supersedes the file's own record.
func (s *Service) documentSubtotal(ctx context.Context, quoteID string) (float64, error) {
	records, err := s.Records.ListByQuote(ctx, quoteID)
	if err != nil {
		return 0, err
	}
	groupList, err := s.Groups.ListGroupsByQuote(ctx, quoteID)
	if err != nil {
		return 0, err
	}
	items, err := s.Groups.ListItemsByQuote(ctx, quoteID)
	if err != nil {
		return 0, err
	}

	groupedFiles := make(map[string]bool, len(items))
	for _, item := range items {
		groupedFiles[item.FileID] = true
	}

	subtotal := 0.0
	for _, record := range records {
		if record.Status != analyses.StatusCompleted {
			continue
		}
		if record.DocumentGroupID != nil {
			continue
		}
		if record.SourceFileID != nil && groupedFiles[*record.SourceFileID] {
			continue
		}
		subtotal += record.LineTotal
	}
	for _, group := range groupList {
		if group.Status != groups.StatusAnalyzed {
			continue
		}
		subtotal += group.LineTotal
	}
	return pricing.RoundCents(subtotal), nil
}

// ApplyCertificationToAll overwrites the certification choice on every
// completed record of the quote. Each record's translation component is
// preserved: the line total shifts by exactly the certification price delta.
// Failures do not roll back succeeded records; they are reported per record.
func (s *Service) ApplyCertificationToAll(ctx context.Context, quoteID string, certificationTypeID *string) error {
	var certPrice *float64
	if certificationTypeID != nil {
		p, err := s.Ref.CertificationPrice(ctx, *certificationTypeID)
		if err != nil {
			return err
		}
		certPrice = &p
	}

	records, err := s.Records.ListByQuote(ctx, quoteID)
	if err != nil {
		return err
	}

	batch := &BatchError{}
	for _, record := range records {
		if record.Status != analyses.StatusCompleted {
			continue
		}
		oldCert := 0.0
		if record.CertificationPrice != nil {
			oldCert = *record.CertificationPrice
		}
		newCert := 0.0
		if certPrice != nil {
			newCert = *certPrice
		}
		newTotal := pricing.RoundCents(record.LineTotal - oldCert + newCert)
		if err := s.Records.UpdateCertification(ctx, record.ID, certificationTypeID, certPrice, newTotal); err != nil {
			batch.Failed = append(batch.Failed, BatchItemError{
				TargetID:    record.ID,
				Code:        "CERTIFICATION_APPLY_FAILED",
				Message:     err.Error(),
				Remediation: "retry_analysis",
			})
			continue
		}
		batch.Succeeded++
	}

	if err := s.Recalculate(ctx, quoteID); err != nil {
		return err
	}
	if len(batch.Failed) > 0 {
		return batch
	}
	return nil
}

// repriceLines recomputes every completed record's and analyzed group's line
// total under a new language multiplier, keeping certification additive.
func (s *Service) repriceLines(ctx context.Context, quoteID string, multiplier float64) error {
	records, err := s.Records.ListByQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	for _, record := range records {
		if record.Status != analyses.StatusCompleted {
			continue
		}
		cert := 0.0
		if record.CertificationPrice != nil {
			cert = *record.CertificationPrice
		}
		total, err := pricing.ComputeLineTotal(pricing.LineInput{
			BillablePages:        record.BillablePages,
			BaseRate:             record.BaseRate,
			LanguageMultiplier:   multiplier,
			ComplexityMultiplier: pricing.ComplexityMultiplier(record.Complexity),
			CertificationPrice:   cert,
		})
		if err != nil {
			return fmt.Errorf("reprice record %s: %w", record.ID, err)
		}
		record.LineTotal = total
		if err := s.Records.Update(ctx, record); err != nil {
			return fmt.Errorf("reprice record %s: %w", record.ID, err)
		}
	}

	groupList, err := s.Groups.ListGroupsByQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	for _, group := range groupList {
		if group.Status != groups.StatusAnalyzed {
			continue
		}
		cert := 0.0
		if group.CertificationPrice != nil {
			cert = *group.CertificationPrice
		}
		total, err := pricing.ComputeLineTotal(pricing.LineInput{
			BillablePages:        group.BillablePages,
			BaseRate:             group.BaseRate,
			LanguageMultiplier:   multiplier,
			ComplexityMultiplier: pricing.ComplexityMultiplier(group.Complexity),
			CertificationPrice:   cert,
		})
		if err != nil {
			return fmt.Errorf("reprice group %s: %w", group.ID, err)
		}
		group.LineTotal = total
		if err := s.Groups.UpdateGroup(ctx, group); err != nil {
			return fmt.Errorf("reprice group %s: %w", group.ID, err)
		}
	}
	return nil
}

func (s *Service) quoteLock(quoteID string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(quoteID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
