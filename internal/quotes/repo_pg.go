package quotes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts the quote, settings, and pricing rows in one transaction.
func (r *PGRepo) Create(ctx context.Context, quote Quote, settings TranslationSettings, pricing Pricing) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const quoteQuery = `
INSERT INTO quotes (id, quote_number, customer_name, customer_email, status, created_at, updated_at)
VALUES ($1, COALESCE((SELECT MAX(quote_number) FROM quotes), 0) + 1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, quoteQuery,
		quote.ID, quote.CustomerName, quote.CustomerEmail, quote.Status, quote.CreatedAt, quote.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert quote: %w", err)
	}

	const settingsQuery = `
INSERT INTO quote_settings (quote_id, source_language_id, target_language_id, intended_use_id, country_of_issue,
language_tier, language_multiplier, language_multiplier_override, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := tx.ExecContext(ctx, settingsQuery,
		quote.ID, settings.SourceLanguageID, settings.TargetLanguageID, settings.IntendedUseID,
		settings.CountryOfIssue, settings.LanguageTier, settings.LanguageMultiplier,
		settings.LanguageMultiplierOverride, settings.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert settings: %w", err)
	}

	const pricingQuery = `
INSERT INTO quote_pricing (quote_id, document_subtotal, is_rush, rush_fee, delivery_option_id, delivery_fee,
has_discount, discount_type, discount_value, discount_amount,
has_surcharge, surcharge_type, surcharge_value, surcharge_amount,
tax_rate, tax_amount, pre_tax_total, total, version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	if _, err := tx.ExecContext(ctx, pricingQuery,
		quote.ID, pricing.DocumentSubtotal, pricing.IsRush, pricing.RushFee, pricing.DeliveryOptionID,
		pricing.DeliveryFee, pricing.HasDiscount, pricing.DiscountType, pricing.DiscountValue,
		pricing.DiscountAmount, pricing.HasSurcharge, pricing.SurchargeType, pricing.SurchargeValue,
		pricing.SurchargeAmount, pricing.TaxRate, pricing.TaxAmount, pricing.PreTaxTotal, pricing.Total,
		pricing.Version, pricing.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert pricing: %w", err)
	}

	return tx.Commit()
}

// GetQuote returns a quote by ID.
func (r *PGRepo) GetQuote(ctx context.Context, quoteID string) (Quote, error) {
	const query = `
SELECT id, quote_number, customer_name, customer_email, status, created_at, updated_at
FROM quotes
WHERE id = $1`
	var q Quote
	err := r.DB.QueryRowContext(ctx, query, quoteID).Scan(
		&q.ID, &q.QuoteNumber, &q.CustomerName, &q.CustomerEmail, &q.Status, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Quote{}, ErrNotFound
		}
		return Quote{}, err
	}
	return q, nil
}

// ListQuotes returns all quotes ordered by quote number.
func (r *PGRepo) ListQuotes(ctx context.Context) ([]Quote, error) {
	const query = `
SELECT id, quote_number, customer_name, customer_email, status, created_at, updated_at
FROM quotes
ORDER BY quote_number`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quote
	for rows.Next() {
		var q Quote
		if err := rows.Scan(&q.ID, &q.QuoteNumber, &q.CustomerName, &q.CustomerEmail, &q.Status, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateQuote replaces the mutable quote fields.
func (r *PGRepo) UpdateQuote(ctx context.Context, quote Quote) error {
	const query = `
UPDATE quotes
SET customer_name = $2,
    customer_email = $3,
    status = $4,
    updated_at = NOW()
WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, quote.ID, quote.CustomerName, quote.CustomerEmail, quote.Status)
	if err != nil {
		return err
	}
	return requireQuoteRow(result)
}

// GetSettings returns the translation settings of a quote.
func (r *PGRepo) GetSettings(ctx context.Context, quoteID string) (TranslationSettings, error) {
	const query = `
SELECT quote_id, source_language_id, target_language_id, intended_use_id, country_of_issue,
language_tier, language_multiplier, language_multiplier_override, updated_at
FROM quote_settings
WHERE quote_id = $1`
	var s TranslationSettings
	var override sql.NullFloat64
	err := r.DB.QueryRowContext(ctx, query, quoteID).Scan(
		&s.QuoteID, &s.SourceLanguageID, &s.TargetLanguageID, &s.IntendedUseID, &s.CountryOfIssue,
		&s.LanguageTier, &s.LanguageMultiplier, &override, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TranslationSettings{}, ErrNotFound
		}
		return TranslationSettings{}, err
	}
	if override.Valid {
		s.LanguageMultiplierOverride = &override.Float64
	}
	return s, nil
}

// UpdateSettings replaces the settings row.
func (r *PGRepo) UpdateSettings(ctx context.Context, settings TranslationSettings) error {
	const query = `
UPDATE quote_settings
SET source_language_id = $2,
    target_language_id = $3,
    intended_use_id = $4,
    country_of_issue = $5,
    language_tier = $6,
    language_multiplier = $7,
    language_multiplier_override = $8,
    updated_at = NOW()
WHERE quote_id = $1`
	result, err := r.DB.ExecContext(ctx, query,
		settings.QuoteID, settings.SourceLanguageID, settings.TargetLanguageID, settings.IntendedUseID,
		settings.CountryOfIssue, settings.LanguageTier, settings.LanguageMultiplier,
		settings.LanguageMultiplierOverride,
	)
	if err != nil {
		return err
	}
	return requireQuoteRow(result)
}

// GetPricing returns the pricing row of a quote.
func (r *PGRepo) GetPricing(ctx context.Context, quoteID string) (Pricing, error) {
	const query = `
SELECT quote_id, document_subtotal, is_rush, rush_fee, delivery_option_id, delivery_fee,
has_discount, discount_type, discount_value, discount_amount,
has_surcharge, surcharge_type, surcharge_value, surcharge_amount,
tax_rate, tax_amount, pre_tax_total, total, version, updated_at
FROM quote_pricing
WHERE quote_id = $1`
	var p Pricing
	var deliveryOptionID, discountType, surchargeType sql.NullString
	err := r.DB.QueryRowContext(ctx, query, quoteID).Scan(
		&p.QuoteID, &p.DocumentSubtotal, &p.IsRush, &p.RushFee, &deliveryOptionID, &p.DeliveryFee,
		&p.HasDiscount, &discountType, &p.DiscountValue, &p.DiscountAmount,
		&p.HasSurcharge, &surchargeType, &p.SurchargeValue, &p.SurchargeAmount,
		&p.TaxRate, &p.TaxAmount, &p.PreTaxTotal, &p.Total, &p.Version, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pricing{}, ErrNotFound
		}
		return Pricing{}, err
	}
	if deliveryOptionID.Valid {
		p.DeliveryOptionID = &deliveryOptionID.String
	}
	p.DiscountType = discountType.String
	p.SurchargeType = surchargeType.String
	return p, nil
}

// UpdatePricing writes the pricing row when the stored version still matches.
// A zero-row update against an existing quote means another writer advanced
// the version first.
func (r *PGRepo) UpdatePricing(ctx context.Context, pricing Pricing, expectedVersion int64) error {
	const query = `
UPDATE quote_pricing
SET document_subtotal = $2,
    is_rush = $3,
    rush_fee = $4,
    delivery_option_id = $5,
    delivery_fee = $6,
    has_discount = $7,
    discount_type = $8,
    discount_value = $9,
    discount_amount = $10,
    has_surcharge = $11,
    surcharge_type = $12,
    surcharge_value = $13,
    surcharge_amount = $14,
    tax_rate = $15,
    tax_amount = $16,
    pre_tax_total = $17,
    total = $18,
    version = version + 1,
    updated_at = NOW()
WHERE quote_id = $1 AND version = $19`
	result, err := r.DB.ExecContext(ctx, query,
		pricing.QuoteID, pricing.DocumentSubtotal, pricing.IsRush, pricing.RushFee,
		pricing.DeliveryOptionID, pricing.DeliveryFee,
		pricing.HasDiscount, nullIfEmpty(pricing.DiscountType), pricing.DiscountValue, pricing.DiscountAmount,
		pricing.HasSurcharge, nullIfEmpty(pricing.SurchargeType), pricing.SurchargeValue, pricing.SurchargeAmount,
		pricing.TaxRate, pricing.TaxAmount, pricing.PreTaxTotal, pricing.Total,
		expectedVersion,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetPricing(ctx, pricing.QuoteID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrConcurrentModification
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func requireQuoteRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
