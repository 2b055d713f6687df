package refdata

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// ListLanguages returns all language rows.
func (r *PGRepo) ListLanguages(ctx context.Context) ([]Language, error) {
	const query = `
SELECT id, code, name, tier, multiplier
FROM languages
ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Language
	for rows.Next() {
		var l Language
		if err := rows.Scan(&l.ID, &l.Code, &l.Name, &l.Tier, &l.Multiplier); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListCertificationTypes returns all certification type rows.
func (r *PGRepo) ListCertificationTypes(ctx context.Context) ([]CertificationType, error) {
	const query = `
SELECT id, name, price, is_default
FROM certification_types
ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CertificationType
	for rows.Next() {
		var c CertificationType
		if err := rows.Scan(&c.ID, &c.Name, &c.Price, &c.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListDeliveryOptions returns all delivery option rows.
func (r *PGRepo) ListDeliveryOptions(ctx context.Context) ([]DeliveryOption, error) {
	const query = `
SELECT id, name, price
FROM delivery_options
ORDER BY price`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DeliveryOption
	for rows.Next() {
		var d DeliveryOption
		if err := rows.Scan(&d.ID, &d.Name, &d.Price); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetPricingSettings returns the singleton pricing settings row.
func (r *PGRepo) GetPricingSettings(ctx context.Context) (PricingSettings, error) {
	const query = `
SELECT base_rate_per_page, tax_rate
FROM pricing_settings
WHERE id = 1`
	var s PricingSettings
	err := r.DB.QueryRowContext(ctx, query).Scan(&s.BaseRatePerPage, &s.TaxRate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PricingSettings{}, ErrReferenceNotFound
		}
		return PricingSettings{}, err
	}
	return s, nil
}
