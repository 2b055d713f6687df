package analyses

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const recordColumns = `
id, quote_id, source_file_id, document_group_id, is_manual_entry, is_staff_created, created_by,
detected_language_code, document_type, complexity, word_count, page_count, billable_pages,
base_rate, certification_type_id, certification_price, line_total,
status, error_code, error_message, remediation,
created_at, updated_at, started_at, completed_at`

// Create inserts a new analysis record.
func (r *PGRepo) Create(ctx context.Context, record AnalysisRecord) error {
	const query = `
INSERT INTO analysis_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`
	_, err := r.DB.ExecContext(ctx, query,
		record.ID,
		record.QuoteID,
		record.SourceFileID,
		record.DocumentGroupID,
		record.IsManualEntry,
		record.IsStaffCreated,
		record.CreatedBy,
		record.DetectedLanguageCode,
		record.DocumentType,
		record.Complexity,
		record.WordCount,
		record.PageCount,
		record.BillablePages,
		record.BaseRate,
		record.CertificationTypeID,
		record.CertificationPrice,
		record.LineTotal,
		record.Status,
		record.ErrorCode,
		record.ErrorMessage,
		record.Remediation,
		record.CreatedAt,
		record.UpdatedAt,
		record.StartedAt,
		record.CompletedAt,
	)
	return err
}

// GetByID returns a record by ID.
func (r *PGRepo) GetByID(ctx context.Context, recordID string) (AnalysisRecord, error) {
	const query = `
SELECT ` + recordColumns + `
FROM analysis_records
WHERE id = $1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, recordID))
}

// GetBySourceFile returns the record backed by the given file, if any.
func (r *PGRepo) GetBySourceFile(ctx context.Context, fileID string) (AnalysisRecord, error) {
	const query = `
SELECT ` + recordColumns + `
FROM analysis_records
WHERE source_file_id = $1
ORDER BY created_at DESC
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, fileID))
}

// ListByQuote returns all records for a quote ordered by creation time.
func (r *PGRepo) ListByQuote(ctx context.Context, quoteID string) ([]AnalysisRecord, error) {
	const query = `
SELECT ` + recordColumns + `
FROM analysis_records
WHERE quote_id = $1
ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		record, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Update replaces all mutable fields of a record in one statement.
func (r *PGRepo) Update(ctx context.Context, record AnalysisRecord) error {
	const query = `
UPDATE analysis_records
SET detected_language_code = $2,
    document_type = $3,
    complexity = $4,
    word_count = $5,
    page_count = $6,
    billable_pages = $7,
    base_rate = $8,
    certification_type_id = $9,
    certification_price = $10,
    line_total = $11,
    status = $12,
    error_code = $13,
    error_message = $14,
    remediation = $15,
    document_group_id = $16,
    started_at = $17,
    completed_at = $18,
    updated_at = NOW()
WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query,
		record.ID,
		record.DetectedLanguageCode,
		record.DocumentType,
		record.Complexity,
		record.WordCount,
		record.PageCount,
		record.BillablePages,
		record.BaseRate,
		record.CertificationTypeID,
		record.CertificationPrice,
		record.LineTotal,
		record.Status,
		record.ErrorCode,
		record.ErrorMessage,
		record.Remediation,
		record.DocumentGroupID,
		record.StartedAt,
		record.CompletedAt,
	)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// UpdateCertification replaces the certification snapshot and line total.
func (r *PGRepo) UpdateCertification(ctx context.Context, recordID string, certificationTypeID *string, certificationPrice *float64, lineTotal float64) error {
	const query = `
UPDATE analysis_records
SET certification_type_id = $2,
    certification_price = $3,
    line_total = $4,
    updated_at = NOW()
WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, recordID, certificationTypeID, certificationPrice, lineTotal)
	if err != nil {
		return err
	}
	return requireRow(result)
}

// Delete removes a record.
func (r *PGRepo) Delete(ctx context.Context, recordID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM analysis_records WHERE id = $1`, recordID)
	if err != nil {
		return err
	}
	return requireRow(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (AnalysisRecord, error) {
	var rec AnalysisRecord
	var sourceFileID, groupID, certTypeID sql.NullString
	var certPrice sql.NullFloat64
	var errorCode, errorMessage, remediation sql.NullString
	var startedAt, completedAt sql.NullTime
	err := row.Scan(
		&rec.ID,
		&rec.QuoteID,
		&sourceFileID,
		&groupID,
		&rec.IsManualEntry,
		&rec.IsStaffCreated,
		&rec.CreatedBy,
		&rec.DetectedLanguageCode,
		&rec.DocumentType,
		&rec.Complexity,
		&rec.WordCount,
		&rec.PageCount,
		&rec.BillablePages,
		&rec.BaseRate,
		&certTypeID,
		&certPrice,
		&rec.LineTotal,
		&rec.Status,
		&errorCode,
		&errorMessage,
		&remediation,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AnalysisRecord{}, ErrNotFound
		}
		return AnalysisRecord{}, err
	}
	if sourceFileID.Valid {
		rec.SourceFileID = &sourceFileID.String
	}
	if groupID.Valid {
		rec.DocumentGroupID = &groupID.String
	}
	if certTypeID.Valid {
		rec.CertificationTypeID = &certTypeID.String
	}
	if certPrice.Valid {
		rec.CertificationPrice = &certPrice.Float64
	}
	if errorCode.Valid {
		rec.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		rec.ErrorMessage = errorMessage.String
	}
	if remediation.Valid {
		rec.Remediation = remediation.String
	}
	if startedAt.Valid {
		rec.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		rec.CompletedAt = &completedAt.Time
	}
	return rec, nil
}

func requireRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
