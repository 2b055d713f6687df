package sourcefiles

import (
	"context"
	"database/sql"
	"errors"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new source file row.
func (r *PGRepo) Create(ctx context.Context, file SourceFile) error {
	const query = `
INSERT INTO source_files (id, quote_id, file_name, mime_type, size_bytes, storage_key, page_count_hint, processing_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		file.ID,
		file.QuoteID,
		file.FileName,
		file.MimeType,
		file.SizeBytes,
		file.StorageKey,
		file.PageCountHint,
		file.ProcessingStatus,
		file.CreatedAt,
	)
	return err
}

// GetByID returns a file by ID.
func (r *PGRepo) GetByID(ctx context.Context, fileID string) (SourceFile, error) {
	const query = `
SELECT id, quote_id, file_name, mime_type, size_bytes, storage_key, page_count_hint, processing_status, created_at, updated_at
FROM source_files
WHERE id = $1`
	var f SourceFile
	err := r.DB.QueryRowContext(ctx, query, fileID).Scan(
		&f.ID,
		&f.QuoteID,
		&f.FileName,
		&f.MimeType,
		&f.SizeBytes,
		&f.StorageKey,
		&f.PageCountHint,
		&f.ProcessingStatus,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SourceFile{}, ErrNotFound
		}
		return SourceFile{}, err
	}
	return f, nil
}

// ListByQuote returns all files for a quote ordered by creation time.
func (r *PGRepo) ListByQuote(ctx context.Context, quoteID string) ([]SourceFile, error) {
	const query = `
SELECT id, quote_id, file_name, mime_type, size_bytes, storage_key, page_count_hint, processing_status, created_at, updated_at
FROM source_files
WHERE quote_id = $1
ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceFile
	for rows.Next() {
		var f SourceFile
		if err := rows.Scan(
			&f.ID,
			&f.QuoteID,
			&f.FileName,
			&f.MimeType,
			&f.SizeBytes,
			&f.StorageKey,
			&f.PageCountHint,
			&f.ProcessingStatus,
			&f.CreatedAt,
			&f.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateStatus sets the processing status of a file.
func (r *PGRepo) UpdateStatus(ctx context.Context, fileID, status string) error {
	const query = `
UPDATE source_files
SET processing_status = $2, updated_at = NOW()
WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, fileID, status)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
