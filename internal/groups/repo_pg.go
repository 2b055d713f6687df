package groups

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

const groupColumns = `
id, quote_id, group_number, label, document_type, complexity,
total_pages, total_word_count, billable_pages, base_rate,
certification_type_id, certification_price, line_total,
is_ai_suggested, ai_confidence, status,
created_at, updated_at, analyzed_at`

const itemColumns = `
id, group_id, quote_id, file_id, page_id, sequence_order, page_count, word_count, created_at`

// CreateGroup inserts a new group.
func (r *PGRepo) CreateGroup(ctx context.Context, group DocumentGroup) error {
	const query = `
INSERT INTO document_groups (` + groupColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.DB.ExecContext(ctx, query,
		group.ID,
		group.QuoteID,
		group.GroupNumber,
		group.Label,
		group.DocumentType,
		group.Complexity,
		group.TotalPages,
		group.TotalWordCount,
		group.BillablePages,
		group.BaseRate,
		group.CertificationTypeID,
		group.CertificationPrice,
		group.LineTotal,
		group.IsAISuggested,
		group.AIConfidence,
		group.Status,
		group.CreatedAt,
		group.UpdatedAt,
		group.AnalyzedAt,
	)
	return err
}

// GetGroup returns a group by ID.
func (r *PGRepo) GetGroup(ctx context.Context, groupID string) (DocumentGroup, error) {
	const query = `
SELECT ` + groupColumns + `
FROM document_groups
WHERE id = $1`
	return r.scanGroup(r.DB.QueryRowContext(ctx, query, groupID))
}

// ListGroupsByQuote returns all groups for a quote ordered by group number.
func (r *PGRepo) ListGroupsByQuote(ctx context.Context, quoteID string) ([]DocumentGroup, error) {
	const query = `
SELECT ` + groupColumns + `
FROM document_groups
WHERE quote_id = $1
ORDER BY group_number`
	rows, err := r.DB.QueryContext(ctx, query, quoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentGroup
	for rows.Next() {
		group, err := r.scanGroup(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, group)
	}
	return out, rows.Err()
}

// UpdateGroup replaces all mutable fields of a group in one statement.
func (r *PGRepo) UpdateGroup(ctx context.Context, group DocumentGroup) error {
	const query = `
UPDATE document_groups
SET label = $2,
    document_type = $3,
    complexity = $4,
    total_pages = $5,
    total_word_count = $6,
    billable_pages = $7,
    base_rate = $8,
    certification_type_id = $9,
    certification_price = $10,
    line_total = $11,
    is_ai_suggested = $12,
    ai_confidence = $13,
    status = $14,
    analyzed_at = $15,
    updated_at = NOW()
WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query,
		group.ID,
		group.Label,
		group.DocumentType,
		group.Complexity,
		group.TotalPages,
		group.TotalWordCount,
		group.BillablePages,
		group.BaseRate,
		group.CertificationTypeID,
		group.CertificationPrice,
		group.LineTotal,
		group.IsAISuggested,
		group.AIConfidence,
		group.Status,
		group.AnalyzedAt,
	)
	if err != nil {
		return err
	}
	return requireGroupRow(result)
}

// DeleteGroup removes assignments first, then the group, in one transaction.
func (r *PGRepo) DeleteGroup(ctx context.Context, groupID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM group_items WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("delete group items: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM document_groups WHERE id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if err := requireGroupRow(result); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateItem inserts a new assignment.
func (r *PGRepo) CreateItem(ctx context.Context, item AssignedItem) error {
	const query = `
INSERT INTO group_items (` + itemColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.DB.ExecContext(ctx, query,
		item.ID,
		item.GroupID,
		item.QuoteID,
		item.FileID,
		item.PageID,
		item.SequenceOrder,
		item.PageCount,
		item.WordCount,
		item.CreatedAt,
	)
	return err
}

// GetItem returns an assignment by ID.
func (r *PGRepo) GetItem(ctx context.Context, itemID string) (AssignedItem, error) {
	const query = `
SELECT ` + itemColumns + `
FROM group_items
WHERE id = $1`
	return r.scanItem(r.DB.QueryRowContext(ctx, query, itemID))
}

// UpdateItem replaces the mutable fields of an assignment.
func (r *PGRepo) UpdateItem(ctx context.Context, item AssignedItem) error {
	const query = `
UPDATE group_items
SET sequence_order = $2,
    page_count = $3,
    word_count = $4
WHERE id = $1`
	result, err := r.DB.ExecContext(ctx, query, item.ID, item.SequenceOrder, item.PageCount, item.WordCount)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// ListItemsByGroup returns a group's assignments in sequence order.
func (r *PGRepo) ListItemsByGroup(ctx context.Context, groupID string) ([]AssignedItem, error) {
	const query = `
SELECT ` + itemColumns + `
FROM group_items
WHERE group_id = $1
ORDER BY sequence_order`
	return r.queryItems(ctx, query, groupID)
}

// ListItemsByQuote returns all assignments across a quote's groups.
func (r *PGRepo) ListItemsByQuote(ctx context.Context, quoteID string) ([]AssignedItem, error) {
	const query = `
SELECT ` + itemColumns + `
FROM group_items
WHERE quote_id = $1
ORDER BY group_id, sequence_order`
	return r.queryItems(ctx, query, quoteID)
}

// RemoveItem deletes one assignment.
func (r *PGRepo) RemoveItem(ctx context.Context, itemID string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM group_items WHERE id = $1`, itemID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrItemNotFound
	}
	return nil
}

// RemoveByTarget deletes any assignment of the exact file/page target within
// the quote. Missing targets are not an error.
func (r *PGRepo) RemoveByTarget(ctx context.Context, quoteID, fileID string, pageID *string) error {
	const query = `
DELETE FROM group_items
WHERE quote_id = $1 AND file_id = $2 AND page_id IS NOT DISTINCT FROM $3`
	_, err := r.DB.ExecContext(ctx, query, quoteID, fileID, pageID)
	return err
}

func (r *PGRepo) queryItems(ctx context.Context, query string, arg any) ([]AssignedItem, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AssignedItem
	for rows.Next() {
		item, err := r.scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanGroup(row rowScanner) (DocumentGroup, error) {
	var g DocumentGroup
	var certTypeID sql.NullString
	var certPrice sql.NullFloat64
	var analyzedAt sql.NullTime
	err := row.Scan(
		&g.ID,
		&g.QuoteID,
		&g.GroupNumber,
		&g.Label,
		&g.DocumentType,
		&g.Complexity,
		&g.TotalPages,
		&g.TotalWordCount,
		&g.BillablePages,
		&g.BaseRate,
		&certTypeID,
		&certPrice,
		&g.LineTotal,
		&g.IsAISuggested,
		&g.AIConfidence,
		&g.Status,
		&g.CreatedAt,
		&g.UpdatedAt,
		&analyzedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DocumentGroup{}, ErrGroupNotFound
		}
		return DocumentGroup{}, err
	}
	if certTypeID.Valid {
		g.CertificationTypeID = &certTypeID.String
	}
	if certPrice.Valid {
		g.CertificationPrice = &certPrice.Float64
	}
	if analyzedAt.Valid {
		g.AnalyzedAt = &analyzedAt.Time
	}
	return g, nil
}

func (r *PGRepo) scanItem(row rowScanner) (AssignedItem, error) {
	var item AssignedItem
	var pageID sql.NullString
	err := row.Scan(
		&item.ID,
		&item.GroupID,
		&item.QuoteID,
		&item.FileID,
		&pageID,
		&item.SequenceOrder,
		&item.PageCount,
		&item.WordCount,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AssignedItem{}, ErrItemNotFound
		}
		return AssignedItem{}, err
	}
	if pageID.Valid {
		item.PageID = &pageID.String
	}
	return item, nil
}

func requireGroupRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrGroupNotFound
	}
	return nil
}
