package analyses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores analysis records in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]AnalysisRecord
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]AnalysisRecord)}
}

// Create stores the record.
func (r *MemoryRepo) Create(ctx context.Context, record AnalysisRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[record.ID] = record
	return nil
}

// GetByID returns a record by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, recordID string) (AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.byID[recordID]
	if !ok {
		return AnalysisRecord{}, ErrNotFound
	}
	return record, nil
}

// GetBySourceFile returns the record backed by the given file, if any.
func (r *MemoryRepo) GetBySourceFile(ctx context.Context, fileID string) (AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return AnalysisRecord{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, record := range r.byID {
		if record.SourceFileID != nil && *record.SourceFileID == fileID {
			return record, nil
		}
	}
	return AnalysisRecord{}, ErrNotFound
}

// ListByQuote returns all records for a quote ordered by creation time.
func (r *MemoryRepo) ListByQuote(ctx context.Context, quoteID string) ([]AnalysisRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []AnalysisRecord
	for _, record := range r.byID {
		if record.QuoteID == quoteID {
			out = append(out, record)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Update replaces the full record.
func (r *MemoryRepo) Update(ctx context.Context, record AnalysisRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[record.ID]; !ok {
		return ErrNotFound
	}
	record.UpdatedAt = time.Now().UTC()
	r.byID[record.ID] = record
	return nil
}

// UpdateCertification replaces the certification snapshot and line total.
func (r *MemoryRepo) UpdateCertification(ctx context.Context, recordID string, certificationTypeID *string, certificationPrice *float64, lineTotal float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byID[recordID]
	if !ok {
		return ErrNotFound
	}
	record.CertificationTypeID = certificationTypeID
	record.CertificationPrice = certificationPrice
	record.LineTotal = lineTotal
	record.UpdatedAt = time.Now().UTC()
	r.byID[recordID] = record
	return nil
}

// Delete removes a record.
func (r *MemoryRepo) Delete(ctx context.Context, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[recordID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, recordID)
	return nil
}
