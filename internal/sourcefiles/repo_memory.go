package sourcefiles

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores source files in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]SourceFile
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]SourceFile)}
}

// Create stores the file.
func (r *MemoryRepo) Create(ctx context.Context, file SourceFile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[file.ID] = file
	return nil
}

// GetByID returns a file by its ID.
func (r *MemoryRepo) GetByID(ctx context.Context, fileID string) (SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return SourceFile{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	file, ok := r.byID[fileID]
	if !ok {
		return SourceFile{}, ErrNotFound
	}
	return file, nil
}

// ListByQuote returns all files for a quote ordered by creation time.
func (r *MemoryRepo) ListByQuote(ctx context.Context, quoteID string) ([]SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []SourceFile
	for _, f := range r.byID {
		if f.QuoteID == quoteID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// UpdateStatus sets the processing status of a file.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, fileID, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	file, ok := r.byID[fileID]
	if !ok {
		return ErrNotFound
	}
	file.ProcessingStatus = status
	file.UpdatedAt = time.Now().UTC()
	r.byID[fileID] = file
	return nil
}
