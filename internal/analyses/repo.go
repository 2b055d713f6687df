package analyses

import "context"

// Repo defines persistence operations for analysis records. Update replaces
// the full row in one statement so edits land atomically.
type Repo interface {
	Create(ctx context.Context, record AnalysisRecord) error
	GetByID(ctx context.Context, recordID string) (AnalysisRecord, error)
	GetBySourceFile(ctx context.Context, fileID string) (AnalysisRecord, error)
	ListByQuote(ctx context.Context, quoteID string) ([]AnalysisRecord, error)
	Update(ctx context.Context, record AnalysisRecord) error
	UpdateCertification(ctx context.Context, recordID string, certificationTypeID *string, certificationPrice *float64, lineTotal float64) error
	Delete(ctx context.Context, recordID string) error
}
