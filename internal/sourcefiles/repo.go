package sourcefiles

import "context"

// Repo defines persistence operations for source files.
type Repo interface {
	Create(ctx context.Context, file SourceFile) error
	GetByID(ctx context.Context, fileID string) (SourceFile, error)
	ListByQuote(ctx context.Context, quoteID string) ([]SourceFile, error)
	UpdateStatus(ctx context.Context, fileID, status string) error
}
