package sourcefiles

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusTimeout    = "timeout"
	// StatusSkipped marks a file whose analysis record was explicitly removed;
	// the file is eligible for re-analysis or a fresh manual entry.
	StatusSkipped = "skipped"
)

// SourceFile is an uploaded document registered against a quote. The byte
// transport is external; we own metadata and the processing status.
type SourceFile struct {
	ID               string    `json:"id"`
	QuoteID          string    `json:"quoteId"`
	FileName         string    `json:"fileName"`
	MimeType         string    `json:"mimeType"`
	SizeBytes        int64     `json:"sizeBytes"`
	StorageKey       string    `json:"-"`
	PageCountHint    int       `json:"pageCountHint"`
	ProcessingStatus string    `json:"processingStatus"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
