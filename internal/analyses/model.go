package analyses

import "time"

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	// StatusTimeout is terminal but distinct from failed: the caller offers a
	// retry, while failed offers manual entry.
	StatusTimeout = "timeout"
)

// AnalysisSource tags where a record came from. Every record is exactly one
// of the two; callers branch on Source() instead of probing nullable fields.
type AnalysisSource string

const (
	SourceFileBacked AnalysisSource = "file"
	SourceManual     AnalysisSource = "manual"
)

// AnalysisRecord is one billable unit of translation work: a file analyzed by
// the oracle, or a staff manual entry not tied to a file.
type AnalysisRecord struct {
	ID              string  `json:"id"`
	QuoteID         string  `json:"quoteId"`
	SourceFileID    *string `json:"sourceFileId,omitempty"`
	DocumentGroupID *string `json:"documentGroupId,omitempty"`
	IsManualEntry   bool    `json:"isManualEntry"`
	IsStaffCreated  bool    `json:"isStaffCreated"`
	CreatedBy       string  `json:"createdBy,omitempty"`

	DetectedLanguageCode string  `json:"detectedLanguageCode"`
	DocumentType         string  `json:"documentType"`
	Complexity           string  `json:"complexity"`
	WordCount            int     `json:"wordCount"`
	PageCount            int     `json:"pageCount"`
	BillablePages        float64 `json:"billablePages"`
	// BaseRate is the effective per-page rate snapshotted when the record is
	// created; later settings changes do not reprice existing records.
	BaseRate            float64  `json:"baseRate"`
	CertificationTypeID *string  `json:"certificationTypeId,omitempty"`
	CertificationPrice  *float64 `json:"certificationPrice,omitempty"`
	LineTotal           float64  `json:"lineTotal"`

	Status       string `json:"status"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Remediation  string `json:"remediation,omitempty"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Source reports which variant this record is.
func (r AnalysisRecord) Source() AnalysisSource {
	if r.IsManualEntry || r.SourceFileID == nil {
		return SourceManual
	}
	return SourceFileBacked
}

// certificationPrice returns the snapshotted certification price or zero.
func (r AnalysisRecord) certificationPrice() float64 {
	if r.CertificationPrice == nil {
		return 0
	}
	return *r.CertificationPrice
}
