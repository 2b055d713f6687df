package groups

import "time"

const (
	StatusDraft    = "draft"
	StatusHasItems = "has_items"
	StatusAnalyzed = "analyzed"
)

// DocumentGroup bundles several files or pages into one billable document,
// e.g. the front and back scan of an ID card. Totals are aggregated across
// the assigned items and priced like a single analysis record.
type DocumentGroup struct {
	ID                  string     `json:"id"`
	QuoteID             string     `json:"quoteId"`
	GroupNumber         int        `json:"groupNumber"`
	Label               string     `json:"label"`
	DocumentType        string     `json:"documentType"`
	Complexity          string     `json:"complexity"`
	TotalPages          int        `json:"totalPages"`
	TotalWordCount      int        `json:"totalWordCount"`
	BillablePages       float64    `json:"billablePages"`
	BaseRate            float64    `json:"baseRate"`
	CertificationTypeID *string    `json:"certificationTypeId"`
	CertificationPrice  *float64   `json:"certificationPrice"`
	LineTotal           float64    `json:"lineTotal"`
	IsAISuggested       bool       `json:"isAiSuggested"`
	AIConfidence        float64    `json:"aiConfidence"`
	Status              string     `json:"status"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
	AnalyzedAt          *time.Time `json:"analyzedAt,omitempty"`
}

func (g DocumentGroup) certificationPrice() float64 {
	if g.CertificationPrice == nil {
		return 0
	}
	return *g.CertificationPrice
}

// AssignedItem links one file (or one page of a file) to a group. PageCount
// and WordCount hold the per-item share of the last group analysis so
// membership changes can re-aggregate without calling the oracle again.
type AssignedItem struct {
	ID            string    `json:"id"`
	GroupID       string    `json:"groupId"`
	QuoteID       string    `json:"quoteId"`
	FileID        string    `json:"fileId"`
	PageID        *string   `json:"pageId,omitempty"`
	SequenceOrder int       `json:"sequenceOrder"`
	PageCount     int       `json:"pageCount"`
	WordCount     int       `json:"wordCount"`
	CreatedAt     time.Time `json:"createdAt"`
}
