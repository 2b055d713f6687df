package groups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"quoteflow-backend/internal/oracle"
	"quoteflow-backend/internal/pricing"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/telemetry"
	"quoteflow-backend/internal/sourcefiles"
)

// Recalculator re-derives quote totals after group membership or pricing
// changes. Implemented by the quotes service; wired in bootstrap.
type Recalculator interface {
	Recalculate(ctx context.Context, quoteID string) error
}

// QuoteSettings supplies the quote-level language multiplier.
type QuoteSettings interface {
	LanguageMultiplier(ctx context.Context, quoteID string) (float64, error)
}

// RecordLinker keeps a file's standalone analysis record pointing at (or away
// from) its group, so the UI can show grouped files as superseded.
type RecordLinker interface {
	LinkGroup(ctx context.Context, fileID string, groupID *string) error
}

// Service owns document group aggregation and pricing.
type Service struct {
	Repo    Repo
	Files   *sourcefiles.Service
	Ref     *refdata.Provider
	Oracle  oracle.Client
	Quotes  QuoteSettings
	Recalc  Recalculator
	Records RecordLinker
}

// CreateInput carries the optional staff-entered attributes of a new group.
// An empty DocumentType means the oracle decides during group analysis.
type CreateInput struct {
	Label               string
	DocumentType        string
	Complexity          string
	CertificationTypeID *string
}

// BatchItemError describes one failed group of a batch analysis.
type BatchItemError struct {
	TargetID    string `json:"targetId"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Remediation string `json:"remediation"`
}

// BatchResult tallies a sequential batch operation.
type BatchResult struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Errors    []BatchItemError `json:"errors,omitempty"`
}

// GroupDetail is a group with its assignments, for read endpoints.
type GroupDetail struct {
	DocumentGroup
	Items []AssignedItem `json:"items"`
}

// Create starts an empty draft group with the next sequence number.
func (s *Service) Create(ctx context.Context, quoteID string, input CreateInput) (DocumentGroup, error) {
	if quoteID == "" {
		return DocumentGroup{}, errors.New("quoteID is required")
	}

	existing, err := s.Repo.ListGroupsByQuote(ctx, quoteID)
	if err != nil {
		return DocumentGroup{}, err
	}
	number := 1
	for _, g := range existing {
		if g.GroupNumber >= number {
			number = g.GroupNumber + 1
		}
	}

	settings, err := s.Ref.Settings(ctx)
	if err != nil {
		return DocumentGroup{}, err
	}

	now := time.Now().UTC()
	group := DocumentGroup{
		ID:           uuid.NewString(),
		QuoteID:      quoteID,
		GroupNumber:  number,
		Label:        input.Label,
		DocumentType: input.DocumentType,
		Complexity:   input.Complexity,
		BaseRate:     settings.BaseRatePerPage,
		Status:       StatusDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if input.CertificationTypeID != nil {
		price, err := s.Ref.CertificationPrice(ctx, *input.CertificationTypeID)
		if err != nil {
			return DocumentGroup{}, err
		}
		group.CertificationTypeID = input.CertificationTypeID
		group.CertificationPrice = &price
	}

	if err := s.Repo.CreateGroup(ctx, group); err != nil {
		return DocumentGroup{}, err
	}
	return group, nil
}

// Get returns a group with its assignments.
func (s *Service) Get(ctx context.Context, groupID string) (GroupDetail, error) {
	group, err := s.Repo.GetGroup(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	items, err := s.Repo.ListItemsByGroup(ctx, groupID)
	if err != nil {
		return GroupDetail{}, err
	}
	return GroupDetail{DocumentGroup: group, Items: items}, nil
}

// ListByQuote returns all groups of a quote with their assignments.
func (s *Service) ListByQuote(ctx context.Context, quoteID string) ([]GroupDetail, error) {
	if quoteID == "" {
		return nil, errors.New("quoteID is required")
	}
	list, err := s.Repo.ListGroupsByQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	out := make([]GroupDetail, 0, len(list))
	for _, group := range list {
		items, err := s.Repo.ListItemsByGroup(ctx, group.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, GroupDetail{DocumentGroup: group, Items: items})
	}
	return out, nil
}

// AssignItem attaches a file (or one page of it) to a group. An item belongs
// to at most one group: any prior assignment of the exact same target is
// removed first, and the donor group re-aggregates from its remaining items.
// A previously analyzed group drops back to has_items because its aggregates
// no longer cover the new member.
func (s *Service) AssignItem(ctx context.Context, groupID, fileID string, pageID *string) (AssignedItem, error) {
	group, err := s.Repo.GetGroup(ctx, groupID)
	if err != nil {
		return AssignedItem{}, err
	}
	file, err := s.Files.Get(ctx, fileID)
	if err != nil {
		return AssignedItem{}, err
	}
	if file.QuoteID != group.QuoteID {
		return AssignedItem{}, fmt.Errorf("file %s does not belong to quote %s: %w", fileID, group.QuoteID, sourcefiles.ErrNotFound)
	}

	donorGroupID := ""
	assigned, err := s.Repo.ListItemsByQuote(ctx, group.QuoteID)
	if err != nil {
		return AssignedItem{}, err
	}
	for _, it := range assigned {
		if it.FileID == fileID && samePage(it.PageID, pageID) {
			donorGroupID = it.GroupID
			break
		}
	}

	if err := s.Repo.RemoveByTarget(ctx, group.QuoteID, fileID, pageID); err != nil {
		return AssignedItem{}, err
	}

	items, err := s.Repo.ListItemsByGroup(ctx, groupID)
	if err != nil {
		return AssignedItem{}, err
	}
	item := AssignedItem{
		ID:            uuid.NewString(),
		GroupID:       groupID,
		QuoteID:       group.QuoteID,
		FileID:        fileID,
		PageID:        pageID,
		SequenceOrder: len(items) + 1,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Repo.CreateItem(ctx, item); err != nil {
		return AssignedItem{}, err
	}

	group.Status = StatusHasItems
	if err := s.Repo.UpdateGroup(ctx, group); err != nil {
		return AssignedItem{}, err
	}

	if donorGroupID != "" && donorGroupID != groupID {
		donor, err := s.Repo.GetGroup(ctx, donorGroupID)
		if err != nil {
			return AssignedItem{}, err
		}
		if err := s.reaggregate(ctx, donor); err != nil {
			return AssignedItem{}, err
		}
	}

	if s.Records != nil && pageID == nil {
		if err := s.Records.LinkGroup(ctx, fileID, &groupID); err != nil {
			telemetry.Error("group.link_record", map[string]any{"file_id": fileID, "error": err.Error()})
		}
	}
	s.triggerRecalc(ctx, group.QuoteID)
	return item, nil
}

// Analyze runs the oracle over every assigned item in sequence, aggregates
// page and word counts, and reprices the group as one line. Staff-entered
// document type and complexity win over the oracle's suggestion.
func (s *Service) Analyze(ctx context.Context, groupID string) (DocumentGroup, error) {
	group, err := s.Repo.GetGroup(ctx, groupID)
	if err != nil {
		return DocumentGroup{}, err
	}
	items, err := s.Repo.ListItemsByGroup(ctx, groupID)
	if err != nil {
		return DocumentGroup{}, err
	}
	if len(items) == 0 {
		return DocumentGroup{}, ErrGroupEmpty
	}

	totalPages := 0
	totalWords := 0
	suggestedType := ""
	suggestedComplexity := ""
	minConfidence := 1.0
	for i := range items {
		item := &items[i]
		file, err := s.Files.Get(ctx, item.FileID)
		if err != nil {
			return DocumentGroup{}, fmt.Errorf("item %s: %w", item.ID, err)
		}
		content, err := s.Files.ReadContent(ctx, file)
		if err != nil {
			return DocumentGroup{}, fmt.Errorf("item %s: read file content: %w", item.ID, err)
		}
		result, err := s.Oracle.AnalyzeDocument(ctx, oracle.AnalyzeInput{
			QuoteID:  group.QuoteID,
			FileID:   file.ID,
			FileName: file.FileName,
			MimeType: file.MimeType,
			Content:  content,
		})
		if err != nil {
			return DocumentGroup{}, fmt.Errorf("item %s: %w", item.ID, err)
		}

		pages := result.PageCount
		if item.PageID != nil {
			// Single-page assignment bills one page regardless of the
			// file's full length.
			pages = 1
		}
		item.PageCount = pages
		item.WordCount = result.WordCount

		totalPages += pages
		totalWords += result.WordCount
		if suggestedType == "" {
			suggestedType = result.DocumentType
		}
		if suggestedComplexity == "" {
			suggestedComplexity = result.Complexity
		}
		if result.Confidence < minConfidence {
			minConfidence = result.Confidence
		}
	}

	// Item counts persist only once every oracle call has succeeded; a failed
	// analysis leaves no partial writes behind.
	for _, item := range items {
		if err := s.Repo.UpdateItem(ctx, item); err != nil {
			return DocumentGroup{}, err
		}
	}

	if group.DocumentType == "" && suggestedType != "" {
		group.DocumentType = suggestedType
		group.IsAISuggested = true
		group.AIConfidence = minConfidence
	}
	if group.Complexity == "" && suggestedComplexity != "" {
		group.Complexity = suggestedComplexity
		group.IsAISuggested = true
		group.AIConfidence = minConfidence
	}

	group.TotalPages = totalPages
	group.TotalWordCount = totalWords
	group.BillablePages = float64(totalPages)
	if err := s.priceGroup(ctx, &group); err != nil {
		return DocumentGroup{}, err
	}

	analyzedAt := time.Now().UTC()
	group.Status = StatusAnalyzed
	group.AnalyzedAt = &analyzedAt
	if err := s.Repo.UpdateGroup(ctx, group); err != nil {
		return DocumentGroup{}, err
	}

	telemetry.Info("group.analyzed", map[string]any{
		"quote_id":    group.QuoteID,
		"group_id":    group.ID,
		"total_pages": totalPages,
		"line_total":  group.LineTotal,
	})
	s.triggerRecalc(ctx, group.QuoteID)
	return group, nil
}

// AnalyzeAll analyzes every group with at least one assigned item, one group
// at a time. A failed group never aborts the rest.
func (s *Service) AnalyzeAll(ctx context.Context, quoteID string) (BatchResult, error) {
	if quoteID == "" {
		return BatchResult{}, errors.New("quoteID is required")
	}
	list, err := s.Repo.ListGroupsByQuote(ctx, quoteID)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, group := range list {
		items, err := s.Repo.ListItemsByGroup(ctx, group.ID)
		if err != nil {
			return result, err
		}
		if len(items) == 0 {
			continue
		}
		if _, err := s.Analyze(ctx, group.ID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, batchItemError(group.ID, err))
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// RemoveItem detaches one item and re-aggregates the group from the remaining
// items' stored counts. An emptied group survives as a draft.
func (s *Service) RemoveItem(ctx context.Context, itemID string) error {
	item, err := s.Repo.GetItem(ctx, itemID)
	if err != nil {
		return err
	}
	group, err := s.Repo.GetGroup(ctx, item.GroupID)
	if err != nil {
		return err
	}
	if err := s.Repo.RemoveItem(ctx, itemID); err != nil {
		return err
	}
	if s.Records != nil && item.PageID == nil {
		if err := s.Records.LinkGroup(ctx, item.FileID, nil); err != nil {
			telemetry.Error("group.unlink_record", map[string]any{"file_id": item.FileID, "error": err.Error()})
		}
	}

	if err := s.reaggregate(ctx, group); err != nil {
		return err
	}
	s.triggerRecalc(ctx, group.QuoteID)
	return nil
}

// reaggregate re-derives a group's totals from its remaining items' stored
// counts after a membership change. An emptied group survives as a zeroed
// draft; an analyzed group reprices from what is left.
func (s *Service) reaggregate(ctx context.Context, group DocumentGroup) error {
	remaining, err := s.Repo.ListItemsByGroup(ctx, group.ID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		group.Status = StatusDraft
		group.TotalPages = 0
		group.TotalWordCount = 0
		group.BillablePages = 0
		group.LineTotal = 0
		group.AnalyzedAt = nil
	} else if group.Status == StatusAnalyzed {
		totalPages := 0
		totalWords := 0
		for _, rem := range remaining {
			totalPages += rem.PageCount
			totalWords += rem.WordCount
		}
		group.TotalPages = totalPages
		group.TotalWordCount = totalWords
		group.BillablePages = float64(totalPages)
		if err := s.priceGroup(ctx, &group); err != nil {
			return err
		}
	}
	return s.Repo.UpdateGroup(ctx, group)
}

// Delete removes a group and its assignments. The underlying files survive
// and return to the ungrouped pool.
func (s *Service) Delete(ctx context.Context, groupID string) error {
	group, err := s.Repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	items, err := s.Repo.ListItemsByGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteGroup(ctx, groupID); err != nil {
		return err
	}
	if s.Records != nil {
		for _, item := range items {
			if item.PageID != nil {
				continue
			}
			if err := s.Records.LinkGroup(ctx, item.FileID, nil); err != nil {
				telemetry.Error("group.unlink_record", map[string]any{"file_id": item.FileID, "error": err.Error()})
			}
		}
	}
	s.triggerRecalc(ctx, group.QuoteID)
	return nil
}

// SetCertification re-snapshots the certification choice and shifts the line
// total by the price difference, keeping the translation component intact.
func (s *Service) SetCertification(ctx context.Context, groupID string, certificationTypeID *string) (DocumentGroup, error) {
	group, err := s.Repo.GetGroup(ctx, groupID)
	if err != nil {
		return DocumentGroup{}, err
	}

	translation := pricing.RoundCents(group.LineTotal - group.certificationPrice())
	if certificationTypeID == nil {
		group.CertificationTypeID = nil
		group.CertificationPrice = nil
		group.LineTotal = translation
	} else {
		price, err := s.Ref.CertificationPrice(ctx, *certificationTypeID)
		if err != nil {
			return DocumentGroup{}, err
		}
		group.CertificationTypeID = certificationTypeID
		group.CertificationPrice = &price
		group.LineTotal = pricing.RoundCents(translation + price)
	}

	if err := s.Repo.UpdateGroup(ctx, group); err != nil {
		return DocumentGroup{}, err
	}
	s.triggerRecalc(ctx, group.QuoteID)
	return group, nil
}

func (s *Service) priceGroup(ctx context.Context, group *DocumentGroup) error {
	langMult, err := s.Quotes.LanguageMultiplier(ctx, group.QuoteID)
	if err != nil {
		return err
	}
	total, err := pricing.ComputeLineTotal(pricing.LineInput{
		BillablePages:        group.BillablePages,
		BaseRate:             group.BaseRate,
		LanguageMultiplier:   langMult,
		ComplexityMultiplier: pricing.ComplexityMultiplier(group.Complexity),
		CertificationPrice:   group.certificationPrice(),
	})
	if err != nil {
		return err
	}
	group.LineTotal = total
	return nil
}

func (s *Service) triggerRecalc(ctx context.Context, quoteID string) {
	if s.Recalc == nil {
		return
	}
	if err := s.Recalc.Recalculate(ctx, quoteID); err != nil {
		telemetry.Error("quote.recalculate", map[string]any{"quote_id": quoteID, "error": err.Error()})
	}
}

func batchItemError(targetID string, err error) BatchItemError {
	code := "GROUP_ANALYSIS_FAILED"
	remediation := "retry_analysis"
	if oracle.IsTimeout(err) {
		code = "ORACLE_TIMEOUT"
	}
	return BatchItemError{
		TargetID:    targetID,
		Code:        code,
		Message:     err.Error(),
		Remediation: remediation,
	}
}
