package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"quoteflow-backend/internal/oracle"
	"quoteflow-backend/internal/pricing"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/metrics"
	"quoteflow-backend/internal/shared/telemetry"
	"quoteflow-backend/internal/sourcefiles"
)

// Recalculator re-derives quote totals after a record mutation. Implemented by
// the quotes service; wired in bootstrap.
type Recalculator interface {
	Recalculate(ctx context.Context, quoteID string) error
}

// QuoteSettings supplies the quote-level language multiplier (tier default or
// staff override).
type QuoteSettings interface {
	LanguageMultiplier(ctx context.Context, quoteID string) (float64, error)
}

// BillingRule optionally overrides billable pages for a document type. The
// second return is false when no rule applies and the raw page count is used.
type BillingRule func(documentType string, pageCount int) (float64, bool)

// Service owns the analysis record lifecycle.
type Service struct {
	Repo         Repo
	Files        *sourcefiles.Service
	Ref          *refdata.Provider
	Oracle       oracle.Client
	Quotes       QuoteSettings
	Recalc       Recalculator
	BillingRules BillingRule
}

// ManualInput carries staff-entered fields for a record without a file.
type ManualInput struct {
	DetectedLanguageCode string
	DocumentType         string
	Complexity           string
	WordCount            int
	PageCount            int
	BillablePages        float64
	CertificationTypeID  *string
}

// Patch is a partial edit; nil fields are left unchanged.
type Patch struct {
	DetectedLanguageCode *string
	DocumentType         *string
	Complexity           *string
	WordCount            *int
	PageCount            *int
	BillablePages        *float64
	CertificationTypeID  *string
	ClearCertification   bool
}

// BatchItemError describes one failed item of a batch operation.
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

// StartAnalysis creates (or, for re-analysis, replaces) the pending record for
// a file and completes it asynchronously against the oracle. Records are
// upserted per file: a completed, failed or timed-out record is overwritten,
// a record still processing is returned as-is.
func (s *Service) StartAnalysis(ctx context.Context, fileID string) (AnalysisRecord, error) {
	if fileID == "" {
		return AnalysisRecord{}, errors.New("fileID is required")
	}
	file, err := s.Files.Get(ctx, fileID)
	if err != nil {
		return AnalysisRecord{}, err
	}

	if existing, err := s.Repo.GetBySourceFile(ctx, fileID); err == nil {
		switch existing.Status {
		case StatusPending, StatusProcessing:
			return existing, ErrAnalysisInProgress
		default:
			if err := s.Repo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return AnalysisRecord{}, err
			}
		}
	} else if !errors.Is(err, ErrNotFound) {
		return AnalysisRecord{}, err
	}

	record, err := s.newFileRecord(ctx, file)
	if err != nil {
		return AnalysisRecord{}, err
	}
	if err := s.Repo.Create(ctx, record); err != nil {
		return AnalysisRecord{}, err
	}
	if err := s.Files.Repo.UpdateStatus(ctx, fileID, sourcefiles.StatusProcessing); err != nil {
		return AnalysisRecord{}, err
	}

	go s.completeAnalysis(context.Background(), record.ID)

	return record, nil
}

// Reanalyze re-invokes the oracle for a file, replacing any terminal record.
func (s *Service) Reanalyze(ctx context.Context, fileID string) (AnalysisRecord, error) {
	return s.StartAnalysis(ctx, fileID)
}

// AnalyzeSelected runs analysis over the chosen files one at a time. A failure
// on one file never aborts the rest; the result tallies both outcomes.
func (s *Service) AnalyzeSelected(ctx context.Context, quoteID string, fileIDs []string) (BatchResult, error) {
	if quoteID == "" {
		return BatchResult{}, errors.New("quoteID is required")
	}
	var result BatchResult
	for _, fileID := range fileIDs {
		record, err := s.analyzeSync(ctx, quoteID, fileID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, batchItemError(fileID, err))
			continue
		}
		if record.Status != StatusCompleted {
			result.Failed++
			result.Errors = append(result.Errors, BatchItemError{
				TargetID:    fileID,
				Code:        record.ErrorCode,
				Message:     record.ErrorMessage,
				Remediation: record.Remediation,
			})
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// CreateManual records a staff-entered billable unit with no backing file and
// prices it through the same calculator as analyzed files.
func (s *Service) CreateManual(ctx context.Context, quoteID string, input ManualInput, staffID string) (AnalysisRecord, error) {
	if quoteID == "" || staffID == "" {
		return AnalysisRecord{}, errors.New("quoteID and staffID are required")
	}
	if input.PageCount < 1 {
		return AnalysisRecord{}, fmt.Errorf("%w: page count must be at least 1", pricing.ErrInvalidArgument)
	}
	if input.WordCount < 0 {
		return AnalysisRecord{}, fmt.Errorf("%w: word count must not be negative", pricing.ErrInvalidArgument)
	}

	settings, err := s.Ref.Settings(ctx)
	if err != nil {
		return AnalysisRecord{}, err
	}

	now := time.Now().UTC()
	record := AnalysisRecord{
		ID:                   uuid.NewString(),
		QuoteID:              quoteID,
		IsManualEntry:        true,
		IsStaffCreated:       true,
		CreatedBy:            staffID,
		DetectedLanguageCode: input.DetectedLanguageCode,
		DocumentType:         input.DocumentType,
		Complexity:           input.Complexity,
		WordCount:            input.WordCount,
		PageCount:            input.PageCount,
		BillablePages:        input.BillablePages,
		BaseRate:             settings.BaseRatePerPage,
		Status:               StatusCompleted,
		CreatedAt:            now,
		UpdatedAt:            now,
		CompletedAt:          &now,
	}
	if record.BillablePages == 0 {
		record.BillablePages = float64(input.PageCount)
	}
	if input.CertificationTypeID != nil {
		price, err := s.Ref.CertificationPrice(ctx, *input.CertificationTypeID)
		if err != nil {
			return AnalysisRecord{}, err
		}
		record.CertificationTypeID = input.CertificationTypeID
		record.CertificationPrice = &price
	}

	if err := s.priceRecord(ctx, &record); err != nil {
		return AnalysisRecord{}, err
	}
	if err := s.Repo.Create(ctx, record); err != nil {
		return AnalysisRecord{}, err
	}
	s.triggerRecalc(ctx, quoteID)
	return record, nil
}

// Edit applies a partial update, re-derives the line total from the updated
// fields, and persists everything as one row write.
func (s *Service) Edit(ctx context.Context, recordID string, patch Patch) (AnalysisRecord, error) {
	if recordID == "" {
		return AnalysisRecord{}, errors.New("recordID is required")
	}
	record, err := s.Repo.GetByID(ctx, recordID)
	if err != nil {
		return AnalysisRecord{}, err
	}

	if patch.DetectedLanguageCode != nil {
		record.DetectedLanguageCode = *patch.DetectedLanguageCode
	}
	if patch.DocumentType != nil {
		record.DocumentType = *patch.DocumentType
	}
	if patch.Complexity != nil {
		record.Complexity = *patch.Complexity
	}
	if patch.WordCount != nil {
		if *patch.WordCount < 0 {
			return AnalysisRecord{}, fmt.Errorf("%w: word count must not be negative", pricing.ErrInvalidArgument)
		}
		record.WordCount = *patch.WordCount
	}
	if patch.PageCount != nil {
		if *patch.PageCount < 1 {
			return AnalysisRecord{}, fmt.Errorf("%w: page count must be at least 1", pricing.ErrInvalidArgument)
		}
		record.PageCount = *patch.PageCount
	}
	if patch.BillablePages != nil {
		if err := pricing.ValidateBillablePages(*patch.BillablePages); err != nil {
			return AnalysisRecord{}, err
		}
		record.BillablePages = *patch.BillablePages
	}
	if patch.ClearCertification {
		record.CertificationTypeID = nil
		record.CertificationPrice = nil
	} else if patch.CertificationTypeID != nil {
		price, err := s.Ref.CertificationPrice(ctx, *patch.CertificationTypeID)
		if err != nil {
			return AnalysisRecord{}, err
		}
		record.CertificationTypeID = patch.CertificationTypeID
		record.CertificationPrice = &price
	}

	if err := s.priceRecord(ctx, &record); err != nil {
		return AnalysisRecord{}, err
	}
	if err := s.Repo.Update(ctx, record); err != nil {
		return AnalysisRecord{}, err
	}
	s.triggerRecalc(ctx, record.QuoteID)
	return record, nil
}

// Remove deletes a record. A file-backed record resets its file to skipped so
// the file can be re-analyzed or replaced by a manual entry.
func (s *Service) Remove(ctx context.Context, recordID string) error {
	record, err := s.Repo.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, recordID); err != nil {
		return err
	}
	if record.Source() == SourceFileBacked {
		if err := s.Files.Repo.UpdateStatus(ctx, *record.SourceFileID, sourcefiles.StatusSkipped); err != nil && !errors.Is(err, sourcefiles.ErrNotFound) {
			return err
		}
	}
	s.triggerRecalc(ctx, record.QuoteID)
	return nil
}

// Get returns a record by ID.
func (s *Service) Get(ctx context.Context, recordID string) (AnalysisRecord, error) {
	if recordID == "" {
		return AnalysisRecord{}, errors.New("recordID is required")
	}
	return s.Repo.GetByID(ctx, recordID)
}

// LinkGroup points a file's record at its group, or clears the link. A
// grouped file's record is superseded in the subtotal but stays visible.
// Files without a record are ignored.
func (s *Service) LinkGroup(ctx context.Context, fileID string, groupID *string) error {
	record, err := s.Repo.GetBySourceFile(ctx, fileID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	record.DocumentGroupID = groupID
	return s.Repo.Update(ctx, record)
}

// ListByQuote returns all records for a quote.
func (s *Service) ListByQuote(ctx context.Context, quoteID string) ([]AnalysisRecord, error) {
	if quoteID == "" {
		return nil, errors.New("quoteID is required")
	}
	return s.Repo.ListByQuote(ctx, quoteID)
}

func (s *Service) newFileRecord(ctx context.Context, file sourcefiles.SourceFile) (AnalysisRecord, error) {
	settings, err := s.Ref.Settings(ctx)
	if err != nil {
		return AnalysisRecord{}, err
	}
	now := time.Now().UTC()
	fileID := file.ID
	return AnalysisRecord{
		ID:           uuid.NewString(),
		QuoteID:      file.QuoteID,
		SourceFileID: &fileID,
		BaseRate:     settings.BaseRatePerPage,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// analyzeSync is the sequential-batch path: it creates the record and waits
// for completion instead of spawning a goroutine.
func (s *Service) analyzeSync(ctx context.Context, quoteID, fileID string) (AnalysisRecord, error) {
	file, err := s.Files.Get(ctx, fileID)
	if err != nil {
		return AnalysisRecord{}, err
	}
	if file.QuoteID != quoteID {
		return AnalysisRecord{}, fmt.Errorf("file %s does not belong to quote %s: %w", fileID, quoteID, sourcefiles.ErrNotFound)
	}

	if existing, err := s.Repo.GetBySourceFile(ctx, fileID); err == nil {
		switch existing.Status {
		case StatusPending, StatusProcessing:
			return existing, ErrAnalysisInProgress
		default:
			if err := s.Repo.Delete(ctx, existing.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return AnalysisRecord{}, err
			}
		}
	} else if !errors.Is(err, ErrNotFound) {
		return AnalysisRecord{}, err
	}

	record, err := s.newFileRecord(ctx, file)
	if err != nil {
		return AnalysisRecord{}, err
	}
	if err := s.Repo.Create(ctx, record); err != nil {
		return AnalysisRecord{}, err
	}
	if err := s.Files.Repo.UpdateStatus(ctx, fileID, sourcefiles.StatusProcessing); err != nil {
		return AnalysisRecord{}, err
	}

	s.completeAnalysis(ctx, record.ID)
	return s.Repo.GetByID(ctx, record.ID)
}

// completeAnalysis drives one record from pending through the oracle to a
// terminal state. All record writes are whole-row, so an abandoned call never
// leaves a half-written record.
func (s *Service) completeAnalysis(ctx context.Context, recordID string) {
	defer func() {
		if r := recover(); r != nil {
			s.failAnalysis(recordID, fmt.Errorf("panic: %v", r))
		}
	}()

	record, err := s.Repo.GetByID(ctx, recordID)
	if err != nil {
		telemetry.Error("analysis.lookup_failed", map[string]any{"record_id": recordID, "error": err.Error()})
		return
	}

	startedAt := time.Now().UTC()
	record.Status = StatusProcessing
	record.StartedAt = &startedAt
	if err := s.Repo.Update(ctx, record); err != nil {
		s.failAnalysis(recordID, fmt.Errorf("set processing: %w", err))
		return
	}
	metrics.IncAnalysisStarted()
	s.logStatus(record, "pending->processing")

	file, err := s.Files.Get(ctx, *record.SourceFileID)
	if err != nil {
		s.failAnalysis(recordID, fmt.Errorf("file lookup: %w", err))
		return
	}
	content, err := s.Files.ReadContent(ctx, file)
	if err != nil {
		s.failAnalysis(recordID, fmt.Errorf("read file content: %w", err))
		return
	}

	result, err := s.Oracle.AnalyzeDocument(ctx, oracle.AnalyzeInput{
		QuoteID:  record.QuoteID,
		FileID:   file.ID,
		FileName: file.FileName,
		MimeType: file.MimeType,
		Content:  content,
	})
	if err != nil {
		s.failAnalysis(recordID, err)
		return
	}

	record.DetectedLanguageCode = result.DetectedLanguage
	record.DocumentType = result.DocumentType
	record.Complexity = result.Complexity
	record.PageCount = result.PageCount
	record.WordCount = result.WordCount
	record.BillablePages = s.billablePages(result.DocumentType, result.PageCount)

	if err := s.priceRecord(ctx, &record); err != nil {
		s.failAnalysis(recordID, err)
		return
	}

	completedAt := time.Now().UTC()
	record.Status = StatusCompleted
	record.CompletedAt = &completedAt
	record.ErrorCode = ""
	record.ErrorMessage = ""
	record.Remediation = ""
	if err := s.Repo.Update(ctx, record); err != nil {
		s.failAnalysis(recordID, fmt.Errorf("set analysis result: %w", err))
		return
	}
	if err := s.Files.Repo.UpdateStatus(ctx, file.ID, sourcefiles.StatusCompleted); err != nil {
		telemetry.Error("analysis.file_status", map[string]any{"file_id": file.ID, "error": err.Error()})
	}

	metrics.IncAnalysisCompleted()
	metrics.ObserveAnalysisDurationMs(durationMs(record.StartedAt, record.CompletedAt))
	s.logStatus(record, "processing->completed")
	s.triggerRecalc(ctx, record.QuoteID)
}

// failAnalysis persists a terminal failure. It uses a fresh context so a
// canceled request cannot strand the record in processing.
func (s *Service) failAnalysis(recordID string, cause error) {
	record, err := s.Repo.GetByID(context.Background(), recordID)
	if err != nil {
		telemetry.Error("analysis.fail_lookup", map[string]any{"record_id": recordID, "error": err.Error()})
		return
	}

	status, code, remediation := classifyFailure(cause)
	completedAt := time.Now().UTC()
	record.Status = status
	record.ErrorCode = code
	record.ErrorMessage = sanitizeError(cause)
	record.Remediation = remediation
	record.CompletedAt = &completedAt
	// No financial value from a failed analysis.
	record.LineTotal = 0

	if err := s.Repo.Update(context.Background(), record); err != nil {
		telemetry.Error("analysis.fail_update", map[string]any{"record_id": recordID, "error": err.Error()})
	}
	if record.Source() == SourceFileBacked {
		fileStatus := sourcefiles.StatusFailed
		if status == StatusTimeout {
			fileStatus = sourcefiles.StatusTimeout
		}
		if err := s.Files.Repo.UpdateStatus(context.Background(), *record.SourceFileID, fileStatus); err != nil {
			telemetry.Error("analysis.file_status", map[string]any{"file_id": *record.SourceFileID, "error": err.Error()})
		}
	}

	if status == StatusTimeout {
		metrics.IncAnalysisTimeout()
		s.logStatus(record, "processing->timeout")
	} else {
		metrics.IncAnalysisFailed()
		s.logStatus(record, "processing->failed")
	}
	metrics.ObserveAnalysisDurationMs(durationMs(record.StartedAt, record.CompletedAt))

	// A re-analysis may have replaced a priced record with this zeroed one, so
	// totals re-derive on every terminal state, not just success.
	s.triggerRecalc(context.Background(), record.QuoteID)
}

// priceRecord re-derives the line total from current attributes. Pricing
// failures are fatal to the triggering operation; multipliers are never
// silently defaulted.
func (s *Service) priceRecord(ctx context.Context, record *AnalysisRecord) error {
	langMult, err := s.Quotes.LanguageMultiplier(ctx, record.QuoteID)
	if err != nil {
		return err
	}
	total, err := pricing.ComputeLineTotal(pricing.LineInput{
		BillablePages:        record.BillablePages,
		BaseRate:             record.BaseRate,
		LanguageMultiplier:   langMult,
		ComplexityMultiplier: pricing.ComplexityMultiplier(record.Complexity),
		CertificationPrice:   record.certificationPrice(),
	})
	if err != nil {
		return err
	}
	record.LineTotal = total
	return nil
}

func (s *Service) billablePages(documentType string, pageCount int) float64 {
	if s.BillingRules != nil {
		if pages, ok := s.BillingRules(documentType, pageCount); ok {
			return pages
		}
	}
	return float64(pageCount)
}

func (s *Service) triggerRecalc(ctx context.Context, quoteID string) {
	if s.Recalc == nil {
		return
	}
	if err := s.Recalc.Recalculate(ctx, quoteID); err != nil {
		telemetry.Error("quote.recalculate", map[string]any{"quote_id": quoteID, "error": err.Error()})
	}
}

func (s *Service) logStatus(record AnalysisRecord, transition string) {
	fields := map[string]any{
		"quote_id":          record.QuoteID,
		"record_id":         record.ID,
		"status":            record.Status,
		"status_transition": transition,
	}
	if record.SourceFileID != nil {
		fields["file_id"] = *record.SourceFileID
	}
	if record.StartedAt != nil && record.CompletedAt != nil {
		fields["duration_ms"] = durationMs(record.StartedAt, record.CompletedAt)
	}
	telemetry.Info("analysis.status", fields)
}

func classifyFailure(err error) (status, code, remediation string) {
	switch {
	case oracle.IsTimeout(err):
		return StatusTimeout, ErrorCodeOracleTimeout, RemediationRetry
	case errors.Is(err, refdata.ErrReferenceNotFound):
		return StatusFailed, ErrorCodeReferenceNotFound, RemediationContactSupport
	case errors.Is(err, pricing.ErrInvalidArgument):
		return StatusFailed, ErrorCodeInvalidArgument, RemediationManualEntry
	default:
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "read file") || strings.Contains(msg, "storage") {
			return StatusFailed, ErrorCodeStorage, RemediationRetry
		}
		return StatusFailed, ErrorCodeOracleFailure, RemediationManualEntry
	}
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}

func batchItemError(targetID string, err error) BatchItemError {
	_, code, remediation := classifyFailure(err)
	return BatchItemError{
		TargetID:    targetID,
		Code:        code,
		Message:     sanitizeError(err),
		Remediation: remediation,
	}
}

func durationMs(startedAt, completedAt *time.Time) float64 {
	if startedAt == nil || completedAt == nil {
		return 0
	}
	return float64(completedAt.Sub(*startedAt).Microseconds()) / 1000.0
}
