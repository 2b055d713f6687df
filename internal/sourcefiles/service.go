package sourcefiles

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"quoteflow-backend/internal/shared/storage/object"
)

// Service contains business logic for source file registration.
type Service struct {
	Repo  Repo
	Store object.ObjectStore
}

// Register saves the uploaded bytes and records file metadata with a pending
// processing status. PDFs get a local page-count hint before any analysis.
func (s *Service) Register(ctx context.Context, quoteID, fileName string, body io.Reader) (SourceFile, error) {
	if quoteID == "" {
		return SourceFile{}, errors.New("quoteID is required")
	}
	if strings.TrimSpace(fileName) == "" {
		return SourceFile{}, errors.New("fileName is required")
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, quoteID, fileName, body)
	if err != nil {
		return SourceFile{}, fmt.Errorf("store upload: %w", err)
	}

	file := SourceFile{
		ID:               uuid.NewString(),
		QuoteID:          quoteID,
		FileName:         fileName,
		MimeType:         mimeType,
		SizeBytes:        size,
		StorageKey:       storageKey,
		ProcessingStatus: StatusPending,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if mimeType == "application/pdf" {
		if raw, err := s.readStored(ctx, storageKey); err == nil {
			file.PageCountHint = CountPDFPages(raw)
		}
	}

	if err := s.Repo.Create(ctx, file); err != nil {
		return SourceFile{}, err
	}
	return file, nil
}

// Get returns one file by ID.
func (s *Service) Get(ctx context.Context, fileID string) (SourceFile, error) {
	if fileID == "" {
		return SourceFile{}, errors.New("fileID is required")
	}
	return s.Repo.GetByID(ctx, fileID)
}

// ListByQuote returns all files for a quote.
func (s *Service) ListByQuote(ctx context.Context, quoteID string) ([]SourceFile, error) {
	if quoteID == "" {
		return nil, errors.New("quoteID is required")
	}
	return s.Repo.ListByQuote(ctx, quoteID)
}

// ReadContent loads the stored bytes of a file for analysis input.
func (s *Service) ReadContent(ctx context.Context, file SourceFile) ([]byte, error) {
	return s.readStored(ctx, file.StorageKey)
}

func (s *Service) readStored(ctx context.Context, storageKey string) ([]byte, error) {
	body, err := s.Store.Open(ctx, storageKey)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}
