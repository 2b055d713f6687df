package sourcefiles

import (
	"bytes"
	"context"
	"strings"
	"testing"

	localstore "quoteflow-backend/internal/shared/storage/object/local"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return &Service{
		Repo:  NewMemoryRepo(),
		Store: localstore.New(t.TempDir()),
	}
}

func TestRegisterStoresFileAndMetadata(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	content := []byte("birth certificate scan, page one")

	file, err := svc.Register(ctx, "quote-1", "certificate.txt", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if file.ID == "" {
		t.Fatalf("expected generated file ID")
	}
	if file.ProcessingStatus != StatusPending {
		t.Fatalf("expected pending status, got %q", file.ProcessingStatus)
	}
	if file.SizeBytes != int64(len(content)) {
		t.Fatalf("expected size %d, got %d", len(content), file.SizeBytes)
	}
	if !strings.HasPrefix(file.MimeType, "text/plain") {
		t.Fatalf("unexpected mime type %q", file.MimeType)
	}

	got, err := svc.ReadContent(ctx, file)
	if err != nil {
		t.Fatalf("ReadContent: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("stored content mismatch")
	}

	files, err := svc.ListByQuote(ctx, "quote-1")
	if err != nil {
		t.Fatalf("ListByQuote: %v", err)
	}
	if len(files) != 1 || files[0].ID != file.ID {
		t.Fatalf("expected one listed file, got %d", len(files))
	}
}

func TestRegisterRejectsTraversalFileName(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register(context.Background(), "quote-1", "../escape.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected traversal file name to be rejected")
	}
}

func TestRegisterRequiresQuoteID(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Register(context.Background(), "", "a.txt", strings.NewReader("x")); err == nil {
		t.Fatalf("expected missing quote ID to be rejected")
	}
}

func TestCountPDFPagesRejectsGarbage(t *testing.T) {
	if got := CountPDFPages([]byte("not a pdf")); got != 0 {
		t.Fatalf("expected 0 pages for non-PDF bytes, got %d", got)
	}
	if got := CountPDFPages(nil); got != 0 {
		t.Fatalf("expected 0 pages for empty payload, got %d", got)
	}
}
