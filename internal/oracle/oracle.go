package oracle

import (
	"context"
	"errors"
	"time"
)

// DefaultTimeout bounds a single document analysis call.
const DefaultTimeout = 60 * time.Second

// Client abstracts the external document analysis service. It receives the
// document bytes and returns fixed attributes or fails; everything beyond this
// shape is a black box.
type Client interface {
	AnalyzeDocument(ctx context.Context, input AnalyzeInput) (Result, error)
}

// AnalyzeInput identifies the document content to analyze.
type AnalyzeInput struct {
	QuoteID  string
	FileID   string
	FileName string
	MimeType string
	Content  []byte
}

// Result is the oracle's fixed output shape.
type Result struct {
	DetectedLanguage string  `json:"detectedLanguage"`
	DocumentType     string  `json:"documentType"`
	Complexity       string  `json:"complexity"`
	PageCount        int     `json:"pageCount"`
	WordCount        int     `json:"wordCount"`
	Confidence       float64 `json:"confidence"`
}

// ErrTimeout marks an analysis call that exceeded its deadline. Timeouts are
// a distinct terminal state from plain failures: the caller offers retry,
// failures offer manual entry.
var ErrTimeout = errors.New("analysis timed out")

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("analysis oracle not configured")

// PlaceholderClient is a stub implementation until provider wiring is added.
type PlaceholderClient struct{}

// AnalyzeDocument returns ErrNotConfigured.
func (PlaceholderClient) AnalyzeDocument(ctx context.Context, input AnalyzeInput) (Result, error) {
	_ = ctx
	_ = input
	return Result{}, ErrNotConfigured
}

// WithTimeout wraps a client so every call runs under the given deadline and
// deadline errors normalize to ErrTimeout.
func WithTimeout(client Client, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutClient{client: client, timeout: timeout}
}

type timeoutClient struct {
	client  Client
	timeout time.Duration
}

func (t *timeoutClient) AnalyzeDocument(ctx context.Context, input AnalyzeInput) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result, err := t.client.AnalyzeDocument(callCtx, input)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return Result{}, ErrTimeout
		}
		return Result{}, err
	}
	return result, nil
}

// IsTimeout reports whether err represents an analysis timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
