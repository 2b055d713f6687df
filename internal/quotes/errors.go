package quotes

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("quote not found")
	// ErrConcurrentModification means a totals write raced another
	// recalculation. The caller retries the whole operation.
	ErrConcurrentModification = errors.New("quote pricing was modified concurrently")
)

// BatchItemError describes one failed record of a batch operation.
type BatchItemError struct {
	TargetID    string `json:"targetId"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Remediation string `json:"remediation"`
}

// BatchError reports a batch that partially failed. Succeeded items stay
// applied; Failed lists exactly the items that did not.
type BatchError struct {
	Succeeded int              `json:"succeeded"`
	Failed    []BatchItemError `json:"failed"`
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch partially failed: %d succeeded, %d failed", e.Succeeded, len(e.Failed))
}
