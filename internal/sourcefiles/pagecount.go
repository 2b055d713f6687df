package sourcefiles

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// CountPDFPages returns the page count of a PDF payload, or 0 when the bytes
// are not a readable PDF. The count is a pre-analysis hint only; the oracle's
// page count wins once analysis runs.
func CountPDFPages(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	pages := reader.NumPage()
	if pages < 0 {
		return 0
	}
	return pages
}
