// Package pdftext extracts plain text from PDF documents for the ingestion
// pipeline.
package pdftext

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// Extract reads the PDF at path and returns its full plain-text content.
// Formatting is not preserved; the result is a flat text stream suitable for
// chunking and embedding.
func Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("pdftext: open %s: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdftext: extract %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("pdftext: read %s: %w", path, err)
	}
	return buf.String(), nil
}
