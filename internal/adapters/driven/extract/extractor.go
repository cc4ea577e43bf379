// Package extract turns uploaded policy files into plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/policypal/internal/core/domain"
	"github.com/custodia-labs/policypal/internal/core/ports/driven"
)

// Ensure Extractor implements TextExtractor
var _ driven.TextExtractor = (*Extractor)(nil)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Extractor reads .txt, .md and .pdf files
type Extractor struct{}

// NewExtractor creates a text extractor
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Supported lists the accepted file extensions
func (e *Extractor) Supported() []string {
	return []string{".md", ".pdf", ".txt"}
}

// Extract returns the plain text of a file, selected by extension
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".markdown":
		return extractText(data)
	case ".pdf":
		return extractPDF(data)
	}
	if imageExtensions[ext] {
		return "", fmt.Errorf("%w: %s (image text recognition is not available)", domain.ErrUnsupportedFormat, ext)
	}
	if ext == "" {
		return "", fmt.Errorf("%w: file has no extension", domain.ErrUnsupportedFormat)
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
}

func extractText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: file is not valid UTF-8", domain.ErrInvalidInput)
	}
	return string(data), nil
}

// extractPDF concatenates the plain text of every non-null page. The PDF
// reader panics on some malformed inputs; those are reported as errors.
func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: read pdf: %v", domain.ErrInvalidInput, err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: read pdf page %d: %v", domain.ErrInvalidInput, i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}
