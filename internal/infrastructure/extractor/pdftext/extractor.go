package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

var pdfMagic = []byte("%PDF-")

// Extractor turns a fetched document into plain text. PDFs go through
// ledongthuc/pdf; UTF-8 text files are passed through as they are.
type Extractor struct {
	maxPages int
}

func NewExtractor(maxPages int) *Extractor {
	return &Extractor{maxPages: maxPages}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", domain.WrapError(domain.ErrExtractFailed, "extract text", errors.New("empty document"))
	}

	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic) {
		if !utf8.Valid(data) {
			return "", domain.WrapError(domain.ErrExtractFailed, "extract text", errors.New("unsupported binary format"))
		}
		return strings.TrimSpace(string(data)), nil
	}

	text, err := e.extractPDF(ctx, data)
	if err != nil {
		return "", domain.WrapError(domain.ErrExtractFailed, "extract pdf text", err)
	}
	return strings.TrimSpace(text), nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	doc, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}

	total := doc.NumPage()
	if e.maxPages > 0 && total > e.maxPages {
		total = e.maxPages
	}

	var builder strings.Builder
	for page := 1; page <= total; page++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
