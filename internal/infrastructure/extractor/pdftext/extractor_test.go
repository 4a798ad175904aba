package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// onePagePDF builds a minimal single-page PDF that draws text with a
// standard Type1 font.
func onePagePDF(text string) []byte {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtractReadsPDFText(t *testing.T) {
	text, err := NewExtractor(0).Extract(context.Background(), onePagePDF("Hello World"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "Hello") {
		t.Fatalf("expected page text, got %q", text)
	}
}

func TestExtractPassesThroughPlainText(t *testing.T) {
	text, err := NewExtractor(0).Extract(context.Background(), []byte("  Section 1. Rent is due monthly.\n"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Section 1. Rent is due monthly." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractRejectsUnreadableInput(t *testing.T) {
	cases := map[string][]byte{
		"empty":       nil,
		"binary":      {0xff, 0xfe, 0x00, 0x81},
		"broken pdf":  []byte("%PDF-1.4\nthis is not a pdf body"),
		"cut off pdf": onePagePDF("Hello")[:40],
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewExtractor(0).Extract(context.Background(), data)
			if !domain.IsKind(err, domain.ErrExtractFailed) {
				t.Fatalf("expected ErrExtractFailed, got %v", err)
			}
		})
	}
}
