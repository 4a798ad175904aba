package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

func TestRenderWritesSummaryAndOrderedAttentionPoints(t *testing.T) {
	contract := &domain.Contract{
		ID:           "c1",
		ContractName: "Lease",
		DocumentType: domain.DocumentTypePersonal,
		ReadingStyle: domain.ReadingStylePlain,
		Status:       domain.StatusCompleted,
		UpdatedDate:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		AnalysisData: &domain.AnalysisResult{
			ReportTitle:             "Lease explained",
			OneSentencePurpose:      "Lets a flat for a year.",
			FinancialConsiderations: []string{"Deposit of two months"},
			ImportantWordingAttentionPoints: []domain.AttentionPoint{
				{Title: "Pets", AttentionLevel: domain.AttentionLow},
				{Title: "Automatic renewal", AttentionLevel: domain.AttentionHigh, RelatedQuoteSnippets: []string{"renews", "unless"}},
			},
			BoundaryStatement: "Not advice.",
		},
	}

	var buf bytes.Buffer
	if err := NewRenderer().Render(&buf, contract); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	title, err := f.GetCellValue(summarySheet, "A1")
	if err != nil || title != "Lease explained" {
		t.Fatalf("unexpected title %q (%v)", title, err)
	}

	rows, err := f.GetRows(attentionSheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two points, got %d rows", len(rows))
	}
	if rows[1][0] != "HIGH" || rows[1][1] != "Automatic renewal" || rows[1][3] != "renews\nunless" {
		t.Fatalf("unexpected first point row: %v", rows[1])
	}
	if rows[2][0] != "LOW" || rows[2][1] != "Pets" {
		t.Fatalf("unexpected second point row: %v", rows[2])
	}

	summary, err := f.GetRows(summarySheet)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	found := false
	for _, row := range summary {
		if len(row) > 1 && row[1] == "Deposit of two months" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected financial item on summary sheet: %v", summary)
	}
}

func TestRenderRequiresAnalysis(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRenderer().Render(&buf, &domain.Contract{ID: "c1"}); err == nil {
		t.Fatalf("expected error without analysis data")
	}
}
