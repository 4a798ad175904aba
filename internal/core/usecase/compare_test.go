package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

func TestCompareLinesUpThemes(t *testing.T) {
	a := completedContract("a", alice.UserID)
	a.AnalysisData.FinancialConsiderations = []string{"Salary paid monthly"}
	b := completedContract("b", alice.UserID)
	b.AnalysisData = &domain.AnalysisResult{
		ReportTitle:          "Second",
		ResponsibilitiesUser: []string{"Keep the flat clean"},
		ImportantWordingAttentionPoints: []domain.AttentionPoint{
			{Title: "Deposit", AttentionLevel: domain.AttentionMedium},
		},
	}
	f := newContractFixture(a, b)

	cmp, err := f.uc.Compare(context.Background(), alice, "a", "b")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if cmp.DocumentA.ID != "a" || cmp.DocumentB.ReportTitle != "Second" {
		t.Fatalf("unexpected documents: %+v / %+v", cmp.DocumentA, cmp.DocumentB)
	}

	byTheme := map[string]domain.ComparisonTheme{}
	for _, theme := range cmp.Themes {
		byTheme[theme.Theme] = theme
	}
	cost := byTheme["Cost exposure"]
	if len(cost.DocumentANotes) != 1 || cost.DocumentBNotes == nil || len(cost.DocumentBNotes) != 0 {
		t.Fatalf("unexpected cost theme: %+v", cost)
	}
	high, ok := byTheme["Wording flagged high"]
	if !ok || len(high.DocumentANotes) != 1 || high.DocumentANotes[0] != "Notice period" || len(high.DocumentBNotes) != 0 {
		t.Fatalf("unexpected high theme: %+v", high)
	}
	medium, ok := byTheme["Wording flagged medium"]
	if !ok || len(medium.DocumentBNotes) != 1 || medium.DocumentBNotes[0] != "Deposit" {
		t.Fatalf("unexpected medium theme: %+v", medium)
	}
	if _, ok := byTheme["Wording flagged low"]; ok {
		t.Fatalf("expected no low theme when neither document has low points")
	}
}

func TestCompareRejectsSameOrPendingDocuments(t *testing.T) {
	pending := completedContract("p", alice.UserID)
	pending.Status = domain.StatusFailed
	pending.AnalysisData = nil
	f := newContractFixture(completedContract("a", alice.UserID), pending)

	if _, err := f.uc.Compare(context.Background(), alice, "a", "a"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.uc.Compare(context.Background(), alice, "a", ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := f.uc.Compare(context.Background(), alice, "a", "p"); !domain.IsKind(err, domain.ErrAnalysisNotReady) {
		t.Fatalf("expected ErrAnalysisNotReady, got %v", err)
	}
}
