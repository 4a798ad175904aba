package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// Compare lines up two completed analyses owned by the caller. The themes
// are derived from the stored results; no model call is made.
func (uc *ContractUseCase) Compare(ctx context.Context, identity domain.Identity, idA, idB string) (*domain.Comparison, error) {
	idA, idB = strings.TrimSpace(idA), strings.TrimSpace(idB)
	if idA == "" || idB == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare contracts", errors.New("two contract ids are required"))
	}
	if idA == idB {
		return nil, domain.WrapError(domain.ErrInvalidInput, "compare contracts", fmt.Errorf("cannot compare contract %s with itself", idA))
	}

	a, err := uc.completed(ctx, identity, idA)
	if err != nil {
		return nil, err
	}
	b, err := uc.completed(ctx, identity, idB)
	if err != nil {
		return nil, err
	}

	return &domain.Comparison{
		DocumentA: comparedDocument(a),
		DocumentB: comparedDocument(b),
		Themes:    compareThemes(a.AnalysisData, b.AnalysisData),
	}, nil
}

func comparedDocument(c *domain.Contract) domain.ComparedDocument {
	return domain.ComparedDocument{
		ID:           c.ID,
		ContractName: c.ContractName,
		DocumentType: c.DocumentType,
		ReportTitle:  c.AnalysisData.ReportTitle,
	}
}

func compareThemes(a, b *domain.AnalysisResult) []domain.ComparisonTheme {
	themes := []domain.ComparisonTheme{
		{
			Theme:          "Cost exposure",
			AttentionLevel: domain.AttentionHigh,
			DocumentANotes: nonNil(a.FinancialConsiderations),
			DocumentBNotes: nonNil(b.FinancialConsiderations),
		},
		{
			Theme:          "Responsibilities",
			AttentionLevel: domain.AttentionMedium,
			DocumentANotes: nonNil(a.ResponsibilitiesUser),
			DocumentBNotes: nonNil(b.ResponsibilitiesUser),
		},
		{
			Theme:          "Timing and deadlines",
			AttentionLevel: domain.AttentionMedium,
			DocumentANotes: nonNil(a.TimingAndDeadlines),
			DocumentBNotes: nonNil(b.TimingAndDeadlines),
		},
	}

	for _, level := range domain.AttentionLevels {
		notesA := pointTitles(a.PointsAt(level))
		notesB := pointTitles(b.PointsAt(level))
		if len(notesA) == 0 && len(notesB) == 0 {
			continue
		}
		themes = append(themes, domain.ComparisonTheme{
			Theme:          fmt.Sprintf("Wording flagged %s", level),
			AttentionLevel: level,
			DocumentANotes: notesA,
			DocumentBNotes: notesB,
		})
	}
	return themes
}

func pointTitles(points []domain.AttentionPoint) []string {
	out := make([]string, 0, len(points))
	for _, p := range points {
		out = append(out, p.Title)
	}
	return out
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
