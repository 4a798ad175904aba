package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

const (
	summarySheet   = "Summary"
	attentionSheet = "Attention points"
)

// Renderer writes a completed analysis as a two-sheet workbook: the report
// sections, then the flagged wording ordered high to low.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(w io.Writer, contract *domain.Contract) error {
	if contract == nil || contract.AnalysisData == nil {
		return errors.New("render report: no analysis data")
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(attentionSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	wrap, err := f.NewStyle(&excelize.Style{Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeSummary(f, contract, bold, wrap); err != nil {
		return err
	}
	if err := writeAttentionPoints(f, contract.AnalysisData, bold, wrap); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
	err   error
}

func (sw *sheetWriter) writeRow(style int, values ...any) {
	if sw.err != nil {
		return
	}
	sw.row++
	start, err := excelize.CoordinatesToCellName(1, sw.row)
	if err != nil {
		sw.err = err
		return
	}
	if err := sw.f.SetSheetRow(sw.sheet, start, &values); err != nil {
		sw.err = err
		return
	}
	if style == 0 {
		return
	}
	end, err := excelize.CoordinatesToCellName(len(values), sw.row)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.f.SetCellStyle(sw.sheet, start, end, style)
}

func writeSummary(f *excelize.File, contract *domain.Contract, bold, wrap int) error {
	a := contract.AnalysisData
	sw := &sheetWriter{f: f, sheet: summarySheet}

	sw.writeRow(bold, a.ReportTitle)
	sw.writeRow(wrap, a.OneSentencePurpose)
	sw.row++
	sw.writeRow(0, "Document", contract.ContractName)
	sw.writeRow(0, "Type", string(contract.DocumentType))
	sw.writeRow(0, "Reading style", string(contract.ReadingStyle))
	sw.writeRow(0, "Analyzed", contract.UpdatedDate.Format("2006-01-02 15:04 MST"))

	sections := []struct {
		title string
		items []string
	}{
		{"Document overview", a.DocumentOverview},
		{"How it's organised", a.HowItsOrganised},
		{"Your responsibilities", a.ResponsibilitiesUser},
		{"Other party's responsibilities", a.ResponsibilitiesOtherParty},
		{"Financial considerations", a.FinancialConsiderations},
		{"Timing and deadlines", a.TimingAndDeadlines},
		{"Questions readers often ask", a.QuestionsReadersOftenAsk},
		{"Plain English summary", a.PlainEnglishSummary},
	}
	for _, section := range sections {
		if len(section.items) == 0 {
			continue
		}
		sw.row++
		sw.writeRow(bold, section.title)
		for _, item := range section.items {
			sw.writeRow(wrap, "", item)
		}
	}

	sw.row++
	sw.writeRow(wrap, a.BoundaryStatement)

	if sw.err != nil {
		return fmt.Errorf("write summary sheet: %w", sw.err)
	}
	if err := f.SetColWidth(summarySheet, "A", "A", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	if err := f.SetColWidth(summarySheet, "B", "B", 90); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func writeAttentionPoints(f *excelize.File, a *domain.AnalysisResult, bold, wrap int) error {
	sw := &sheetWriter{f: f, sheet: attentionSheet}
	sw.writeRow(bold, "Level", "Wording", "Why it matters", "Related quotes")
	for _, level := range domain.AttentionLevels {
		for _, p := range a.PointsAt(level) {
			sw.writeRow(wrap, strings.ToUpper(string(level)), p.Title, p.WhyItMattersInPlainLanguage, strings.Join(p.RelatedQuoteSnippets, "\n"))
		}
	}
	if sw.err != nil {
		return fmt.Errorf("write attention sheet: %w", sw.err)
	}

	widths := map[string]float64{"A": 10, "B": 36, "C": 60, "D": 60}
	for col, width := range widths {
		if err := f.SetColWidth(attentionSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	return nil
}
