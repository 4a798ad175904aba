package domain

type AttentionLevel string

const (
	AttentionLow    AttentionLevel = "low"
	AttentionMedium AttentionLevel = "medium"
	AttentionHigh   AttentionLevel = "high"
)

var AttentionLevels = []AttentionLevel{AttentionHigh, AttentionMedium, AttentionLow}

type AttentionPoint struct {
	Title                       string         `json:"title"`
	AttentionLevel              AttentionLevel `json:"attention_level"`
	WhyItMattersInPlainLanguage string         `json:"why_it_matters_in_plain_language"`
	RelatedQuoteSnippets        []string       `json:"related_quote_snippets"`
}

// AnalysisResult is the structured explanation produced by the model. Every
// field is required by the output schema.
type AnalysisResult struct {
	ReportTitle                     string           `json:"report_title"`
	OneSentencePurpose              string           `json:"one_sentence_purpose"`
	DocumentOverview                []string         `json:"document_overview"`
	HowItsOrganised                 []string         `json:"how_its_organised"`
	ResponsibilitiesUser            []string         `json:"responsibilities_user"`
	ResponsibilitiesOtherParty      []string         `json:"responsibilities_other_party"`
	FinancialConsiderations         []string         `json:"financial_considerations"`
	TimingAndDeadlines              []string         `json:"timing_and_deadlines"`
	ImportantWordingAttentionPoints []AttentionPoint `json:"important_wording_attention_points"`
	QuestionsReadersOftenAsk        []string         `json:"questions_readers_often_ask"`
	PlainEnglishSummary             []string         `json:"plain_english_summary"`
	BoundaryStatement               string           `json:"boundary_statement"`
}

// PointsAt returns the wording points flagged with the given level, in
// document order.
func (r *AnalysisResult) PointsAt(level AttentionLevel) []AttentionPoint {
	if r == nil {
		return nil
	}
	out := make([]AttentionPoint, 0)
	for _, p := range r.ImportantWordingAttentionPoints {
		if p.AttentionLevel == level {
			out = append(out, p)
		}
	}
	return out
}

// Comparison lines up two completed analyses side by side.
type Comparison struct {
	DocumentA ComparedDocument  `json:"document_a"`
	DocumentB ComparedDocument  `json:"document_b"`
	Themes    []ComparisonTheme `json:"themes"`
}

type ComparedDocument struct {
	ID           string       `json:"id"`
	ContractName string       `json:"contract_name"`
	DocumentType DocumentType `json:"document_type"`
	ReportTitle  string       `json:"report_title"`
}

type ComparisonTheme struct {
	Theme          string         `json:"theme"`
	AttentionLevel AttentionLevel `json:"attention_level"`
	DocumentANotes []string       `json:"document_a_notes"`
	DocumentBNotes []string       `json:"document_b_notes"`
}

// ExplanationPrompt is the assembled model input: a fixed system
// instruction, the task instruction and the extracted document text.
type ExplanationPrompt struct {
	System       string
	Task         string
	DocumentText string
}
