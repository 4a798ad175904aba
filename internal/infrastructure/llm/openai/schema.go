package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

const schemaName = "document_analysis"

var (
	analysisSchemaOnce sync.Once
	analysisSchema     *openapi3.Schema
	analysisDocument   map[string]any
)

// AnalysisSchema is the strict output schema sent with every request and
// used to validate the reply. Every property is required and no extra
// properties are allowed at any level.
func AnalysisSchema() *openapi3.Schema {
	analysisSchemaOnce.Do(func() {
		analysisSchema = buildAnalysisSchema()
		analysisDocument = schemaToMap(analysisSchema)
	})
	return analysisSchema
}

// schemaDocument is AnalysisSchema as a plain JSON object for the request.
func schemaDocument() map[string]any {
	AnalysisSchema()
	return analysisDocument
}

func schemaToMap(schema *openapi3.Schema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("marshal analysis schema: %v", err))
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("unmarshal analysis schema: %v", err))
	}
	return out
}

func buildAnalysisSchema() *openapi3.Schema {
	stringList := func() *openapi3.Schema {
		return openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())
	}

	levels := make([]any, 0, len(domain.AttentionLevels))
	for _, level := range []domain.AttentionLevel{domain.AttentionLow, domain.AttentionMedium, domain.AttentionHigh} {
		levels = append(levels, string(level))
	}

	point := openapi3.NewObjectSchema().
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("attention_level", openapi3.NewStringSchema().WithEnum(levels...)).
		WithProperty("why_it_matters_in_plain_language", openapi3.NewStringSchema()).
		WithProperty("related_quote_snippets", stringList()).
		WithoutAdditionalProperties()
	point.Required = []string{
		"title",
		"attention_level",
		"why_it_matters_in_plain_language",
		"related_quote_snippets",
	}

	root := openapi3.NewObjectSchema().
		WithProperty("report_title", openapi3.NewStringSchema()).
		WithProperty("one_sentence_purpose", openapi3.NewStringSchema()).
		WithProperty("document_overview", stringList()).
		WithProperty("how_its_organised", stringList()).
		WithProperty("responsibilities_user", stringList()).
		WithProperty("responsibilities_other_party", stringList()).
		WithProperty("financial_considerations", stringList()).
		WithProperty("timing_and_deadlines", stringList()).
		WithProperty("important_wording_attention_points", openapi3.NewArraySchema().WithItems(point)).
		WithProperty("questions_readers_often_ask", stringList()).
		WithProperty("plain_english_summary", stringList()).
		WithProperty("boundary_statement", openapi3.NewStringSchema()).
		WithoutAdditionalProperties()
	root.Required = []string{
		"report_title",
		"one_sentence_purpose",
		"document_overview",
		"how_its_organised",
		"responsibilities_user",
		"responsibilities_other_party",
		"financial_considerations",
		"timing_and_deadlines",
		"important_wording_attention_points",
		"questions_readers_often_ask",
		"plain_english_summary",
		"boundary_statement",
	}
	return root
}

// ParseAnalysis decodes model content and checks it against AnalysisSchema.
// Anything that fails is reported as domain.ErrModelOutput.
func ParseAnalysis(content string) (*domain.AnalysisResult, error) {
	if content == "" {
		return nil, domain.WrapError(domain.ErrModelOutput, "parse analysis", errors.New("empty message content"))
	}

	var raw any
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, domain.WrapError(domain.ErrModelOutput, "parse analysis", err)
	}
	if err := AnalysisSchema().VisitJSON(raw, openapi3.MultiErrors()); err != nil {
		return nil, domain.WrapError(domain.ErrModelOutput, "validate analysis", err)
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, domain.WrapError(domain.ErrModelOutput, "decode analysis", err)
	}
	return &result, nil
}
