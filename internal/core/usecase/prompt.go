package usecase

import (
	"fmt"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

const explanationSystemPrompt = `You are an automated document understanding tool.
You explain what a document says in plain language so that readers can understand it.

You must not:
- give legal, financial, tax, immigration, regulatory, medical or other professional advice
- decide whether anything is enforceable, legal, valid or compliant, or what anyone's legal rights are
- sound certain where the meaning depends on jurisdiction or local context

You must:
- describe what the text says and how it is laid out
- point out wording that people usually read carefully, in neutral language
- say so when something is uncertain (for example "This depends on local law or context.")
- follow the output schema exactly
- return JSON only, without markdown or commentary`

const attentionLevelRules = `Attention level rules:
- HIGH: large or variable payments and fees, termination penalties or long lock-in periods, liability limits and indemnities, automatic renewals, short notice periods, rights for one party to change terms on its own
- MEDIUM: unclear or loose definitions, conditions that depend on outside events, several sections covering the same topic
- LOW: general descriptions, headings, text that does not commit anyone to anything`

func readingStyleInstruction(style domain.ReadingStyle) string {
	if style == domain.ReadingStyleStructured {
		return "Structured analytical mode: use precise wording and cross-reference the sections you mention."
	}
	return "Plain language mode: favour short sentences and everyday words over completeness."
}

// BuildExplanationPrompt assembles the fixed system instruction and the task
// instruction for one document. Reading style changes wording only, never the
// requested output shape.
func BuildExplanationPrompt(docType domain.DocumentType, style domain.ReadingStyle, documentText string) domain.ExplanationPrompt {
	task := fmt.Sprintf(`Explain the following %s document in a report for the person who has to read it.

The report must:
1. State the purpose of the document in one sentence
2. Describe how the document is organised
3. List what each party has to do
4. Identify financial considerations
5. Point out timing and deadlines
6. Flag wording that readers often review carefully, each with an attention level (low, medium or high)
7. Anticipate questions readers commonly ask

Reading style: %s

%s

Do not give advice or legal conclusions. Describe what the text says and flag wording patterns neutrally.`,
		docType, readingStyleInstruction(style), attentionLevelRules)

	return domain.ExplanationPrompt{
		System:       explanationSystemPrompt,
		Task:         task,
		DocumentText: documentText,
	}
}
