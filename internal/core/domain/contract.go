package domain

import (
	"strings"
	"time"
)

type ContractStatus string

const (
	StatusAnalyzing ContractStatus = "analyzing"
	StatusCompleted ContractStatus = "completed"
	StatusFailed    ContractStatus = "failed"
)

// IsTerminal reports whether the analysis lifecycle has ended for the record.
func (s ContractStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

func (s ContractStatus) Valid() bool {
	switch s {
	case StatusAnalyzing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

type DocumentType string

const (
	DocumentTypePersonal   DocumentType = "personal"
	DocumentTypeEmployment DocumentType = "employment"
	DocumentTypeFinancial  DocumentType = "financial"
	DocumentTypeBusiness   DocumentType = "business"
	DocumentTypePolicy     DocumentType = "policy"
	DocumentTypeTechnical  DocumentType = "technical"
	DocumentTypeOther      DocumentType = "other"
)

// ParseDocumentType folds unknown categories into DocumentTypeOther.
func ParseDocumentType(raw string) DocumentType {
	switch t := DocumentType(strings.ToLower(strings.TrimSpace(raw))); t {
	case DocumentTypePersonal, DocumentTypeEmployment, DocumentTypeFinancial,
		DocumentTypeBusiness, DocumentTypePolicy, DocumentTypeTechnical:
		return t
	default:
		return DocumentTypeOther
	}
}

// Valid reports whether t is one of the known categories, spelled as stored.
func (t DocumentType) Valid() bool {
	return t != "" && ParseDocumentType(string(t)) == t
}

type ReadingStyle string

const (
	ReadingStylePlain      ReadingStyle = "plain"
	ReadingStyleStructured ReadingStyle = "structured"
)

// ParseReadingStyle treats anything other than "structured" as plain.
func ParseReadingStyle(raw string) ReadingStyle {
	if strings.EqualFold(strings.TrimSpace(raw), string(ReadingStyleStructured)) {
		return ReadingStyleStructured
	}
	return ReadingStylePlain
}

type Contract struct {
	ID           string          `json:"id"`
	ContractName string          `json:"contract_name"`
	FileURL      string          `json:"file_url"`
	DocumentType DocumentType    `json:"document_type"`
	ReadingStyle ReadingStyle    `json:"reading_style"`
	Status       ContractStatus  `json:"status"`
	AnalysisData *AnalysisResult `json:"analysis_data,omitempty"`
	CreatedBy    string          `json:"created_by"`
	CreatedDate  time.Time       `json:"created_date"`
	UpdatedDate  time.Time       `json:"updated_date"`
}

// OwnedBy reports whether the identity created the record.
func (c *Contract) OwnedBy(id Identity) bool {
	return c != nil && id.UserID != "" && c.CreatedBy == id.UserID
}

// ContractFilter narrows an owner-scoped listing. Zero values match everything.
// NameQuery is a case-insensitive substring of the contract name.
type ContractFilter struct {
	Status       ContractStatus
	DocumentType DocumentType
	NameQuery    string
}

type SortField string

const (
	SortCreatedDate  SortField = "created_date"
	SortUpdatedDate  SortField = "updated_date"
	SortContractName SortField = "contract_name"
)

type ContractSort struct {
	Field      SortField
	Descending bool
}

// ParseContractSort accepts "field" or "-field"; unknown fields sort by
// newest first.
func ParseContractSort(raw string) ContractSort {
	raw = strings.TrimSpace(raw)
	desc := strings.HasPrefix(raw, "-")
	field := SortField(strings.TrimPrefix(raw, "-"))
	switch field {
	case SortCreatedDate, SortUpdatedDate, SortContractName:
		return ContractSort{Field: field, Descending: desc}
	default:
		return ContractSort{Field: SortCreatedDate, Descending: true}
	}
}

// AnalysisRequest is the payload of one analysis invocation.
type AnalysisRequest struct {
	ContractID   string `json:"contractId"`
	FileURL      string `json:"fileUrl"`
	DocumentType string `json:"documentType"`
	ReadingStyle string `json:"readingStyle"`
}

// AnalysisJob is an AnalysisRequest queued for a worker together with the
// identity that submitted it.
type AnalysisJob struct {
	AnalysisRequest
	UserID      string    `json:"userId"`
	SubmittedAt time.Time `json:"submittedAt"`
}
