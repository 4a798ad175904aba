package ports

import (
	"context"
	"io"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// DocumentAnalyzer is the inbound contract for the fetch → extract → explain
// → persist pipeline of a single contract record.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, identity domain.Identity, req domain.AnalysisRequest) (*domain.AnalysisResult, error)
	// Abandon is the failure path for invocations that never reached
	// Analyze, e.g. an undecodable request body.
	Abandon(ctx context.Context, contractID string, cause error)
}

// ContractReader is the owner-scoped read model used for status polling.
type ContractReader interface {
	Get(ctx context.Context, identity domain.Identity, id string) (*domain.Contract, error)
	List(ctx context.Context, identity domain.Identity, filter domain.ContractFilter, sort domain.ContractSort) ([]domain.Contract, error)
}

// ContractService is the inbound contract for the upload flow and the
// owner-scoped record operations around the analysis pipeline.
type ContractService interface {
	ContractReader

	Upload(ctx context.Context, identity domain.Identity, filename, contentType string, size int64, body io.Reader) (string, error)
	Submit(ctx context.Context, identity domain.Identity, draft ContractDraft) (*domain.Contract, error)
	Rename(ctx context.Context, identity domain.Identity, id, name string) (*domain.Contract, error)
	Delete(ctx context.Context, identity domain.Identity, id string) error
	Compare(ctx context.Context, identity domain.Identity, idA, idB string) (*domain.Comparison, error)
	Export(ctx context.Context, identity domain.Identity, id string, w io.Writer) error
}

// ContractDraft carries the user-editable fields of a new record.
type ContractDraft struct {
	ContractName string `json:"contract_name"`
	FileURL      string `json:"file_url"`
	DocumentType string `json:"document_type"`
	ReadingStyle string `json:"reading_style"`
}
