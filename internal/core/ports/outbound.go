package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/document-explainer/internal/core/domain"
)

// ContractRepository persists Contract records. Methods taking an ownerID
// only see rows created by that identity.
type ContractRepository interface {
	Create(ctx context.Context, contract *domain.Contract) error
	GetByID(ctx context.Context, ownerID, id string) (*domain.Contract, error)
	List(ctx context.Context, ownerID string, filter domain.ContractFilter, sort domain.ContractSort) ([]domain.Contract, error)
	Rename(ctx context.Context, ownerID, id, name string) error
	Delete(ctx context.Context, ownerID, id string) error

	// Complete moves an analyzing record to completed together with its
	// analysis. It is keyed by id only.
	Complete(ctx context.Context, id string, result *domain.AnalysisResult) error
}

// ContractStatusWriter is the service-identity capability used by failure
// cleanup. It can only flip an analyzing record to failed.
type ContractStatusWriter interface {
	MarkFailed(ctx context.Context, id string) error
}

// Authenticator resolves the caller identity from request credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, bearerToken string) (domain.Identity, error)
}

// FileFetcher retrieves raw file bytes by URL.
type FileFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor decodes a document buffer into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ExplanationGenerator sends the assembled prompt to the language model and
// returns the schema-conformant result.
type ExplanationGenerator interface {
	Explain(ctx context.Context, prompt domain.ExplanationPrompt) (*domain.AnalysisResult, error)
}

// ObjectStorage stores uploaded source documents and hands out fetchable URLs.
type ObjectStorage interface {
	Save(ctx context.Context, key, contentType string, size int64, data io.Reader) error
	URL(ctx context.Context, key string) (string, error)
}

// MessageQueue publishes/consumes analysis jobs.
type MessageQueue interface {
	PublishAnalysisRequested(ctx context.Context, job domain.AnalysisJob) error
	SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error
}

// ReportRenderer writes a completed analysis in a downloadable format.
type ReportRenderer interface {
	Render(w io.Writer, contract *domain.Contract) error
}

// AnalysisObserver receives pipeline outcomes for metrics.
type AnalysisObserver interface {
	AnalysisStarted()
	AnalysisFinished(documentType domain.DocumentType, duration time.Duration, err error)
}
