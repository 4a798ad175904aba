package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/core/ports"
)

const maxContractNameLength = 200

type ContractUseCase struct {
	repo         ports.ContractRepository
	statusWriter ports.ContractStatusWriter
	storage      ports.ObjectStorage
	queue        ports.MessageQueue
	renderer     ports.ReportRenderer

	now func() time.Time
}

func NewContractUseCase(
	repo ports.ContractRepository,
	statusWriter ports.ContractStatusWriter,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	renderer ports.ReportRenderer,
) *ContractUseCase {
	return &ContractUseCase{
		repo:         repo,
		statusWriter: statusWriter,
		storage:      storage,
		queue:        queue,
		renderer:     renderer,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores a source document and returns the URL the analysis pipeline
// will fetch it from.
func (uc *ContractUseCase) Upload(
	ctx context.Context,
	identity domain.Identity,
	filename, contentType string,
	size int64,
	body io.Reader,
) (string, error) {
	if identity.IsZero() {
		return "", domain.WrapError(domain.ErrUnauthorized, "upload", errors.New("no caller identity"))
	}
	if !isPDF(filename, contentType) {
		return "", domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("only pdf documents are supported: %q", filename))
	}

	key := fmt.Sprintf("%s/%s_%s", sanitizeOwner(identity.UserID), uuid.NewString(), sanitizeFilename(filename))
	if err := uc.storage.Save(ctx, key, "application/pdf", size, body); err != nil {
		return "", fmt.Errorf("save to object storage: %w", err)
	}

	fileURL, err := uc.storage.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}
	return fileURL, nil
}

// Submit creates an analyzing record and queues its analysis. The caller
// does not wait for the result; it polls Get until the status is terminal.
func (uc *ContractUseCase) Submit(ctx context.Context, identity domain.Identity, draft ports.ContractDraft) (*domain.Contract, error) {
	if identity.IsZero() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "submit contract", errors.New("no caller identity"))
	}
	name, err := normalizeContractName(draft.ContractName, draft.FileURL)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(draft.FileURL) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit contract", errors.New("file_url is required"))
	}

	now := uc.now()
	contract := &domain.Contract{
		ID:           uuid.NewString(),
		ContractName: name,
		FileURL:      strings.TrimSpace(draft.FileURL),
		DocumentType: domain.ParseDocumentType(draft.DocumentType),
		ReadingStyle: domain.ParseReadingStyle(draft.ReadingStyle),
		Status:       domain.StatusAnalyzing,
		CreatedBy:    identity.UserID,
		CreatedDate:  now,
		UpdatedDate:  now,
	}
	if err := uc.repo.Create(ctx, contract); err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}

	job := domain.AnalysisJob{
		AnalysisRequest: domain.AnalysisRequest{
			ContractID:   contract.ID,
			FileURL:      contract.FileURL,
			DocumentType: string(contract.DocumentType),
			ReadingStyle: string(contract.ReadingStyle),
		},
		UserID:      identity.UserID,
		SubmittedAt: now,
	}
	if err := uc.queue.PublishAnalysisRequested(ctx, job); err != nil {
		if failErr := uc.statusWriter.MarkFailed(ctx, contract.ID); failErr != nil {
			slog.Error("contract_mark_failed_error", "contract_id", contract.ID, "error", failErr)
		} else {
			contract.Status = domain.StatusFailed
		}
		return contract, fmt.Errorf("publish analysis job: %w", err)
	}
	return contract, nil
}

func (uc *ContractUseCase) Get(ctx context.Context, identity domain.Identity, id string) (*domain.Contract, error) {
	if identity.IsZero() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "get contract", errors.New("no caller identity"))
	}
	contract, err := uc.repo.GetByID(ctx, identity.UserID, id)
	if err != nil {
		return nil, fmt.Errorf("get contract: %w", err)
	}
	return contract, nil
}

func (uc *ContractUseCase) List(
	ctx context.Context,
	identity domain.Identity,
	filter domain.ContractFilter,
	sort domain.ContractSort,
) ([]domain.Contract, error) {
	if identity.IsZero() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "list contracts", errors.New("no caller identity"))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list contracts", fmt.Errorf("unknown status %q", filter.Status))
	}
	if filter.DocumentType != "" && !filter.DocumentType.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "list contracts", fmt.Errorf("unknown document type %q", filter.DocumentType))
	}
	filter.NameQuery = strings.TrimSpace(filter.NameQuery)
	contracts, err := uc.repo.List(ctx, identity.UserID, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return contracts, nil
}

func (uc *ContractUseCase) Rename(ctx context.Context, identity domain.Identity, id, name string) (*domain.Contract, error) {
	if identity.IsZero() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "rename contract", errors.New("no caller identity"))
	}
	name, err := normalizeContractName(name, "")
	if err != nil {
		return nil, err
	}
	if err := uc.repo.Rename(ctx, identity.UserID, id, name); err != nil {
		return nil, fmt.Errorf("rename contract: %w", err)
	}
	return uc.Get(ctx, identity, id)
}

func (uc *ContractUseCase) Delete(ctx context.Context, identity domain.Identity, id string) error {
	if identity.IsZero() {
		return domain.WrapError(domain.ErrUnauthorized, "delete contract", errors.New("no caller identity"))
	}
	if err := uc.repo.Delete(ctx, identity.UserID, id); err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	return nil
}

// Export renders a completed analysis into w.
func (uc *ContractUseCase) Export(ctx context.Context, identity domain.Identity, id string, w io.Writer) error {
	contract, err := uc.completed(ctx, identity, id)
	if err != nil {
		return err
	}
	if err := uc.renderer.Render(w, contract); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func (uc *ContractUseCase) completed(ctx context.Context, identity domain.Identity, id string) (*domain.Contract, error) {
	contract, err := uc.Get(ctx, identity, id)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusCompleted || contract.AnalysisData == nil {
		return nil, domain.WrapError(domain.ErrAnalysisNotReady, "load analysis", fmt.Errorf("contract %s is %s", id, contract.Status))
	}
	return contract, nil
}

func normalizeContractName(name, fileURL string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" && fileURL != "" {
		base := filepath.Base(strings.SplitN(fileURL, "?", 2)[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name == "" || name == "." || name == "/" {
		return "", domain.WrapError(domain.ErrInvalidInput, "contract name", errors.New("contract_name is required"))
	}
	if len([]rune(name)) > maxContractNameLength {
		return "", domain.WrapError(domain.ErrInvalidInput, "contract name", fmt.Errorf("contract_name exceeds %d characters", maxContractNameLength))
	}
	return name, nil
}

func isPDF(filename, contentType string) bool {
	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return true
	}
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return strings.EqualFold(mediaType, "application/pdf")
}

func sanitizeOwner(userID string) string {
	owner := strings.Trim(sanitizeFilename(userID), ".")
	if owner == "" {
		return "unknown"
	}
	return owner
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.pdf"
	}
	return base
}
