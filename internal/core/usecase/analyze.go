package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/core/ports"
)

type AnalyzeOptions struct {
	// StabilizationDelay is waited before the file is fetched so that a
	// freshly uploaded object is visible in the file store. Zero disables it.
	StabilizationDelay time.Duration
	Observer           ports.AnalysisObserver
}

type AnalyzeDocumentUseCase struct {
	repo         ports.ContractRepository
	statusWriter ports.ContractStatusWriter
	fetcher      ports.FileFetcher
	extractor    ports.TextExtractor
	generator    ports.ExplanationGenerator

	stabilizationDelay time.Duration
	observer           ports.AnalysisObserver
}

func NewAnalyzeDocumentUseCase(
	repo ports.ContractRepository,
	statusWriter ports.ContractStatusWriter,
	fetcher ports.FileFetcher,
	extractor ports.TextExtractor,
	generator ports.ExplanationGenerator,
	opts AnalyzeOptions,
) *AnalyzeDocumentUseCase {
	return &AnalyzeDocumentUseCase{
		repo:               repo,
		statusWriter:       statusWriter,
		fetcher:            fetcher,
		extractor:          extractor,
		generator:          generator,
		stabilizationDelay: opts.StabilizationDelay,
		observer:           opts.Observer,
	}
}

// Analyze runs the explanation pipeline for one analyzing record. Any error
// after the identity check is followed by a best-effort mark-failed write
// for req.ContractID.
func (uc *AnalyzeDocumentUseCase) Analyze(
	ctx context.Context,
	identity domain.Identity,
	req domain.AnalysisRequest,
) (*domain.AnalysisResult, error) {
	if identity.IsZero() {
		return nil, domain.WrapError(domain.ErrUnauthorized, "analyze document", errors.New("no caller identity"))
	}

	docType := domain.ParseDocumentType(req.DocumentType)
	logger := slog.With("contract_id", req.ContractID, "user_id", identity.UserID)
	logger.Info("analysis_started",
		"file_url", req.FileURL,
		"document_type", docType,
		"reading_style", domain.ParseReadingStyle(req.ReadingStyle),
	)

	start := time.Now()
	if uc.observer != nil {
		uc.observer.AnalysisStarted()
	}

	result, err := uc.runPipeline(ctx, req)

	if uc.observer != nil {
		uc.observer.AnalysisFinished(docType, time.Since(start), err)
	}
	if err != nil {
		logger.Error("analysis_failed", "error", err)
		uc.Abandon(ctx, req.ContractID, err)
		return nil, err
	}

	logger.Info("analysis_completed", "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}

// Abandon marks the record failed through the service identity. It is a
// no-op without an id, and a failed cleanup write is only logged.
func (uc *AnalyzeDocumentUseCase) Abandon(ctx context.Context, contractID string, cause error) {
	contractID = strings.TrimSpace(contractID)
	if contractID == "" {
		slog.Warn("analysis_cleanup_skipped", "reason", "contract id not recoverable", "cause", cause)
		return
	}

	// The request context may already be cancelled; cleanup gets its own budget.
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := uc.statusWriter.MarkFailed(cleanupCtx, contractID); err != nil {
		slog.Error("analysis_cleanup_failed", "contract_id", contractID, "error", err)
		return
	}
	slog.Info("contract_marked_failed", "contract_id", contractID)
}

func (uc *AnalyzeDocumentUseCase) runPipeline(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisResult, error) {
	if err := validateAnalysisRequest(req); err != nil {
		return nil, err
	}

	if err := uc.waitForStorage(ctx); err != nil {
		return nil, err
	}

	data, err := uc.fetch(ctx, req.FileURL)
	if err != nil {
		return nil, err
	}

	text, err := uc.extractText(ctx, data)
	if err != nil {
		return nil, err
	}

	prompt := BuildExplanationPrompt(
		domain.ParseDocumentType(req.DocumentType),
		domain.ParseReadingStyle(req.ReadingStyle),
		text,
	)

	result, err := uc.explain(ctx, prompt)
	if err != nil {
		return nil, err
	}

	if err := uc.persistCompletion(ctx, req.ContractID, result); err != nil {
		return nil, err
	}
	return result, nil
}

func validateAnalysisRequest(req domain.AnalysisRequest) error {
	if strings.TrimSpace(req.ContractID) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", errors.New("contractId is required"))
	}
	parsed, err := url.Parse(strings.TrimSpace(req.FileURL))
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", fmt.Errorf("fileUrl must be an absolute http(s) url: %q", req.FileURL))
	}
	return nil
}

func (uc *AnalyzeDocumentUseCase) waitForStorage(ctx context.Context) error {
	if uc.stabilizationDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(uc.stabilizationDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("wait for file store: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

func (uc *AnalyzeDocumentUseCase) fetch(ctx context.Context, fileURL string) ([]byte, error) {
	data, err := uc.fetcher.Fetch(ctx, fileURL)
	if err != nil {
		return nil, fmt.Errorf("fetch file: %w", err)
	}
	if len(data) == 0 {
		return nil, domain.WrapError(domain.ErrFetchFailed, "fetch file", errors.New("empty response body"))
	}
	return data, nil
}

func (uc *AnalyzeDocumentUseCase) extractText(ctx context.Context, data []byte) (string, error) {
	text, err := uc.extractor.Extract(ctx, data)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrExtractFailed, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *AnalyzeDocumentUseCase) explain(ctx context.Context, prompt domain.ExplanationPrompt) (*domain.AnalysisResult, error) {
	result, err := uc.generator.Explain(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate explanation: %w", err)
	}
	if result == nil {
		return nil, domain.WrapError(domain.ErrModelOutput, "generate explanation", errors.New("empty result"))
	}
	return result, nil
}

func (uc *AnalyzeDocumentUseCase) persistCompletion(ctx context.Context, contractID string, result *domain.AnalysisResult) error {
	if err := uc.repo.Complete(ctx, contractID, result); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}
