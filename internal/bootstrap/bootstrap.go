package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/core/ports"
	"github.com/kirillkom/document-explainer/internal/core/usecase"
	"github.com/kirillkom/document-explainer/internal/infrastructure/auth/jwtauth"
	"github.com/kirillkom/document-explainer/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/document-explainer/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/document-explainer/internal/infrastructure/fetch/httpfetch"
	"github.com/kirillkom/document-explainer/internal/infrastructure/llm/openai"
	"github.com/kirillkom/document-explainer/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-explainer/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-explainer/internal/infrastructure/resilience"
	"github.com/kirillkom/document-explainer/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-explainer/internal/infrastructure/storage/minio"
	"github.com/kirillkom/document-explainer/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	Repo      ports.ContractRepository
	Auth      *jwtauth.Authenticator
	Analyzer  *usecase.AnalyzeDocumentUseCase
	Contracts *usecase.ContractUseCase

	// LocalFiles is set only for the local storage backend, whose URLs
	// point back at the API.
	LocalFiles *localfs.Storage

	closeFn func()
}

// New wires the process. analysisMetrics may be nil.
func New(ctx context.Context, cfg config.Config, analysisMetrics *metrics.AnalysisMetrics) (*App, error) {
	auth, err := jwtauth.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("init authenticator: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewContractRepository(db)

	var (
		storage    ports.ObjectStorage
		localFiles *localfs.Storage
	)
	switch cfg.StorageBackend {
	case "minio":
		bucket, err := minio.New(minio.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			Region:    cfg.MinIORegion,
			UseSSL:    cfg.MinIOUseSSL,
			URLExpiry: cfg.MinIOURLExpiry,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := bucket.EnsureBucket(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		storage = bucket
	case "local", "":
		localFiles, err = localfs.New(cfg.StoragePath, cfg.PublicBaseURL)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		storage = localFiles
	default:
		_ = db.Close()
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		DrainTimeout:       cfg.AnalysisTimeout + 30*time.Second,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	fetcher := httpfetch.New(httpfetch.Options{
		MaxBytes: cfg.FetchMaxBytes,
		Executor: resilience.NewExecutor(FetchPolicy(cfg)),
	})

	llmOptions := openai.Options{
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.OpenAIModel,
		Timeout:  cfg.OpenAITimeout,
		Executor: resilience.NewExecutor(ModelCallPolicy(cfg)),
	}
	analyzeOptions := usecase.AnalyzeOptions{StabilizationDelay: cfg.AnalysisStabilizationDelay}
	if analysisMetrics != nil {
		llmOptions.Usage = analysisMetrics
		analyzeOptions.Observer = analysisMetrics
	}
	explainer := openai.NewExplainer(openai.New(cfg.OpenAIAPIKey, llmOptions))

	analyzer := usecase.NewAnalyzeDocumentUseCase(
		repo,
		repo,
		fetcher,
		pdftext.NewExtractor(cfg.PDFMaxPages),
		explainer,
		analyzeOptions,
	)
	contracts := usecase.NewContractUseCase(repo, repo, storage, queue, xlsx.NewRenderer())

	return &App{
		Config:     cfg,
		Queue:      queue,
		Repo:       repo,
		Auth:       auth,
		Analyzer:   analyzer,
		Contracts:  contracts,
		LocalFiles: localFiles,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

// FetchPolicy makes one attempt unless FETCH_RETRY_ATTEMPTS asks for more.
func FetchPolicy(cfg config.Config) resilience.Config {
	return resilience.DefaultConfig().SingleAttempt().WithRetries(cfg.FetchRetryAttempts, 500*time.Millisecond, 5*time.Second)
}

// ModelCallPolicy makes one attempt unless OPENAI_RETRY_ATTEMPTS asks for
// more. The breaker stays on either way.
func ModelCallPolicy(cfg config.Config) resilience.Config {
	return resilience.DefaultConfig().SingleAttempt().WithRetries(cfg.OpenAIRetryAttempts, time.Second, 10*time.Second)
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
