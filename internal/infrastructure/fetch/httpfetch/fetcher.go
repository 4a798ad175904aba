package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/infrastructure/resilience"
)

const defaultMaxBytes = 50 << 20

type Options struct {
	Timeout  time.Duration
	MaxBytes int64
	Executor *resilience.Executor
}

// Fetcher downloads source documents over HTTP(S).
type Fetcher struct {
	httpClient *http.Client
	maxBytes   int64
	executor   *resilience.Executor
}

func New(opts Options) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		executor:   opts.Executor,
	}
}

type statusError struct {
	StatusCode int
	Status     string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err := resilience.Call(ctx, f.executor, "file.fetch", func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, url)
	}, classifyFetchError)
	if err != nil {
		return nil, domain.WrapError(domain.ErrFetchFailed, "fetch "+url, err)
	}
	return data, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &statusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", f.maxBytes)
	}
	return data, nil
}

func classifyFetchError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		retryable := isRetryableStatus(statusErr.StatusCode)
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
}

// isRetryableStatus covers 408, 429 and 5xx. Anything else, 404 included,
// is terminal.
func isRetryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}
