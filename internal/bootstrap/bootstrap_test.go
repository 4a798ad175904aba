package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/kirillkom/document-explainer/internal/config"
	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/infrastructure/llm/openai"
	"github.com/kirillkom/document-explainer/internal/infrastructure/resilience"
)

func TestDefaultPoliciesMakeSingleAttempt(t *testing.T) {
	cfg := config.Config{FetchRetryAttempts: 1, OpenAIRetryAttempts: 1}

	if got := ModelCallPolicy(cfg).RetryMaxAttempts; got != 1 {
		t.Fatalf("expected one model call attempt, got %d", got)
	}
	if got := FetchPolicy(cfg).RetryMaxAttempts; got != 1 {
		t.Fatalf("expected one fetch attempt, got %d", got)
	}
	if !ModelCallPolicy(cfg).BreakerEnabled {
		t.Fatalf("expected breaker to stay enabled")
	}
}

func TestRetryAttemptsAreOptIn(t *testing.T) {
	cfg := config.Config{FetchRetryAttempts: 3, OpenAIRetryAttempts: 2}

	if got := ModelCallPolicy(cfg).RetryMaxAttempts; got != 2 {
		t.Fatalf("expected 2 model call attempts, got %d", got)
	}
	if got := FetchPolicy(cfg).RetryMaxAttempts; got != 3 {
		t.Fatalf("expected 3 fetch attempts, got %d", got)
	}
}

func TestModelCallIsNotRetriedOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	cfg := config.Config{OpenAIRetryAttempts: 1}
	explainer := openai.NewExplainer(openai.New("sk-test", openai.Options{
		BaseURL:  server.URL,
		Executor: resilience.NewExecutor(ModelCallPolicy(cfg)),
	}))

	_, err := explainer.Explain(context.Background(), domain.ExplanationPrompt{
		System:       "system",
		Task:         "task",
		DocumentText: "text",
	})
	if err == nil {
		t.Fatalf("expected rate limit error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one model call, got %d", got)
	}
}
