package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kirillkom/document-explainer/internal/core/domain"
	"github.com/kirillkom/document-explainer/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"

	documentContentSeparator = "\n\nDocument content:\n\n"
)

// UsageRecorder receives token counts reported by the API.
type UsageRecorder interface {
	RecordTokens(model string, promptTokens, completionTokens int)
}

type Options struct {
	BaseURL  string
	Model    string
	Timeout  time.Duration
	Executor *resilience.Executor
	Usage    UsageRecorder
}

// Client is safe for concurrent use; one instance is shared by the process.
// The SDK's own retries are off: attempts are governed by Executor alone.
type Client struct {
	api      sdk.Client
	apiKey   string
	model    string
	executor *resilience.Executor
	usage    UsageRecorder
}

func New(apiKey string, opts Options) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Client{
		api: sdk.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"),
			option.WithHTTPClient(&http.Client{Timeout: timeout}),
			option.WithMaxRetries(0),
		),
		apiKey:   apiKey,
		model:    model,
		executor: opts.Executor,
		usage:    opts.Usage,
	}
}

type Explainer struct {
	client *Client
}

func NewExplainer(client *Client) *Explainer {
	return &Explainer{client: client}
}

// Explain sends one structured-output chat completion and returns the
// validated analysis.
func (e *Explainer) Explain(ctx context.Context, prompt domain.ExplanationPrompt) (*domain.AnalysisResult, error) {
	if strings.TrimSpace(e.client.apiKey) == "" {
		return nil, errors.New("openai api key is not configured")
	}

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(e.client.model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(prompt.System),
			sdk.UserMessage([]sdk.ChatCompletionContentPartUnionParam{
				sdk.TextContentPart(prompt.Task),
				sdk.TextContentPart(documentContentSeparator + prompt.DocumentText),
			}),
		},
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &sdk.ResponseFormatJSONSchemaParam{
				JSONSchema: sdk.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Strict: sdk.Bool(true),
					Schema: schemaDocument(),
				},
			},
		},
	}

	result, err := resilience.Call(ctx, e.client.executor, "openai.chat_completions",
		func(ctx context.Context) (*domain.AnalysisResult, error) {
			return e.client.complete(ctx, params)
		},
		classifyOpenAIError,
	)
	if err != nil {
		return nil, wrapTemporaryIfNeeded("openai chat completion", err)
	}
	return result, nil
}

func (c *Client) complete(ctx context.Context, params sdk.ChatCompletionNewParams) (*domain.AnalysisResult, error) {
	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, statusError("chat completion", err)
	}

	promptTokens := int(completion.Usage.PromptTokens)
	completionTokens := int(completion.Usage.CompletionTokens)
	if c.usage != nil {
		c.usage.RecordTokens(c.model, promptTokens, completionTokens)
	}
	slog.Debug("openai_completion",
		"model", completion.Model,
		"prompt_tokens", promptTokens,
		"completion_tokens", completionTokens,
	)

	if len(completion.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrModelOutput, "read completion", errors.New("no choices in response"))
	}
	choice := completion.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		return nil, domain.WrapError(domain.ErrModelOutput, "read completion", fmt.Errorf("model refused: %s", refusal))
	}
	if choice.FinishReason == "length" {
		return nil, domain.WrapError(domain.ErrModelOutput, "read completion", errors.New("output truncated at token limit"))
	}
	return ParseAnalysis(strings.TrimSpace(choice.Message.Content))
}

// statusError turns an SDK API error into HTTPStatusError so the classifier
// sees the status code. Transport errors pass through unchanged.
func statusError(operation string, err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai %s request: %w", operation, err)
	}
	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = err.Error()
	}
	return &HTTPStatusError{
		Operation:  operation,
		StatusCode: apiErr.StatusCode,
		Status:     fmt.Sprintf("%d %s", apiErr.StatusCode, http.StatusText(apiErr.StatusCode)),
		Body:       message,
		err:        err,
	}
}
