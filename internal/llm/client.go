package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/conjugo/conjugo/internal/adapters/retry"
)

var tracer = otel.GetTracerProvider().Tracer("internal/llm")

// Client wraps the OpenAI-compatible completions API behind the sentence
// generator. All invocations are non-streaming single completions.
type Client struct {
	api         *openai.Client
	maxTokens   int
	temperature float32
	retryConfig retry.BackoffConfig
}

// NewClient creates the client. baseURL is the API base with or without the
// trailing /v1; maxRetries bounds transient-error retries (network failures,
// 429s, 5xx).
func NewClient(baseURL, apiKey string, maxTokens int, temperature float64, maxRetries int) *Client {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL += "/v1"
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = &http.Client{
		Transport: http.DefaultTransport,
		Timeout:   90 * time.Second,
	}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		maxTokens:   maxTokens,
		temperature: float32(temperature),
		retryConfig: retry.LLMConfig(maxRetries),
	}
}

// Chat sends a non-streaming chat completion against the given model,
// retrying transient failures with backoff.
func (c *Client) Chat(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (openai.ChatCompletionResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	var resp openai.ChatCompletionResponse
	err := retry.WithBackoffHTTP(ctx, c.retryConfig, func() (int, error) {
		var err error
		resp, err = c.createChatCompletion(ctx, req)
		if err != nil {
			var apiErr *openai.APIError
			if errors.As(err, &apiErr) {
				return apiErr.HTTPStatusCode, err
			}
			var reqErr *openai.RequestError
			if errors.As(err, &reqErr) {
				return reqErr.HTTPStatusCode, err
			}
			return 0, err
		}
		return http.StatusOK, nil
	})
	return resp, err
}

// createChatCompletion wraps the API call with an OTel span.
func (c *Client) createChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	ctx, span := tracer.Start(ctx, "llm.chat", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.request.max_tokens", req.MaxTokens),
		attribute.Int("llm.request.messages", len(req.Messages)),
	)
	if req.Temperature > 0 {
		span.SetAttributes(attribute.Float64("llm.request.temperature", float64(req.Temperature)))
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	span.SetAttributes(
		attribute.Int("llm.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int("llm.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens),
	)
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		span.SetAttributes(
			attribute.String("llm.response.finish_reason", string(choice.FinishReason)),
			attribute.Int("llm.response.content_length", len(choice.Message.Content)),
		)
	} else {
		span.SetAttributes(attribute.Int("llm.response.choices", 0))
	}

	return resp, nil
}
