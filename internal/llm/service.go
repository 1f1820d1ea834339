package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/conjugo/conjugo/internal/adapters/metrics"
	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/ports"
)

const (
	// GenerationTimeout is the maximum time to wait for one model invocation.
	GenerationTimeout = 2 * time.Minute
)

// Service implements ports.SentenceGenerator on top of the OpenAI-compatible
// client. Every invocation is cleaned, validated as JSON and instrumented.
type Service struct {
	client       *Client
	defaultModel string
}

// NewService creates a new LLM generation service.
func NewService(client *Client, defaultModel string) *Service {
	return &Service{
		client:       client,
		defaultModel: defaultModel,
	}
}

// Generate sends the prompt to the model and returns the cleaned result.
// Transport errors, non-JSON responses and empty completions fail with a
// *domain.ContentGenerationError carrying the operation tag.
func (s *Service) Generate(ctx context.Context, prompt, model, operation string) (*ports.GenerationResult, error) {
	if model == "" {
		model = s.defaultModel
	}

	ctx, cancel := context.WithTimeout(ctx, GenerationTimeout)
	defer cancel()

	start := time.Now()
	response, err := s.client.Chat(ctx, model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	duration := time.Since(start)

	metrics.LLMRequestDuration.WithLabelValues(model, operation).Observe(duration.Seconds())

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(model, "error", operation).Inc()
		return nil, domain.NewContentGenerationError(operation, err)
	}

	if len(response.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(model, "error", operation).Inc()
		return nil, domain.NewContentGenerationError(operation, fmt.Errorf("no choices in response"))
	}

	raw := response.Choices[0].Message.Content
	cleaned, found := CleanContent(raw)
	if !found || !json.Valid([]byte(cleaned)) {
		metrics.LLMRequestsTotal.WithLabelValues(model, "invalid", operation).Inc()
		return nil, domain.NewContentGenerationError(operation, fmt.Errorf("response is not a JSON object: %q", truncate(raw, 200)))
	}

	metrics.LLMRequestsTotal.WithLabelValues(model, "ok", operation).Inc()
	metrics.LLMPromptTokens.WithLabelValues(model, operation).Add(float64(response.Usage.PromptTokens))
	metrics.LLMCompletionTokens.WithLabelValues(model, operation).Add(float64(response.Usage.CompletionTokens))

	reasoningTokens := 0
	if response.Usage.CompletionTokensDetails != nil {
		reasoningTokens = response.Usage.CompletionTokensDetails.ReasoningTokens
		metrics.LLMReasoningTokens.WithLabelValues(model, operation).Add(float64(reasoningTokens))
	}

	return &ports.GenerationResult{
		Content:          cleaned,
		Model:            response.Model,
		ResponseID:       response.ID,
		DurationMs:       duration.Milliseconds(),
		PromptTokens:     response.Usage.PromptTokens,
		CompletionTokens: response.Usage.CompletionTokens,
		ReasoningTokens:  reasoningTokens,
		TotalTokens:      response.Usage.TotalTokens,
		ReasoningContent: response.Choices[0].Message.ReasoningContent,
		RawContent:       raw,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
