package ports

import (
	"context"

	"github.com/conjugo/conjugo/internal/domain/models"
)

// GenerationResult is the cleaned outcome of one LLM invocation.
type GenerationResult struct {
	// Content is the cleaned response body: fences stripped, first top-level
	// JSON object extracted.
	Content          string
	Model            string
	ResponseID       string
	DurationMs       int64
	PromptTokens     int
	CompletionTokens int
	ReasoningTokens  int
	TotalTokens      int
	ReasoningContent string
	// RawContent is the response before cleaning, kept for the trace.
	RawContent string
}

// SentenceGenerator invokes the external model. Implementations fail with
// *domain.ContentGenerationError carrying the operation tag.
type SentenceGenerator interface {
	Generate(ctx context.Context, prompt, model, operation string) (*GenerationResult, error)
}

// IDGenerator produces prefixed opaque identifiers.
type IDGenerator interface {
	GenerateVerbID() string
	GenerateConjugationID() string
	GenerateSentenceID() string
	GenerateProblemID() string
	GenerateRequestID() string
	GenerateAPIKeyID() string
	GenerateMessageID() string
}

// CacheStats is the snapshot exposed by every cache.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// RequestTracker owns the GenerationRequest lifecycle.
type RequestTracker interface {
	Create(ctx context.Context, entityType string, count int, constraints *models.GenerationConstraints, metadata map[string]any) (*models.GenerationRequest, error)
	MarkProcessing(ctx context.Context, requestID string) error
	RecordGenerated(ctx context.Context, requestID string) error
	RecordFailed(ctx context.Context, requestID string) error
	Get(ctx context.Context, requestID string) (*models.GenerationRequest, error)
	List(ctx context.Context, filter RequestListFilter) ([]*models.GenerationRequest, error)
	ExpireStale(ctx context.Context) (int64, error)
}
