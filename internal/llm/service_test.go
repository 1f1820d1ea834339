package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conjugo/conjugo/internal/domain"
)

func completionResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:    "chatcmpl-test",
		Model: "test-model",
		Choices: []openai.ChatCompletionChoice{
			{
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
				FinishReason: openai.FinishReasonStop,
			},
		},
		Usage: openai.Usage{
			PromptTokens:     120,
			CompletionTokens: 40,
			TotalTokens:      160,
			CompletionTokensDetails: &openai.CompletionTokensDetails{
				ReasoningTokens: 10,
			},
		},
	}
}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, "test-key", 1024, 0.7, 2)
	return NewService(client, "test-model")
}

func TestServiceGenerate_Success(t *testing.T) {
	var gotModel string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model
		json.NewEncoder(w).Encode(completionResponse("```json\n{\"sentence\":\"Je le vois\",\"translation\":\"I see him\",\"explanation\":\"\"}\n```"))
	})

	result, err := svc.Generate(context.Background(), "prompt", "", "correct_sentence")
	require.NoError(t, err)

	assert.Equal(t, "test-model", gotModel)
	assert.JSONEq(t, `{"sentence":"Je le vois","translation":"I see him","explanation":""}`, result.Content)
	assert.Equal(t, "chatcmpl-test", result.ResponseID)
	assert.Equal(t, 120, result.PromptTokens)
	assert.Equal(t, 40, result.CompletionTokens)
	assert.Equal(t, 10, result.ReasoningTokens)
	assert.Equal(t, 160, result.TotalTokens)
	assert.Contains(t, result.RawContent, "```json")
}

func TestServiceGenerate_InvalidJSON(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(completionResponse("I refuse to answer in JSON."))
	})

	_, err := svc.Generate(context.Background(), "prompt", "test-model", "error_sentence:WRONG_CONJUGATION")
	require.Error(t, err)

	var cge *domain.ContentGenerationError
	require.ErrorAs(t, err, &cge)
	assert.Equal(t, "error_sentence:WRONG_CONJUGATION", cge.Operation)
}

func TestServiceGenerate_TransportError(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := svc.Generate(context.Background(), "prompt", "test-model", "correct_sentence")
	require.Error(t, err)
	assert.True(t, domain.IsContentGenerationError(err))
}

func TestServiceGenerate_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(completionResponse(`{"sentence":"ok","translation":"ok","explanation":""}`))
	})

	result, err := svc.Generate(context.Background(), "prompt", "test-model", "correct_sentence")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.JSONEq(t, `{"sentence":"ok","translation":"ok","explanation":""}`, result.Content)
}

func TestServiceGenerate_NoChoices(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(openai.ChatCompletionResponse{ID: "empty", Model: "test-model"})
	})

	_, err := svc.Generate(context.Background(), "prompt", "test-model", "correct_sentence")
	require.Error(t, err)
	assert.True(t, domain.IsContentGenerationError(err))
}
