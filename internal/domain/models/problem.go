package models

import (
	"time"
)

// ProblemType determines the shape every statement of the problem must carry.
type ProblemType string

const (
	ProblemTypeGrammar    ProblemType = "grammar"
	ProblemTypeFunctional ProblemType = "functional"
	ProblemTypeVocabulary ProblemType = "vocabulary"
)

func (t ProblemType) Valid() bool {
	switch t {
	case ProblemTypeGrammar, ProblemTypeFunctional, ProblemTypeVocabulary:
		return true
	}
	return false
}

// Statement is one multiple-choice option. The keys required depend on the
// problem type (see Problem.ValidateStatements); additional keys are accepted
// and preserved byte-for-byte through storage.
type Statement map[string]any

func (s Statement) hasString(key string) bool {
	v, ok := s[key]
	if !ok {
		return false
	}
	str, ok := v.(string)
	return ok && str != ""
}

func (s Statement) hasBool(key string) bool {
	_, ok := s[key].(bool)
	return ok
}

// IsCorrect reports whether the statement is flagged correct. Missing or
// non-bool values count as incorrect.
func (s Statement) IsCorrect() bool {
	v, _ := s["is_correct"].(bool)
	return v
}

// SentenceTrace records one LLM invocation made while generating a problem.
type SentenceTrace struct {
	Prompt           string `json:"prompt"`
	Model            string `json:"model"`
	ResponseID       string `json:"response_id,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	ReasoningTokens  int    `json:"reasoning_tokens,omitempty"`
	TotalTokens      int    `json:"total_tokens"`
	DurationMs       int64  `json:"duration_ms"`
	ErrorType        string `json:"error_type,omitempty"`
	RawContent       string `json:"raw_content,omitempty"`
}

// GenerationTrace is the per-problem record of every prompt, model response
// and token count used to build it, plus aggregated totals.
type GenerationTrace struct {
	Sentences        []SentenceTrace `json:"sentences"`
	PromptTokens     int             `json:"prompt_tokens"`
	CompletionTokens int             `json:"completion_tokens"`
	ReasoningTokens  int             `json:"reasoning_tokens,omitempty"`
	TotalTokens      int             `json:"total_tokens"`
	DurationMs       int64           `json:"duration_ms"`
	PromptVersion    string          `json:"prompt_version"`
}

// Aggregate recomputes the trace totals from its per-sentence records.
func (t *GenerationTrace) Aggregate() {
	t.PromptTokens, t.CompletionTokens, t.ReasoningTokens, t.TotalTokens, t.DurationMs = 0, 0, 0, 0, 0
	for _, s := range t.Sentences {
		t.PromptTokens += s.PromptTokens
		t.CompletionTokens += s.CompletionTokens
		t.ReasoningTokens += s.ReasoningTokens
		t.TotalTokens += s.TotalTokens
		t.DurationMs += s.DurationMs
	}
}

// ProblemMetadata is the free-form metadata block recorded with every problem.
type ProblemMetadata struct {
	GrammaticalFocus string   `json:"grammatical_focus,omitempty"`
	TensesUsed       []string `json:"tenses_used,omitempty"`
	VerbInfinitives  []string `json:"verb_infinitives,omitempty"`
	IncludesCOD      bool     `json:"includes_cod"`
	IncludesCOI      bool     `json:"includes_coi"`
	IncludesNegation bool     `json:"includes_negation"`
	PromptVersion    string   `json:"prompt_version,omitempty"`
}

// Problem is one multiple-choice quiz problem in the pool.
type Problem struct {
	ID                  string           `json:"id"`
	ProblemType         ProblemType      `json:"problem_type"`
	Title               string           `json:"title"`
	Instructions        string           `json:"instructions"`
	Statements          []Statement      `json:"statements"`
	CorrectAnswerIndex  int              `json:"correct_answer_index"`
	TopicTags           []string         `json:"topic_tags,omitempty"`
	SourceStatementIDs  []string         `json:"source_statement_ids,omitempty"`
	Metadata            ProblemMetadata  `json:"metadata"`
	TargetLanguageCode  string           `json:"target_language_code"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
	LastServedAt        *time.Time       `json:"last_served_at,omitempty"`
	GenerationTrace     *GenerationTrace `json:"generation_trace,omitempty"`
	GenerationRequestID *string          `json:"generation_request_id,omitempty"`
}

// Validate enforces the write-time contract: at least one statement, an
// in-range correct answer index, and the per-type statement shape.
func (p *Problem) Validate() error {
	if len(p.Statements) == 0 {
		return ErrNoStatements
	}
	if p.CorrectAnswerIndex < 0 || p.CorrectAnswerIndex >= len(p.Statements) {
		return ErrInvalidAnswerIndex
	}
	return p.ValidateStatements()
}

// ValidateStatements checks every statement against the shape its problem
// type requires. Grammar statements need content + is_correct and either a
// translation (correct) or an explanation (incorrect); vocabulary needs
// word + definition; functional needs sentence + option. Extra keys pass.
func (p *Problem) ValidateStatements() error {
	for _, s := range p.Statements {
		switch p.ProblemType {
		case ProblemTypeGrammar:
			if !s.hasString("content") || !s.hasBool("is_correct") {
				return ErrInvalidStatementShape
			}
			if s.IsCorrect() {
				if !s.hasString("translation") {
					return ErrInvalidStatementShape
				}
			} else if !s.hasString("explanation") {
				return ErrInvalidStatementShape
			}
		case ProblemTypeVocabulary:
			if !s.hasString("word") || !s.hasString("definition") {
				return ErrInvalidStatementShape
			}
		case ProblemTypeFunctional:
			if !s.hasString("sentence") || !s.hasString("option") {
				return ErrInvalidStatementShape
			}
		default:
			return ErrInvalidStatementShape
		}
	}
	return nil
}
