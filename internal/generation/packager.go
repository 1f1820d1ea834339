package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// Packager drives the four sentence generations of one grammar problem (one
// correct, three incorrect) and assembles them into a problem record with a
// full generation trace.
type Packager struct {
	generator ports.SentenceGenerator
	idGen     ports.IDGenerator
	model     string
}

func NewPackager(generator ports.SentenceGenerator, idGen ports.IDGenerator, model string) *Packager {
	return &Packager{
		generator: generator,
		idGen:     idGen,
		model:     model,
	}
}

// sentencePayload is the JSON object every prompt demands from the model.
type sentencePayload struct {
	Sentence    string `json:"sentence"`
	Translation string `json:"translation"`
	Explanation string `json:"explanation"`
}

type sentenceResult struct {
	payload sentencePayload
	trace   models.SentenceTrace
}

// PackageResult is the outcome of one packaging run. Trace is populated even
// on failure so the caller can log what happened per sentence.
type PackageResult struct {
	Problem   *models.Problem
	Sentences []*models.Sentence
	Trace     *models.GenerationTrace
}

// Package generates all four sentences in parallel, waits for every
// invocation to finish, and packages the problem. A single failed sentence
// fails the whole problem; the returned trace still records the error for
// that slot. conj feeds the prompts' conjugation reference and may be nil.
func (p *Packager) Package(ctx context.Context, verb *models.Verb, params models.SentenceParams, conj *models.Conjugation, errorTypes []ErrorType, requestID string, rng *rand.Rand) (*PackageResult, error) {
	if len(errorTypes) != IncorrectPerProblem {
		return nil, fmt.Errorf("expected %d error types, got %d", IncorrectPerProblem, len(errorTypes))
	}

	// Slot 0 is the correct sentence; slots 1..3 are the error types in
	// selection order. The correct statement is shuffled into a random
	// position only at packaging time.
	results := make([]sentenceResult, 1+IncorrectPerProblem)

	var g errgroup.Group
	g.Go(func() error {
		return p.generateInto(ctx, &results[0], RenderCorrectPrompt(verb, params, conj), OperationTag("", true))
	})
	for i, et := range errorTypes {
		g.Go(func() error {
			return p.generateInto(ctx, &results[1+i], RenderErrorPrompt(verb, params, conj, et), OperationTag(et, false))
		})
	}
	err := g.Wait()

	trace := &models.GenerationTrace{PromptVersion: PromptVersion}
	for _, r := range results {
		trace.Sentences = append(trace.Sentences, r.trace)
	}
	trace.Aggregate()

	if err != nil {
		return &PackageResult{Trace: trace}, err
	}

	return p.assemble(verb, params, errorTypes, requestID, results, trace, rng)
}

func (p *Packager) generateInto(ctx context.Context, out *sentenceResult, prompt, operation string) error {
	out.trace.Prompt = prompt
	out.trace.Model = p.model

	result, err := p.generator.Generate(ctx, prompt, p.model, operation)
	if err != nil {
		out.trace.ErrorType = "content_generation_failed"
		return err
	}

	out.trace.Model = result.Model
	out.trace.ResponseID = result.ResponseID
	out.trace.ReasoningContent = result.ReasoningContent
	out.trace.PromptTokens = result.PromptTokens
	out.trace.CompletionTokens = result.CompletionTokens
	out.trace.ReasoningTokens = result.ReasoningTokens
	out.trace.TotalTokens = result.TotalTokens
	out.trace.DurationMs = result.DurationMs
	out.trace.RawContent = result.RawContent

	var payload sentencePayload
	if err := json.Unmarshal([]byte(result.Content), &payload); err != nil {
		out.trace.ErrorType = "content_generation_failed"
		return domain.NewContentGenerationError(operation, fmt.Errorf("response shape mismatch: %w", err))
	}
	if payload.Sentence == "" {
		out.trace.ErrorType = "content_generation_failed"
		return domain.NewContentGenerationError(operation, fmt.Errorf("empty sentence in response"))
	}
	out.payload = payload
	return nil
}

func (p *Packager) assemble(verb *models.Verb, params models.SentenceParams, errorTypes []ErrorType, requestID string, results []sentenceResult, trace *models.GenerationTrace, rng *rand.Rand) (*PackageResult, error) {
	now := time.Now().UTC()

	buildSentence := func(r sentenceResult, correct bool, operation string) (*models.Sentence, error) {
		s := &models.Sentence{
			ID:             p.idGen.GenerateSentenceID(),
			VerbID:         verb.ID,
			Content:        r.payload.Sentence,
			Translation:    r.payload.Translation,
			Pronoun:        params.Pronoun,
			Tense:          params.Tense,
			DirectObject:   params.DirectObject,
			IndirectObject: params.IndirectObject,
			Negation:       params.Negation,
			IsCorrect:      correct,
			Source:         "llm",
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if verb.Reflexive {
			s.ReflexivePronoun = models.ObjectMasculine
		} else {
			s.ReflexivePronoun = models.ObjectNone
		}
		if correct {
			// The correct sentence keeps its translation; models sometimes
			// echo an explanation anyway, which would break the contract.
			s.Explanation = ""
		} else {
			s.Explanation = r.payload.Explanation
			if s.Explanation == "" {
				return nil, domain.NewContentGenerationError(
					operation,
					fmt.Errorf("incorrect sentence came back without an explanation"),
				)
			}
		}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	}

	correct, err := buildSentence(results[0], true, OperationTag("", true))
	if err != nil {
		return &PackageResult{Trace: trace}, err
	}
	incorrect := make([]*models.Sentence, 0, IncorrectPerProblem)
	for i, et := range errorTypes {
		s, err := buildSentence(results[1+i], false, OperationTag(et, false))
		if err != nil {
			return &PackageResult{Trace: trace}, err
		}
		incorrect = append(incorrect, s)
	}

	// Place the correct statement in a uniformly random slot.
	correctIndex := rng.Intn(1 + IncorrectPerProblem)
	ordered := make([]*models.Sentence, 0, 1+IncorrectPerProblem)
	ordered = append(ordered, incorrect[:correctIndex]...)
	ordered = append(ordered, correct)
	ordered = append(ordered, incorrect[correctIndex:]...)

	statements := make([]models.Statement, 0, len(ordered))
	statementIDs := make([]string, 0, len(ordered))
	for _, s := range ordered {
		stmt := models.Statement{
			"content":    s.Content,
			"is_correct": s.IsCorrect,
		}
		if s.IsCorrect {
			stmt["translation"] = s.Translation
		} else {
			stmt["explanation"] = s.Explanation
		}
		statements = append(statements, stmt)
		statementIDs = append(statementIDs, s.ID)
	}

	problem := &models.Problem{
		ID:                 p.idGen.GenerateProblemID(),
		ProblemType:        models.ProblemTypeGrammar,
		Title:              fmt.Sprintf("Le verbe « %s » au %s", verb.Infinitive, params.Tense),
		Instructions:       "Choisissez la phrase grammaticalement correcte.",
		Statements:         statements,
		CorrectAnswerIndex: correctIndex,
		TopicTags:          verb.TopicTags,
		SourceStatementIDs: statementIDs,
		Metadata: models.ProblemMetadata{
			GrammaticalFocus: grammaticalFocus(params),
			TensesUsed:       []string{string(params.Tense)},
			VerbInfinitives:  []string{verb.Infinitive},
			IncludesCOD:      params.DirectObject.Present(),
			IncludesCOI:      params.IndirectObject.Present(),
			IncludesNegation: params.Negation.Present(),
			PromptVersion:    PromptVersion,
		},
		TargetLanguageCode: verb.TargetLanguageCode,
		CreatedAt:          now,
		UpdatedAt:          now,
		GenerationTrace:    trace,
	}
	if requestID != "" {
		problem.GenerationRequestID = &requestID
	}

	if err := problem.Validate(); err != nil {
		return &PackageResult{Trace: trace}, err
	}

	return &PackageResult{
		Problem:   problem,
		Sentences: ordered,
		Trace:     trace,
	}, nil
}

// grammaticalFocus derives the focus tag from the sentence parameters:
// object pronouns dominate when present, then negation, then conjugation.
func grammaticalFocus(params models.SentenceParams) string {
	switch {
	case params.DirectObject.Present() || params.IndirectObject.Present():
		return "pronouns"
	case params.Negation.Present():
		return "negation"
	default:
		return "conjugation"
	}
}
