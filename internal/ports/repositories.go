package ports

import (
	"context"
	"time"

	"github.com/conjugo/conjugo/internal/domain/models"
)

// VerbFilter narrows random verb selection. Zero values mean no constraint.
type VerbFilter struct {
	Infinitives        []string
	TopicTags          []string
	TargetLanguageCode string
	// ExcludeTest excludes verbs flagged is_test from selection.
	ExcludeTest bool
}

// VerbRepository defines operations for verb persistence.
type VerbRepository interface {
	Create(ctx context.Context, verb *models.Verb) error
	GetByID(ctx context.Context, id string) (*models.Verb, error)
	GetByInfinitive(ctx context.Context, infinitive string) (*models.Verb, error)
	GetRandom(ctx context.Context, filter VerbFilter) (*models.Verb, error)
	List(ctx context.Context, limit, offset int) ([]*models.Verb, error)
	Update(ctx context.Context, verb *models.Verb) error
	Delete(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
	// DeleteTestData removes verbs flagged is_test; sentences cascade.
	DeleteTestData(ctx context.Context) (int64, error)
}

// ConjugationRepository defines operations for conjugation persistence.
type ConjugationRepository interface {
	Create(ctx context.Context, conjugation *models.Conjugation) error
	Get(ctx context.Context, infinitive string, auxiliary models.Auxiliary, reflexive bool, tense models.Tense) (*models.Conjugation, error)
	// ListByVerb returns every tense stored for an (infinitive, auxiliary) pair.
	ListByVerb(ctx context.Context, infinitive string, auxiliary models.Auxiliary) ([]*models.Conjugation, error)
	List(ctx context.Context, limit, offset int) ([]*models.Conjugation, error)
	Delete(ctx context.Context, id string) error
}

// SentenceRepository defines operations for sentence persistence.
type SentenceRepository interface {
	Create(ctx context.Context, sentence *models.Sentence) error
	GetByID(ctx context.Context, id string) (*models.Sentence, error)
	ListByVerb(ctx context.Context, verbID string) ([]*models.Sentence, error)
	Delete(ctx context.Context, id string) error
}

// ProblemFilter is the retrieval predicate for the weighted-random selector.
// Zero values mean no constraint.
type ProblemFilter struct {
	ProblemType        models.ProblemType
	GrammaticalFocus   string
	TensesUsed         []string
	TopicTags          []string
	TargetLanguageCode string
}

// ProblemRepository defines operations for problem persistence.
type ProblemRepository interface {
	Create(ctx context.Context, problem *models.Problem) error
	GetByID(ctx context.Context, id string) (*models.Problem, error)
	// SelectRandom runs the staleness-weighted random selection as a single
	// query. Never-served problems compete with the given virtual age.
	SelectRandom(ctx context.Context, filter ProblemFilter, virtualStalenessDays float64) (*models.Problem, error)
	StampServed(ctx context.Context, id string, at time.Time) error
	ListByRequest(ctx context.Context, requestID string) ([]*models.Problem, error)
	// PurgeOlderThan deletes problems created before the cutoff, optionally
	// restricted to a topic tag. Idempotent.
	PurgeOlderThan(ctx context.Context, cutoff time.Time, topicTag string) (int64, error)
	Delete(ctx context.Context, id string) error
}

// RequestListFilter narrows generation-request listing.
type RequestListFilter struct {
	Status     models.RequestStatus
	EntityType string
	Limit      int
}

// RequestCounts is the counter snapshot returned by atomic increments.
type RequestCounts struct {
	Requested int
	Generated int
	Failed    int
}

// GenerationRequestRepository defines operations for request lifecycle
// persistence. Counter increments are atomic read-modify-writes; the tracker
// relies on them being race-free across workers.
type GenerationRequestRepository interface {
	Create(ctx context.Context, request *models.GenerationRequest) error
	GetByID(ctx context.Context, id string) (*models.GenerationRequest, error)
	List(ctx context.Context, filter RequestListFilter) ([]*models.GenerationRequest, error)
	// MarkProcessing advances pending → processing; a no-op for any other state.
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	IncrementGenerated(ctx context.Context, id string) (RequestCounts, error)
	IncrementFailed(ctx context.Context, id string) (RequestCounts, error)
	// Finalize writes a terminal status, guarded so only pending or processing
	// rows transition.
	Finalize(ctx context.Context, id string, status models.RequestStatus, at time.Time) error
	// ExpireStale marks pending/processing rows untouched since the cutoff as
	// expired. Returns the number of rows transitioned.
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
	// DeleteOlderThan removes terminal requests created before the cutoff and
	// nulls generation_request_id on their problems.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// Delete removes one request outright, used to roll back a record whose
	// work was never enqueued.
	Delete(ctx context.Context, id string) error
}

// APIKeyRepository defines operations for API key persistence.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error)
	List(ctx context.Context, limit, offset int) ([]*models.APIKey, error)
	Update(ctx context.Context, key *models.APIKey) error
	Delete(ctx context.Context, id string) error
	// IncrementUsage bumps the usage counter and stamps last_used_at.
	IncrementUsage(ctx context.Context, id string, at time.Time) error
}
