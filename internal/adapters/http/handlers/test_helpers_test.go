package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// stubProblemRepo serves a fixed problem for every random pick.
type stubProblemRepo struct {
	mu       sync.Mutex
	problems map[string]*models.Problem
	random   *models.Problem
	filters  []ports.ProblemFilter
}

func newStubProblemRepo() *stubProblemRepo {
	return &stubProblemRepo{problems: make(map[string]*models.Problem)}
}

func (r *stubProblemRepo) Create(ctx context.Context, problem *models.Problem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.problems[problem.ID] = problem
	return nil
}

func (r *stubProblemRepo) GetByID(ctx context.Context, id string) (*models.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if problem, ok := r.problems[id]; ok {
		return problem, nil
	}
	return nil, domain.ErrProblemNotFound
}

func (r *stubProblemRepo) SelectRandom(ctx context.Context, filter ports.ProblemFilter, virtualStalenessDays float64) (*models.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, filter)
	if r.random == nil {
		return nil, domain.ErrProblemNotFound
	}
	return r.random, nil
}

func (r *stubProblemRepo) StampServed(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (r *stubProblemRepo) ListByRequest(ctx context.Context, requestID string) ([]*models.Problem, error) {
	return nil, nil
}

func (r *stubProblemRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time, topicTag string) (int64, error) {
	return 0, nil
}

func (r *stubProblemRepo) Delete(ctx context.Context, id string) error { return nil }

func (r *stubProblemRepo) lastFilter() ports.ProblemFilter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.filters) == 0 {
		return ports.ProblemFilter{}
	}
	return r.filters[len(r.filters)-1]
}

// stubTracker hands out sequential requests and counts outcome records.
type stubTracker struct {
	mu        sync.Mutex
	createErr error
	requests  map[string]*models.GenerationRequest
	failed    map[string]int
	seq       int
}

func newStubTracker() *stubTracker {
	return &stubTracker{
		requests: make(map[string]*models.GenerationRequest),
		failed:   make(map[string]int),
	}
}

func (t *stubTracker) Create(ctx context.Context, entityType string, count int, constraints *models.GenerationConstraints, metadata map[string]any) (*models.GenerationRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.createErr != nil {
		return nil, t.createErr
	}
	t.seq++
	request := models.NewGenerationRequest(fmt.Sprintf("req_%d", t.seq), entityType, count, constraints, metadata)
	t.requests[request.ID] = request
	return request, nil
}

func (t *stubTracker) MarkProcessing(ctx context.Context, requestID string) error { return nil }
func (t *stubTracker) RecordGenerated(ctx context.Context, requestID string) error {
	return nil
}

func (t *stubTracker) RecordFailed(ctx context.Context, requestID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed[requestID]++
	return nil
}

func (t *stubTracker) Get(ctx context.Context, requestID string) (*models.GenerationRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if request, ok := t.requests[requestID]; ok {
		return request, nil
	}
	return nil, domain.ErrRequestNotFound
}

func (t *stubTracker) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*models.GenerationRequest
	for _, request := range t.requests {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		out = append(out, request)
	}
	return out, nil
}

func (t *stubTracker) ExpireStale(ctx context.Context) (int64, error) { return 0, nil }

func (t *stubTracker) failedCount(requestID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed[requestID]
}

// stubPublisher records published messages; failAfter fails every publish
// once that many have succeeded, and a negative failAfter fails all of them.
type stubPublisher struct {
	mu        sync.Mutex
	messages  []models.GenerationMessage
	failAfter int
}

func (p *stubPublisher) Publish(ctx context.Context, msg models.GenerationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failAfter < 0 || (p.failAfter > 0 && len(p.messages) >= p.failAfter) {
		return domain.ErrBrokerUnavailable
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func (p *stubPublisher) published() []models.GenerationMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.GenerationMessage(nil), p.messages...)
}

// seqIDGen yields deterministic ids.
type seqIDGen struct {
	mu  sync.Mutex
	seq int
}

func (g *seqIDGen) next(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("%s_%d", prefix, g.seq)
}

func (g *seqIDGen) GenerateVerbID() string        { return g.next("vrb") }
func (g *seqIDGen) GenerateConjugationID() string { return g.next("cnj") }
func (g *seqIDGen) GenerateSentenceID() string    { return g.next("snt") }
func (g *seqIDGen) GenerateProblemID() string     { return g.next("prb") }
func (g *seqIDGen) GenerateRequestID() string     { return g.next("req") }
func (g *seqIDGen) GenerateAPIKeyID() string      { return g.next("key") }
func (g *seqIDGen) GenerateMessageID() string     { return g.next("msg") }

// stubRequestRepo backs the administrative clean endpoint and the rollback
// path of generate.
type stubRequestRepo struct {
	deleted    int64
	cutoffs    []time.Time
	deleteErr  error
	deletedIDs []string
}

func (r *stubRequestRepo) Create(ctx context.Context, request *models.GenerationRequest) error {
	return nil
}

func (r *stubRequestRepo) GetByID(ctx context.Context, id string) (*models.GenerationRequest, error) {
	return nil, domain.ErrRequestNotFound
}

func (r *stubRequestRepo) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	return nil, nil
}

func (r *stubRequestRepo) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (r *stubRequestRepo) IncrementGenerated(ctx context.Context, id string) (ports.RequestCounts, error) {
	return ports.RequestCounts{}, domain.ErrRequestNotFound
}

func (r *stubRequestRepo) IncrementFailed(ctx context.Context, id string) (ports.RequestCounts, error) {
	return ports.RequestCounts{}, domain.ErrRequestNotFound
}

func (r *stubRequestRepo) Finalize(ctx context.Context, id string, status models.RequestStatus, at time.Time) error {
	return nil
}

func (r *stubRequestRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (r *stubRequestRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.deleteErr != nil {
		return 0, r.deleteErr
	}
	r.cutoffs = append(r.cutoffs, cutoff)
	return r.deleted, nil
}

func (r *stubRequestRepo) Delete(ctx context.Context, id string) error {
	r.deletedIDs = append(r.deletedIDs, id)
	return nil
}
