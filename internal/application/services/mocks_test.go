package services

import (
	"context"
	"sync"
	"time"

	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// fakeRequestRepository is an in-memory GenerationRequestRepository with the
// same atomic-increment semantics as the real one.
type fakeRequestRepository struct {
	mu        sync.Mutex
	requests  map[string]*models.GenerationRequest
	finalized map[string]models.RequestStatus
}

func newFakeRequestRepository() *fakeRequestRepository {
	return &fakeRequestRepository{
		requests:  make(map[string]*models.GenerationRequest),
		finalized: make(map[string]models.RequestStatus),
	}
}

func (f *fakeRequestRepository) Create(ctx context.Context, request *models.GenerationRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[request.ID]; ok {
		return domain.ErrAlreadyExists
	}
	clone := *request
	f.requests[request.ID] = &clone
	return nil
}

func (f *fakeRequestRepository) GetByID(ctx context.Context, id string) (*models.GenerationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	clone := *request
	return &clone, nil
}

func (f *fakeRequestRepository) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.GenerationRequest
	for _, request := range f.requests {
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		clone := *request
		out = append(out, &clone)
	}
	return out, nil
}

func (f *fakeRequestRepository) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil
	}
	if request.Status == models.RequestStatusPending {
		request.Status = models.RequestStatusProcessing
		request.StartedAt = &at
	}
	return nil
}

func (f *fakeRequestRepository) IncrementGenerated(ctx context.Context, id string) (ports.RequestCounts, error) {
	return f.increment(id, true)
}

func (f *fakeRequestRepository) IncrementFailed(ctx context.Context, id string) (ports.RequestCounts, error) {
	return f.increment(id, false)
}

func (f *fakeRequestRepository) increment(id string, generated bool) (ports.RequestCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return ports.RequestCounts{}, domain.ErrRequestNotFound
	}
	if generated {
		request.GeneratedCount++
	} else {
		request.FailedCount++
	}
	return ports.RequestCounts{
		Requested: request.RequestedCount,
		Generated: request.GeneratedCount,
		Failed:    request.FailedCount,
	}, nil
}

func (f *fakeRequestRepository) Finalize(ctx context.Context, id string, status models.RequestStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil
	}
	if request.Status == models.RequestStatusPending || request.Status == models.RequestStatusProcessing {
		request.Status = status
		request.CompletedAt = &at
		f.finalized[id] = status
	}
	return nil
}

func (f *fakeRequestRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired int64
	for _, request := range f.requests {
		if request.Status.Terminal() {
			continue
		}
		if request.RequestedAt.Before(cutoff) {
			request.Status = models.RequestStatusExpired
			expired++
		}
	}
	return expired, nil
}

func (f *fakeRequestRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for id, request := range f.requests {
		if request.Status.Terminal() && request.RequestedAt.Before(cutoff) {
			delete(f.requests, id)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeRequestRepository) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.requests[id]; !ok {
		return domain.ErrRequestNotFound
	}
	delete(f.requests, id)
	return nil
}

func (f *fakeRequestRepository) finalizedStatus(id string) (models.RequestStatus, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.finalized[id]
	return status, ok
}

// fakeProblemRepository records serves and stamps for selector tests.
type fakeProblemRepository struct {
	mu        sync.Mutex
	problems  map[string]*models.Problem
	byRequest map[string][]*models.Problem
	selectErr error
	stamped   chan string
}

func newFakeProblemRepository() *fakeProblemRepository {
	return &fakeProblemRepository{
		problems:  make(map[string]*models.Problem),
		byRequest: make(map[string][]*models.Problem),
		stamped:   make(chan string, 16),
	}
}

func (f *fakeProblemRepository) Create(ctx context.Context, problem *models.Problem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.problems[problem.ID] = problem
	if problem.GenerationRequestID != nil {
		rid := *problem.GenerationRequestID
		f.byRequest[rid] = append(f.byRequest[rid], problem)
	}
	return nil
}

func (f *fakeProblemRepository) GetByID(ctx context.Context, id string) (*models.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	problem, ok := f.problems[id]
	if !ok {
		return nil, domain.ErrProblemNotFound
	}
	return problem, nil
}

func (f *fakeProblemRepository) SelectRandom(ctx context.Context, filter ports.ProblemFilter, virtualStalenessDays float64) (*models.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	for _, problem := range f.problems {
		return problem, nil
	}
	return nil, domain.ErrProblemNotFound
}

func (f *fakeProblemRepository) StampServed(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	if problem, ok := f.problems[id]; ok {
		problem.LastServedAt = &at
	}
	f.mu.Unlock()
	f.stamped <- id
	return nil
}

func (f *fakeProblemRepository) ListByRequest(ctx context.Context, requestID string) ([]*models.Problem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byRequest[requestID], nil
}

func (f *fakeProblemRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time, topicTag string) (int64, error) {
	return 0, nil
}

func (f *fakeProblemRepository) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.problems, id)
	return nil
}

// fixedIDGenerator hands out deterministic ids.
type fixedIDGenerator struct {
	mu   sync.Mutex
	next int
}

func (g *fixedIDGenerator) generate(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return prefix + "_" + string(rune('a'+g.next-1))
}

func (g *fixedIDGenerator) GenerateVerbID() string        { return g.generate("vrb") }
func (g *fixedIDGenerator) GenerateConjugationID() string { return g.generate("cj") }
func (g *fixedIDGenerator) GenerateSentenceID() string    { return g.generate("snt") }
func (g *fixedIDGenerator) GenerateProblemID() string     { return g.generate("prb") }
func (g *fixedIDGenerator) GenerateRequestID() string     { return g.generate("req") }
func (g *fixedIDGenerator) GenerateAPIKeyID() string      { return g.generate("key") }
func (g *fixedIDGenerator) GenerateMessageID() string     { return g.generate("msg") }
