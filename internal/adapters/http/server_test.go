package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conjugo/conjugo/internal/adapters/id"
	"github.com/conjugo/conjugo/internal/application/services"
	"github.com/conjugo/conjugo/internal/auth"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

// Route-level fakes: just enough storage behavior to exercise the router and
// its middleware chain.

type routeKeyRepo struct {
	key *models.APIKey
}

func (r *routeKeyRepo) Create(ctx context.Context, key *models.APIKey) error { return nil }
func (r *routeKeyRepo) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	if r.key != nil && r.key.ID == id {
		return r.key, nil
	}
	return nil, domain.ErrAPIKeyNotFound
}
func (r *routeKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	if r.key != nil && r.key.Prefix == prefix {
		return r.key, nil
	}
	return nil, domain.ErrAPIKeyNotFound
}
func (r *routeKeyRepo) List(ctx context.Context, limit, offset int) ([]*models.APIKey, error) {
	return nil, nil
}
func (r *routeKeyRepo) Update(ctx context.Context, key *models.APIKey) error { return nil }
func (r *routeKeyRepo) Delete(ctx context.Context, id string) error          { return nil }
func (r *routeKeyRepo) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	return nil
}

type routeProblemRepo struct {
	mu      sync.Mutex
	problem *models.Problem
}

func (r *routeProblemRepo) Create(ctx context.Context, problem *models.Problem) error { return nil }
func (r *routeProblemRepo) GetByID(ctx context.Context, id string) (*models.Problem, error) {
	return nil, domain.ErrProblemNotFound
}
func (r *routeProblemRepo) SelectRandom(ctx context.Context, filter ports.ProblemFilter, virtualStalenessDays float64) (*models.Problem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.problem == nil {
		return nil, domain.ErrProblemNotFound
	}
	return r.problem, nil
}
func (r *routeProblemRepo) StampServed(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (r *routeProblemRepo) ListByRequest(ctx context.Context, requestID string) ([]*models.Problem, error) {
	return nil, nil
}
func (r *routeProblemRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time, topicTag string) (int64, error) {
	return 0, nil
}
func (r *routeProblemRepo) Delete(ctx context.Context, id string) error { return nil }

type routeTracker struct{}

func (t *routeTracker) Create(ctx context.Context, entityType string, count int, constraints *models.GenerationConstraints, metadata map[string]any) (*models.GenerationRequest, error) {
	return models.NewGenerationRequest("req_route", entityType, count, constraints, metadata), nil
}
func (t *routeTracker) MarkProcessing(ctx context.Context, requestID string) error  { return nil }
func (t *routeTracker) RecordGenerated(ctx context.Context, requestID string) error { return nil }
func (t *routeTracker) RecordFailed(ctx context.Context, requestID string) error    { return nil }
func (t *routeTracker) Get(ctx context.Context, requestID string) (*models.GenerationRequest, error) {
	return nil, domain.ErrRequestNotFound
}
func (t *routeTracker) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	return nil, nil
}
func (t *routeTracker) ExpireStale(ctx context.Context) (int64, error) { return 0, nil }

type routeRequestRepo struct{}

func (r *routeRequestRepo) Create(ctx context.Context, request *models.GenerationRequest) error {
	return nil
}
func (r *routeRequestRepo) GetByID(ctx context.Context, id string) (*models.GenerationRequest, error) {
	return nil, domain.ErrRequestNotFound
}
func (r *routeRequestRepo) List(ctx context.Context, filter ports.RequestListFilter) ([]*models.GenerationRequest, error) {
	return nil, nil
}
func (r *routeRequestRepo) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (r *routeRequestRepo) IncrementGenerated(ctx context.Context, id string) (ports.RequestCounts, error) {
	return ports.RequestCounts{}, domain.ErrRequestNotFound
}
func (r *routeRequestRepo) IncrementFailed(ctx context.Context, id string) (ports.RequestCounts, error) {
	return ports.RequestCounts{}, domain.ErrRequestNotFound
}
func (r *routeRequestRepo) Finalize(ctx context.Context, id string, status models.RequestStatus, at time.Time) error {
	return nil
}
func (r *routeRequestRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (r *routeRequestRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (r *routeRequestRepo) Delete(ctx context.Context, id string) error { return nil }

type routePublisher struct{}

func (p *routePublisher) Publish(ctx context.Context, msg models.GenerationMessage) error {
	return nil
}
func (p *routePublisher) Close() error { return nil }

type routeBroker struct{}

func (b *routeBroker) PartitionCount(ctx context.Context, topic string) (int, error) {
	return 4, nil
}

func newTestServer(t *testing.T, permissions ...models.Permission) (*Server, string) {
	t.Helper()

	secret, hash, salt, err := auth.MintSecret()
	require.NoError(t, err)

	keyRepo := &routeKeyRepo{key: &models.APIKey{
		ID:          "key_route",
		SecretHash:  hash,
		Salt:        salt,
		Prefix:      auth.Prefix(secret),
		Active:      true,
		Permissions: permissions,
	}}

	problems := &routeProblemRepo{problem: &models.Problem{ID: "prb_route"}}
	conjRepo := &listStubConjugations{}

	server := NewServer("127.0.0.1", 0, Deps{
		Selector:     services.NewSelector(problems, 14),
		Tracker:      &routeTracker{},
		Requests:     &routeRequestRepo{},
		Publisher:    &routePublisher{},
		IDGen:        id.New(),
		Verbs:        cache.NewVerbCache(&listStubVerbs{}),
		Conjugations: cache.NewConjugationCache(conjRepo),
		Keys:         cache.NewKeyCache(keyRepo),
		APIKeys:      keyRepo,
		Broker:       &routeBroker{},
		Topic:        "problem-generation-requests",
	})
	return server, secret
}

type listStubVerbs struct{}

func (r *listStubVerbs) Create(ctx context.Context, verb *models.Verb) error { return nil }
func (r *listStubVerbs) GetByID(ctx context.Context, id string) (*models.Verb, error) {
	return nil, domain.ErrVerbNotFound
}
func (r *listStubVerbs) GetByInfinitive(ctx context.Context, infinitive string) (*models.Verb, error) {
	return nil, domain.ErrVerbNotFound
}
func (r *listStubVerbs) GetRandom(ctx context.Context, filter ports.VerbFilter) (*models.Verb, error) {
	return nil, domain.ErrVerbNotFound
}
func (r *listStubVerbs) List(ctx context.Context, limit, offset int) ([]*models.Verb, error) {
	return nil, nil
}
func (r *listStubVerbs) Update(ctx context.Context, verb *models.Verb) error { return nil }
func (r *listStubVerbs) Delete(ctx context.Context, id string) error         { return nil }
func (r *listStubVerbs) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return nil
}
func (r *listStubVerbs) DeleteTestData(ctx context.Context) (int64, error) { return 0, nil }

type listStubConjugations struct{}

func (r *listStubConjugations) Create(ctx context.Context, conjugation *models.Conjugation) error {
	return nil
}
func (r *listStubConjugations) Get(ctx context.Context, infinitive string, auxiliary models.Auxiliary, reflexive bool, tense models.Tense) (*models.Conjugation, error) {
	return nil, domain.ErrConjugationNotFound
}
func (r *listStubConjugations) ListByVerb(ctx context.Context, infinitive string, auxiliary models.Auxiliary) ([]*models.Conjugation, error) {
	return nil, nil
}
func (r *listStubConjugations) List(ctx context.Context, limit, offset int) ([]*models.Conjugation, error) {
	return nil, nil
}
func (r *listStubConjugations) Delete(ctx context.Context, id string) error { return nil }

func do(server *Server, method, path, secret, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if secret != "" {
		req.Header.Set("X-API-Key", secret)
	}
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_HealthIsOpen(t *testing.T) {
	server, _ := newTestServer(t, models.PermissionRead)
	rec := do(server, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetricsIsOpen(t *testing.T) {
	server, _ := newTestServer(t, models.PermissionRead)
	rec := do(server, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_APIRequiresKey(t *testing.T) {
	server, _ := newTestServer(t, models.PermissionRead)
	rec := do(server, http.MethodGet, "/api/v1/problems/random", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ReadKeyCanRetrieve(t *testing.T) {
	server, secret := newTestServer(t, models.PermissionRead)
	rec := do(server, http.MethodGet, "/api/v1/problems/random", secret, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "prb_route")
}

func TestServer_ReadKeyCannotGenerate(t *testing.T) {
	server, secret := newTestServer(t, models.PermissionRead)
	rec := do(server, http.MethodPost, "/api/v1/problems/generate", secret, `{"count":1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_WriteKeyCanGenerate(t *testing.T) {
	server, secret := newTestServer(t, models.PermissionWrite)
	rec := do(server, http.MethodPost, "/api/v1/problems/generate", secret, `{"count":2}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Contains(t, rec.Body.String(), "req_route")
}

func TestServer_AdminEndpointsNeedAdmin(t *testing.T) {
	server, secret := newTestServer(t, models.PermissionWrite)
	rec := do(server, http.MethodGet, "/api/v1/cache/stats", secret, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin, adminSecret := newTestServer(t, models.PermissionAdmin)
	rec = do(admin, http.MethodGet, "/api/v1/cache/stats", adminSecret, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
