package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conjugo/conjugo/internal/auth"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
)

// stubKeyRepo serves a fixed key set and records usage stamps.
type stubKeyRepo struct {
	mu     sync.Mutex
	keys   map[string]*models.APIKey
	usages []string
}

func newStubKeyRepo(keys ...*models.APIKey) *stubKeyRepo {
	r := &stubKeyRepo{keys: make(map[string]*models.APIKey)}
	for _, k := range keys {
		r.keys[k.ID] = k
	}
	return r
}

func (r *stubKeyRepo) Create(ctx context.Context, key *models.APIKey) error { return nil }

func (r *stubKeyRepo) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key, ok := r.keys[id]; ok {
		return key, nil
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (r *stubKeyRepo) GetByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range r.keys {
		if key.Prefix == prefix {
			return key, nil
		}
	}
	return nil, domain.ErrAPIKeyNotFound
}

func (r *stubKeyRepo) List(ctx context.Context, limit, offset int) ([]*models.APIKey, error) {
	return nil, nil
}
func (r *stubKeyRepo) Update(ctx context.Context, key *models.APIKey) error { return nil }
func (r *stubKeyRepo) Delete(ctx context.Context, id string) error          { return nil }

func (r *stubKeyRepo) IncrementUsage(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usages = append(r.usages, id)
	return nil
}

func (r *stubKeyRepo) usageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.usages)
}

// mintKey returns a stored key plus the secret that authenticates as it.
func mintKey(t *testing.T, mutate func(*models.APIKey)) (*models.APIKey, string) {
	t.Helper()
	secret, hash, salt, err := auth.MintSecret()
	require.NoError(t, err)

	key := &models.APIKey{
		ID:          "key_1",
		SecretHash:  hash,
		Salt:        salt,
		Prefix:      auth.Prefix(secret),
		Name:        "test",
		Active:      true,
		Permissions: []models.Permission{models.PermissionRead},
	}
	if mutate != nil {
		mutate(key)
	}
	return key, secret
}

func authedHandler(repo *stubKeyRepo) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := GetAPIKey(r.Context())
		if key == nil {
			http.Error(w, "no key in context", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	return APIKeyAuth(cache.NewKeyCache(repo), repo)(inner)
}

func TestAPIKeyAuth_ValidSecret(t *testing.T) {
	key, secret := mintKey(t, nil)
	repo := newStubKeyRepo(key)
	handler := authedHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, secret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	// The usage stamp is asynchronous.
	deadline := time.Now().Add(2 * time.Second)
	for repo.usageCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 1, repo.usageCount())
}

func TestAPIKeyAuth_MissingHeader(t *testing.T) {
	handler := authedHandler(newStubKeyRepo())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"unauthorized"`)
}

func TestAPIKeyAuth_WrongSecretSamePrefix(t *testing.T) {
	key, secret := mintKey(t, nil)
	handler := authedHandler(newStubKeyRepo(key))

	// Same prefix, tampered remainder: the record is found but the hash
	// comparison must reject it.
	tampered := secret[:len(secret)-4] + "zzzz"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, tampered)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_InactiveKey(t *testing.T) {
	key, secret := mintKey(t, func(k *models.APIKey) { k.Active = false })
	handler := authedHandler(newStubKeyRepo(key))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(APIKeyHeader, secret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAPIKeyAuth_IPAllowlist(t *testing.T) {
	key, secret := mintKey(t, func(k *models.APIKey) {
		k.AllowedIPs = []string{"10.0.0.0/8", "192.168.1.5"}
	})
	handler := authedHandler(newStubKeyRepo(key))

	tests := []struct {
		remote string
		status int
	}{
		{"10.1.2.3:4567", http.StatusOK},
		{"192.168.1.5:9999", http.StatusOK},
		{"192.168.1.6:9999", http.StatusForbidden},
		{"203.0.113.9:80", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(APIKeyHeader, secret)
		req.RemoteAddr = tt.remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.status, rec.Code, "remote %s", tt.remote)
	}
}

func TestRequirePermission(t *testing.T) {
	key, _ := mintKey(t, nil)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequirePermission(models.PermissionWrite)(inner)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), apiKeyContextKey, key))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"forbidden"`)

	key.Permissions = []models.Permission{models.PermissionWrite}
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePermission_NoKey(t *testing.T) {
	handler := RequirePermission(models.PermissionRead)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	key, _ := mintKey(t, func(k *models.APIKey) { k.RateLimit = 2 })

	limiter := NewRateLimiter()
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), apiKeyContextKey, key))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestRateLimiter_NoLimitConfigured(t *testing.T) {
	key, _ := mintKey(t, nil)

	limiter := NewRateLimiter()
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(context.WithValue(req.Context(), apiKeyContextKey, key))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
