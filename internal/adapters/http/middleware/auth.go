package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
	"github.com/conjugo/conjugo/internal/auth"
	"github.com/conjugo/conjugo/internal/cache"
	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

type contextKey string

const apiKeyContextKey contextKey = "api_key"

// APIKeyHeader carries the full secret; the first 12 characters locate the
// key record, the remainder is verified against the stored hash.
const APIKeyHeader = "X-API-Key"

// APIKeyAuth resolves and verifies the key on every request. Lookups go
// through the key cache, so the hot path never touches storage. Successful
// calls bump the key's usage counter asynchronously.
func APIKeyAuth(keys *cache.KeyCache, repo ports.APIKeyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			secret := strings.TrimSpace(r.Header.Get(APIKeyHeader))
			prefix := auth.Prefix(secret)
			if prefix == "" {
				writeError(w, dto.CodeUnauthorized, "missing api key", http.StatusUnauthorized)
				return
			}

			key, err := keys.LookupByPrefix(r.Context(), prefix)
			if err != nil {
				writeError(w, dto.CodeUnauthorized, "invalid api key", http.StatusUnauthorized)
				return
			}
			if !key.Active || !auth.Verify(secret, key.Salt, key.SecretHash) {
				writeError(w, dto.CodeUnauthorized, "invalid api key", http.StatusUnauthorized)
				return
			}
			if !ipAllowed(key.AllowedIPs, r.RemoteAddr) {
				writeError(w, dto.CodeForbidden, "address not allowed for this key", http.StatusForbidden)
				return
			}

			go func(id string) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := repo.IncrementUsage(ctx, id, time.Now().UTC()); err != nil {
					log.Printf("failed to stamp usage for key %s: %v", id, err)
				}
			}(key.ID)

			ctx := context.WithValue(r.Context(), apiKeyContextKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on the authenticated key's grants.
func RequirePermission(p models.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetAPIKey(r.Context())
			if key == nil {
				writeError(w, dto.CodeUnauthorized, "missing api key", http.StatusUnauthorized)
				return
			}
			if !key.HasPermission(p) {
				writeError(w, dto.CodeForbidden, "api key lacks the "+string(p)+" permission", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetAPIKey returns the authenticated key, or nil outside the auth middleware.
func GetAPIKey(ctx context.Context) *models.APIKey {
	key, _ := ctx.Value(apiKeyContextKey).(*models.APIKey)
	return key
}

// ipAllowed matches the remote address against the key's address or CIDR
// patterns. An empty list allows any address.
func ipAllowed(patterns []string, remoteAddr string) bool {
	if len(patterns) == 0 {
		return true
	}

	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}

	for _, pattern := range patterns {
		if cidr, err := netip.ParsePrefix(pattern); err == nil {
			if cidr.Contains(addr) {
				return true
			}
			continue
		}
		if allowed, err := netip.ParseAddr(pattern); err == nil && allowed == addr {
			return true
		}
	}
	return false
}

func writeError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.NewErrorResponse(code, message))
}
