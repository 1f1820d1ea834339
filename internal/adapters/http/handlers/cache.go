package handlers

import (
	"net/http"

	"github.com/conjugo/conjugo/internal/adapters/http/dto"
	"github.com/conjugo/conjugo/internal/cache"
)

type CacheHandler struct {
	verbs        *cache.VerbCache
	conjugations *cache.ConjugationCache
	keys         *cache.KeyCache
}

func NewCacheHandler(verbs *cache.VerbCache, conjugations *cache.ConjugationCache, keys *cache.KeyCache) *CacheHandler {
	return &CacheHandler{
		verbs:        verbs,
		conjugations: conjugations,
		keys:         keys,
	}
}

// Stats handles GET /cache/stats.
func (h *CacheHandler) Stats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, dto.CacheStatsResponse{
		"verbs":        h.verbs.Stats(),
		"conjugations": h.conjugations.Stats(),
		"keys":         h.keys.Stats(),
	}, http.StatusOK)
}

// Reload handles POST /cache/reload. The optional `cache` query parameter
// restricts the reload to one cache; default is all three.
func (h *CacheHandler) Reload(w http.ResponseWriter, r *http.Request) {
	which := r.URL.Query().Get("cache")

	reloads := map[string]func() error{
		"verbs":        func() error { return h.verbs.ReloadAll(r.Context()) },
		"conjugations": func() error { return h.conjugations.ReloadAll(r.Context()) },
		"keys":         func() error { return h.keys.ReloadAll(r.Context()) },
	}

	if which != "" {
		reload, ok := reloads[which]
		if !ok {
			respondError(w, dto.CodeValidationError, "unknown cache: "+which, http.StatusBadRequest)
			return
		}
		reloads = map[string]func() error{which: reload}
	}

	for name, reload := range reloads {
		if err := reload(); err != nil {
			respondError(w, dto.CodeInternal, "failed to reload "+name+" cache", http.StatusInternalServerError)
			return
		}
	}
	h.Stats(w, r)
}
