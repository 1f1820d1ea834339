package cache

import (
	"context"
	"sync"

	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

const conjugationReloadPageSize = 1000

// ConjugationCache caches conjugations keyed by (infinitive, auxiliary). One
// entry holds every tense stored for the pair, which is how the prompt
// builder consumes them.
type ConjugationCache struct {
	counters
	repo ports.ConjugationRepository

	mu      sync.RWMutex
	entries map[string][]*models.Conjugation
}

func NewConjugationCache(repo ports.ConjugationRepository) *ConjugationCache {
	return &ConjugationCache{
		counters: counters{name: "conjugations"},
		repo:     repo,
		entries:  make(map[string][]*models.Conjugation),
	}
}

func conjugationKey(infinitive string, auxiliary models.Auxiliary) string {
	return infinitive + "|" + string(auxiliary)
}

// Lookup returns all tenses for the (infinitive, auxiliary) pair, fetching
// from storage on miss.
func (c *ConjugationCache) Lookup(ctx context.Context, infinitive string, auxiliary models.Auxiliary) ([]*models.Conjugation, error) {
	key := conjugationKey(infinitive, auxiliary)

	c.mu.RLock()
	conjugations, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return conjugations, nil
	}
	c.miss()

	v, err, _ := c.group.Do(key, func() (any, error) {
		conjugations, err := c.repo.ListByVerb(ctx, infinitive, auxiliary)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = conjugations
		c.mu.Unlock()
		return conjugations, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*models.Conjugation), nil
}

// Refresh re-reads every tense for the pair from storage.
func (c *ConjugationCache) Refresh(ctx context.Context, infinitive string, auxiliary models.Auxiliary) error {
	conjugations, err := c.repo.ListByVerb(ctx, infinitive, auxiliary)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[conjugationKey(infinitive, auxiliary)] = conjugations
	c.mu.Unlock()
	return nil
}

// Invalidate drops the pair's entry.
func (c *ConjugationCache) Invalidate(infinitive string, auxiliary models.Auxiliary) {
	c.mu.Lock()
	delete(c.entries, conjugationKey(infinitive, auxiliary))
	c.mu.Unlock()
}

// ReloadAll drops every entry and re-populates from storage.
func (c *ConjugationCache) ReloadAll(ctx context.Context) error {
	entries := make(map[string][]*models.Conjugation)

	for offset := 0; ; offset += conjugationReloadPageSize {
		page, err := c.repo.List(ctx, conjugationReloadPageSize, offset)
		if err != nil {
			return err
		}
		for _, conj := range page {
			key := conjugationKey(conj.Infinitive, conj.Auxiliary)
			entries[key] = append(entries[key], conj)
		}
		if len(page) < conjugationReloadPageSize {
			break
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

func (c *ConjugationCache) Stats() ports.CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	return c.stats(entries)
}
