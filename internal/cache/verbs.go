package cache

import (
	"context"
	"sync"

	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

const verbReloadPageSize = 500

// VerbCache is a write-through cache over the verb repository, indexed by id
// and by infinitive. Both indexes are mutated under one mutex so readers
// always see a coherent pair.
type VerbCache struct {
	counters
	repo ports.VerbRepository

	mu           sync.RWMutex
	byID         map[string]*models.Verb
	byInfinitive map[string]*models.Verb
}

func NewVerbCache(repo ports.VerbRepository) *VerbCache {
	return &VerbCache{
		counters:     counters{name: "verbs"},
		repo:         repo,
		byID:         make(map[string]*models.Verb),
		byInfinitive: make(map[string]*models.Verb),
	}
}

// Lookup returns the verb by id, fetching from storage on miss.
func (c *VerbCache) Lookup(ctx context.Context, id string) (*models.Verb, error) {
	c.mu.RLock()
	verb, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return verb, nil
	}
	c.miss()

	v, err, _ := c.group.Do("id:"+id, func() (any, error) {
		verb, err := c.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		c.insert(verb)
		return verb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Verb), nil
}

// LookupByInfinitive returns the verb by infinitive, fetching on miss.
func (c *VerbCache) LookupByInfinitive(ctx context.Context, infinitive string) (*models.Verb, error) {
	c.mu.RLock()
	verb, ok := c.byInfinitive[infinitive]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return verb, nil
	}
	c.miss()

	v, err, _ := c.group.Do("inf:"+infinitive, func() (any, error) {
		verb, err := c.repo.GetByInfinitive(ctx, infinitive)
		if err != nil {
			return nil, err
		}
		c.insert(verb)
		return verb, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Verb), nil
}

// Refresh re-reads the verb from storage and replaces both index entries.
// Called after any create or update commit.
func (c *VerbCache) Refresh(ctx context.Context, id string) error {
	verb, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if old, ok := c.byID[id]; ok && old.Infinitive != verb.Infinitive {
		delete(c.byInfinitive, old.Infinitive)
	}
	c.byID[verb.ID] = verb
	c.byInfinitive[verb.Infinitive] = verb
	c.mu.Unlock()
	return nil
}

// Invalidate drops the verb from both indexes. Called after a delete commit.
func (c *VerbCache) Invalidate(id string) {
	c.mu.Lock()
	if verb, ok := c.byID[id]; ok {
		delete(c.byInfinitive, verb.Infinitive)
		delete(c.byID, id)
	}
	c.mu.Unlock()
}

// ReloadAll drops every entry and re-populates from storage.
func (c *VerbCache) ReloadAll(ctx context.Context) error {
	byID := make(map[string]*models.Verb)
	byInfinitive := make(map[string]*models.Verb)

	for offset := 0; ; offset += verbReloadPageSize {
		page, err := c.repo.List(ctx, verbReloadPageSize, offset)
		if err != nil {
			return err
		}
		for _, verb := range page {
			byID[verb.ID] = verb
			byInfinitive[verb.Infinitive] = verb
		}
		if len(page) < verbReloadPageSize {
			break
		}
	}

	c.mu.Lock()
	c.byID = byID
	c.byInfinitive = byInfinitive
	c.mu.Unlock()
	return nil
}

func (c *VerbCache) Stats() ports.CacheStats {
	c.mu.RLock()
	entries := len(c.byID)
	c.mu.RUnlock()
	return c.stats(entries)
}

func (c *VerbCache) insert(verb *models.Verb) {
	c.mu.Lock()
	c.byID[verb.ID] = verb
	c.byInfinitive[verb.Infinitive] = verb
	c.mu.Unlock()
}
