package cache

import (
	"context"
	"sync"

	"github.com/conjugo/conjugo/internal/domain/models"
	"github.com/conjugo/conjugo/internal/ports"
)

const keyReloadPageSize = 200

// KeyCache caches API keys indexed by id and by 12-char prefix. The auth
// middleware resolves every request through the prefix index, so key lookups
// never touch storage on the hot path.
type KeyCache struct {
	counters
	repo ports.APIKeyRepository

	mu       sync.RWMutex
	byID     map[string]*models.APIKey
	byPrefix map[string]*models.APIKey
}

func NewKeyCache(repo ports.APIKeyRepository) *KeyCache {
	return &KeyCache{
		counters: counters{name: "keys"},
		repo:     repo,
		byID:     make(map[string]*models.APIKey),
		byPrefix: make(map[string]*models.APIKey),
	}
}

// Lookup returns the key by id, fetching from storage on miss.
func (c *KeyCache) Lookup(ctx context.Context, id string) (*models.APIKey, error) {
	c.mu.RLock()
	key, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return key, nil
	}
	c.miss()

	v, err, _ := c.group.Do("id:"+id, func() (any, error) {
		key, err := c.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		c.insert(key)
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.APIKey), nil
}

// LookupByPrefix returns the key whose secret starts with the given 12-char
// prefix, fetching from storage on miss.
func (c *KeyCache) LookupByPrefix(ctx context.Context, prefix string) (*models.APIKey, error) {
	c.mu.RLock()
	key, ok := c.byPrefix[prefix]
	c.mu.RUnlock()
	if ok {
		c.hit()
		return key, nil
	}
	c.miss()

	v, err, _ := c.group.Do("pfx:"+prefix, func() (any, error) {
		key, err := c.repo.GetByPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		c.insert(key)
		return key, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.APIKey), nil
}

// Refresh re-reads the key from storage and replaces both index entries.
func (c *KeyCache) Refresh(ctx context.Context, id string) error {
	key, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if old, ok := c.byID[id]; ok && old.Prefix != key.Prefix {
		delete(c.byPrefix, old.Prefix)
	}
	c.byID[key.ID] = key
	c.byPrefix[key.Prefix] = key
	c.mu.Unlock()
	return nil
}

// Invalidate drops the key from both indexes.
func (c *KeyCache) Invalidate(id string) {
	c.mu.Lock()
	if key, ok := c.byID[id]; ok {
		delete(c.byPrefix, key.Prefix)
		delete(c.byID, id)
	}
	c.mu.Unlock()
}

// ReloadAll drops every entry and re-populates from storage.
func (c *KeyCache) ReloadAll(ctx context.Context) error {
	byID := make(map[string]*models.APIKey)
	byPrefix := make(map[string]*models.APIKey)

	for offset := 0; ; offset += keyReloadPageSize {
		page, err := c.repo.List(ctx, keyReloadPageSize, offset)
		if err != nil {
			return err
		}
		for _, key := range page {
			byID[key.ID] = key
			byPrefix[key.Prefix] = key
		}
		if len(page) < keyReloadPageSize {
			break
		}
	}

	c.mu.Lock()
	c.byID = byID
	c.byPrefix = byPrefix
	c.mu.Unlock()
	return nil
}

func (c *KeyCache) Stats() ports.CacheStats {
	c.mu.RLock()
	entries := len(c.byID)
	c.mu.RUnlock()
	return c.stats(entries)
}

func (c *KeyCache) insert(key *models.APIKey) {
	c.mu.Lock()
	c.byID[key.ID] = key
	c.byPrefix[key.Prefix] = key
	c.mu.Unlock()
}
