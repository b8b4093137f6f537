package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/coverwise/marketcore/internal/core"
)

const (
	keyCatalogList   = "catalog:list"
	keyCatalogPolicy = "catalog:policy:"
)

// CachedCatalog decorates a catalog repo with read-through caching. The
// catalog changes rarely and every recommendation request lists it, so a
// short TTL takes most of the read load off the store. Cache failures are
// logged and the call falls through to the repo.
type CachedCatalog struct {
	repo  core.CatalogRepo
	cache Cache
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedCatalog(repo core.CatalogRepo, c Cache, ttl time.Duration, log *slog.Logger) *CachedCatalog {
	return &CachedCatalog{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		log:   log,
	}
}

func (c *CachedCatalog) List(ctx context.Context) ([]core.Policy, error) {
	if data, err := c.cache.Get(ctx, keyCatalogList); err != nil {
		c.log.Warn("catalog cache get failed", "err", err)
	} else if data != nil {
		var policies []core.Policy
		if err := json.Unmarshal(data, &policies); err == nil {
			return policies, nil
		}
		c.log.Warn("catalog cache entry corrupt, dropping", "key", keyCatalogList)
		_ = c.cache.Delete(ctx, keyCatalogList)
	}

	policies, err := c.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(policies); err == nil {
		if err := c.cache.Set(ctx, keyCatalogList, data, c.ttl); err != nil {
			c.log.Warn("catalog cache set failed", "err", err)
		}
	}
	return policies, nil
}

func (c *CachedCatalog) Get(ctx context.Context, id string) (core.Policy, error) {
	key := keyCatalogPolicy + id

	if data, err := c.cache.Get(ctx, key); err != nil {
		c.log.Warn("catalog cache get failed", "err", err)
	} else if data != nil {
		var p core.Policy
		if err := json.Unmarshal(data, &p); err == nil {
			return p, nil
		}
		c.log.Warn("catalog cache entry corrupt, dropping", "key", key)
		_ = c.cache.Delete(ctx, key)
	}

	p, err := c.repo.Get(ctx, id)
	if err != nil {
		return core.Policy{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.log.Warn("catalog cache set failed", "err", err)
		}
	}
	return p, nil
}

// UpsertByID writes through to the repo and invalidates both the list and
// the per-policy entry so readers never see a stale mix.
func (c *CachedCatalog) UpsertByID(ctx context.Context, p core.Policy) error {
	if err := c.repo.UpsertByID(ctx, p); err != nil {
		return err
	}
	if err := c.cache.Delete(ctx, keyCatalogList); err != nil {
		c.log.Warn("catalog cache invalidate failed", "err", err)
	}
	if err := c.cache.Delete(ctx, keyCatalogPolicy+p.ID); err != nil {
		c.log.Warn("catalog cache invalidate failed", "err", err)
	}
	return nil
}
