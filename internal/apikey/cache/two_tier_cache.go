package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	cryptoService "github.com/allisson/keyguard/internal/crypto/service"
)

const (
	hashKeyPrefix = "apikey:hash:"
	idKeyPrefix   = "apikey:id:"
)

// Tier and outcome labels passed to a LookupObserver.
const (
	TierLocal       = "local"
	TierDistributed = "distributed"
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
)

// LookupObserver is told the outcome of every tier lookup.
type LookupObserver interface {
	RecordCacheLookup(ctx context.Context, tier, outcome string)
}

// Config bounds both cache tiers.
type Config struct {
	// TTL is how long an entry may live in the distributed tier.
	TTL time.Duration
	// LocalMaxAge expires local entries; zero keeps them until invalidated.
	// With a distributed tier the local lifetime never exceeds TTL, so a key
	// invalidated by another instance stops validating here within TTL.
	LocalMaxAge time.Duration
	// Timeout bounds every call to the distributed tier.
	Timeout time.Duration
}

type localEntry struct {
	value    *apikeyDomain.CachedKey
	storedAt time.Time
}

// TwoTierCache looks keys up in a process-local map first and then in an
// optional distributed cache. Distributed failures are logged and treated as
// misses so cache unavailability never blocks authentication.
type TwoTierCache struct {
	mu          sync.RWMutex
	byHash      map[string]*localEntry
	byID        map[uuid.UUID]string
	distributed DistributedCache
	observer    LookupObserver
	cfg         Config
	clock       clockwork.Clock
	logger      *slog.Logger
}

// NewTwoTierCache creates a cache. distributed may be nil for local-only operation.
func NewTwoTierCache(
	distributed DistributedCache,
	cfg Config,
	clock clockwork.Clock,
	logger *slog.Logger,
) *TwoTierCache {
	if distributed != nil && cfg.TTL > 0 && (cfg.LocalMaxAge <= 0 || cfg.LocalMaxAge > cfg.TTL) {
		cfg.LocalMaxAge = cfg.TTL
	}
	return &TwoTierCache{
		byHash:      make(map[string]*localEntry),
		byID:        make(map[uuid.UUID]string),
		distributed: distributed,
		cfg:         cfg,
		clock:       clock,
		logger:      logger,
	}
}

// SetObserver installs o to receive lookup outcomes. Call it before the cache is shared.
func (c *TwoTierCache) SetObserver(o LookupObserver) {
	c.observer = o
}

// GetByHash returns the cached key whose secret hash equals hash.
func (c *TwoTierCache) GetByHash(ctx context.Context, hash string) (*apikeyDomain.CachedKey, bool) {
	if entry, ok := c.localByHash(hash); ok {
		c.observe(ctx, TierLocal, true)
		return entry, true
	}
	c.observe(ctx, TierLocal, false)

	entry, cachedAt, ok := c.remoteGet(ctx, hashKeyPrefix+hash)
	if !ok || !cryptoService.ConstantTimeEqual(entry.Key.SecretHash, hash) {
		return nil, false
	}

	c.setLocal(entry, cachedAt)
	return cloneEntry(entry), true
}

// GetByID returns the cached key with the given id.
func (c *TwoTierCache) GetByID(ctx context.Context, id uuid.UUID) (*apikeyDomain.CachedKey, bool) {
	c.mu.RLock()
	hash, ok := c.byID[id]
	c.mu.RUnlock()
	if ok {
		if entry, found := c.localByHash(hash); found {
			c.observe(ctx, TierLocal, true)
			return entry, true
		}
	}
	c.observe(ctx, TierLocal, false)

	entry, cachedAt, ok := c.remoteGet(ctx, idKeyPrefix+id.String())
	if !ok || entry.Key.ID != id {
		return nil, false
	}

	c.setLocal(entry, cachedAt)
	return cloneEntry(entry), true
}

// Set writes entry to both tiers. Distributed failures are logged only.
func (c *TwoTierCache) Set(ctx context.Context, entry *apikeyDomain.CachedKey) {
	now := c.clock.Now()
	c.setLocal(entry, now)

	if c.distributed == nil {
		return
	}

	data, err := encodeCachedKey(entry, now)
	if err != nil {
		c.logger.Error("failed to encode cached key", slog.Any("error", err))
		return
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	for _, key := range []string{hashKeyPrefix + entry.Key.SecretHash, idKeyPrefix + entry.Key.ID.String()} {
		if err := c.distributed.Set(ctx, key, data, c.cfg.TTL); err != nil {
			c.logger.Warn("distributed cache set failed",
				slog.String("key_id", entry.Key.ID.String()),
				slog.Any("error", err),
			)
			return
		}
	}
}

// Invalidate removes every entry for the key from both tiers. The local tier
// is always cleared; a returned error means the distributed tier may keep
// serving a stale entry until its TTL elapses.
func (c *TwoTierCache) Invalidate(ctx context.Context, hash string, id uuid.UUID) error {
	c.mu.Lock()
	if otherHash, ok := c.byID[id]; ok {
		delete(c.byHash, otherHash)
	}
	delete(c.byHash, hash)
	delete(c.byID, id)
	c.mu.Unlock()

	if c.distributed == nil {
		return nil
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var errs []error
	for _, key := range []string{hashKeyPrefix + hash, idKeyPrefix + id.String()} {
		if err := c.distributed.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Touch records a last-used time on the local entry, if any.
func (c *TwoTierCache) Touch(hash string, usedAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.byHash[hash]; ok {
		t := usedAt
		entry.value.Key.LastUsedAt = &t
	}
}

// Clear drops every local entry. The distributed tier is left to its TTL.
func (c *TwoTierCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.byHash = make(map[string]*localEntry)
	c.byID = make(map[uuid.UUID]string)
}

// Len returns the number of keys held in the local tier.
func (c *TwoTierCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byHash)
}

func (c *TwoTierCache) localByHash(hash string) (*apikeyDomain.CachedKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.byHash[hash]
	if !ok || !cryptoService.ConstantTimeEqual(entry.value.Key.SecretHash, hash) {
		return nil, false
	}
	if c.cfg.LocalMaxAge > 0 && c.clock.Since(entry.storedAt) >= c.cfg.LocalMaxAge {
		return nil, false
	}
	return cloneEntry(entry.value), true
}

// setLocal stores entry as if written at storedAt. A zero or future storedAt
// counts as now.
func (c *TwoTierCache) setLocal(entry *apikeyDomain.CachedKey, storedAt time.Time) {
	if now := c.clock.Now(); storedAt.IsZero() || storedAt.After(now) {
		storedAt = now
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if oldHash, ok := c.byID[entry.Key.ID]; ok && oldHash != entry.Key.SecretHash {
		delete(c.byHash, oldHash)
	}
	c.byHash[entry.Key.SecretHash] = &localEntry{value: cloneEntry(entry), storedAt: storedAt}
	c.byID[entry.Key.ID] = entry.Key.SecretHash
}

func (c *TwoTierCache) remoteGet(ctx context.Context, key string) (*apikeyDomain.CachedKey, time.Time, bool) {
	if c.distributed == nil {
		return nil, time.Time{}, false
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	data, err := c.distributed.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("distributed cache get failed, falling back", slog.Any("error", err))
		}
		c.observe(ctx, TierDistributed, false)
		return nil, time.Time{}, false
	}

	entry, cachedAt, err := decodeCachedKey(data)
	if err != nil {
		c.logger.Warn("discarding undecodable distributed cache entry", slog.Any("error", err))
		c.observe(ctx, TierDistributed, false)
		return nil, time.Time{}, false
	}
	c.observe(ctx, TierDistributed, true)
	return entry, cachedAt, true
}

func (c *TwoTierCache) observe(ctx context.Context, tier string, hit bool) {
	if c.observer == nil {
		return
	}
	outcome := OutcomeMiss
	if hit {
		outcome = OutcomeHit
	}
	c.observer.RecordCacheLookup(ctx, tier, outcome)
}

func (c *TwoTierCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func cloneEntry(entry *apikeyDomain.CachedKey) *apikeyDomain.CachedKey {
	c := &apikeyDomain.CachedKey{Key: entry.Key.Clone()}
	if entry.GraceEndsAt != nil {
		t := *entry.GraceEndsAt
		c.GraceEndsAt = &t
	}
	return c
}
