package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
)

func createTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryCache is an in-process DistributedCache for tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return value, nil
}

func (m *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	return nil
}

func (m *memoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// mockDistributedCache is a testify mock of DistributedCache.
type mockDistributedCache struct {
	mock.Mock
}

func (m *mockDistributedCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockDistributedCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *mockDistributedCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func newCachedKey(hash string) *apikeyDomain.CachedKey {
	return &apikeyDomain.CachedKey{
		Key: &apikeyDomain.APIKey{
			ID:         uuid.Must(uuid.NewV7()),
			SecretHash: hash,
			KeyPrefix:  "kg_abcde",
			Role:       apikeyDomain.RoleOperator,
			Name:       "bot",
			Status:     apikeyDomain.StatusActive,
			CreatedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestTwoTierCache_LocalOnly(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()

	t.Run("Success_SetAndGet", func(t *testing.T) {
		c := NewTwoTierCache(nil, Config{}, clock, createTestLogger())
		entry := newCachedKey("hash-1")

		c.Set(ctx, entry)

		got, ok := c.GetByHash(ctx, "hash-1")
		require.True(t, ok)
		assert.Equal(t, entry.Key.ID, got.Key.ID)

		got, ok = c.GetByID(ctx, entry.Key.ID)
		require.True(t, ok)
		assert.Equal(t, "hash-1", got.Key.SecretHash)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("Success_ReturnsCopies", func(t *testing.T) {
		c := NewTwoTierCache(nil, Config{}, clock, createTestLogger())
		entry := newCachedKey("hash-1")
		c.Set(ctx, entry)

		entry.Key.Status = apikeyDomain.StatusRevoked
		got, _ := c.GetByHash(ctx, "hash-1")
		got.Key.Role = apikeyDomain.RoleAdmin

		again, ok := c.GetByHash(ctx, "hash-1")
		require.True(t, ok)
		assert.Equal(t, apikeyDomain.StatusActive, again.Key.Status)
		assert.Equal(t, apikeyDomain.RoleOperator, again.Key.Role)
	})

	t.Run("Success_NoTTLByDefault", func(t *testing.T) {
		fake := clockwork.NewFakeClock()
		c := NewTwoTierCache(nil, Config{}, fake, createTestLogger())
		c.Set(ctx, newCachedKey("hash-1"))

		fake.Advance(365 * 24 * time.Hour)

		_, ok := c.GetByHash(ctx, "hash-1")
		assert.True(t, ok)
	})

	t.Run("Success_LocalMaxAge", func(t *testing.T) {
		fake := clockwork.NewFakeClock()
		c := NewTwoTierCache(nil, Config{LocalMaxAge: time.Minute}, fake, createTestLogger())
		c.Set(ctx, newCachedKey("hash-1"))

		fake.Advance(59 * time.Second)
		_, ok := c.GetByHash(ctx, "hash-1")
		assert.True(t, ok)

		fake.Advance(time.Second)
		_, ok = c.GetByHash(ctx, "hash-1")
		assert.False(t, ok)
	})

	t.Run("Success_Invalidate", func(t *testing.T) {
		c := NewTwoTierCache(nil, Config{}, clock, createTestLogger())
		entry := newCachedKey("hash-1")
		c.Set(ctx, entry)

		require.NoError(t, c.Invalidate(ctx, "hash-1", entry.Key.ID))

		_, ok := c.GetByHash(ctx, "hash-1")
		assert.False(t, ok)
		_, ok = c.GetByID(ctx, entry.Key.ID)
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Success_InvalidateByIDOnly", func(t *testing.T) {
		c := NewTwoTierCache(nil, Config{}, clock, createTestLogger())
		entry := newCachedKey("hash-1")
		c.Set(ctx, entry)

		require.NoError(t, c.Invalidate(ctx, "unknown-hash", entry.Key.ID))

		_, ok := c.GetByHash(ctx, "hash-1")
		assert.False(t, ok)
	})

	t.Run("Success_TouchAndClear", func(t *testing.T) {
		c := NewTwoTierCache(nil, Config{}, clock, createTestLogger())
		c.Set(ctx, newCachedKey("hash-1"))

		usedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		c.Touch("hash-1", usedAt)
		got, _ := c.GetByHash(ctx, "hash-1")
		require.NotNil(t, got.Key.LastUsedAt)
		assert.Equal(t, usedAt, *got.Key.LastUsedAt)

		c.Clear()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Success_Miss", func(t *testing.T) {
		c := NewTwoTierCache(nil, Config{}, clock, createTestLogger())
		_, ok := c.GetByHash(ctx, "missing")
		assert.False(t, ok)
		_, ok = c.GetByID(ctx, uuid.Must(uuid.NewV7()))
		assert.False(t, ok)
	})
}

func TestTwoTierCache_Distributed(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	cfg := Config{TTL: time.Hour, Timeout: time.Second}

	t.Run("Success_SharedBetweenInstances", func(t *testing.T) {
		shared := newMemoryCache()
		instanceA := NewTwoTierCache(shared, cfg, clock, createTestLogger())
		instanceB := NewTwoTierCache(shared, cfg, clock, createTestLogger())

		entry := newCachedKey("hash-1")
		instanceA.Set(ctx, entry)

		got, ok := instanceB.GetByHash(ctx, "hash-1")
		require.True(t, ok)
		assert.Equal(t, entry.Key.ID, got.Key.ID)
		assert.Equal(t, 1, instanceB.Len(), "distributed hit should backfill the local tier")

		got, ok = NewTwoTierCache(shared, cfg, clock, createTestLogger()).GetByID(ctx, entry.Key.ID)
		require.True(t, ok)
		assert.Equal(t, "hash-1", got.Key.SecretHash)
	})

	t.Run("Success_InvalidateRemovesBothTiers", func(t *testing.T) {
		shared := newMemoryCache()
		instanceA := NewTwoTierCache(shared, cfg, clock, createTestLogger())
		instanceB := NewTwoTierCache(shared, cfg, clock, createTestLogger())

		entry := newCachedKey("hash-1")
		instanceA.Set(ctx, entry)
		require.NoError(t, instanceA.Invalidate(ctx, "hash-1", entry.Key.ID))

		_, ok := instanceB.GetByHash(ctx, "hash-1")
		assert.False(t, ok)
		assert.Empty(t, shared.entries)
	})

	t.Run("Success_GraceEndRoundTrips", func(t *testing.T) {
		shared := newMemoryCache()
		entry := newCachedKey("hash-1")
		graceEnd := time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC)
		entry.Key.Status = apikeyDomain.StatusRotating
		entry.GraceEndsAt = &graceEnd

		NewTwoTierCache(shared, cfg, clock, createTestLogger()).Set(ctx, entry)
		got, ok := NewTwoTierCache(shared, cfg, clock, createTestLogger()).GetByHash(ctx, "hash-1")

		require.True(t, ok)
		require.NotNil(t, got.GraceEndsAt)
		assert.True(t, graceEnd.Equal(*got.GraceEndsAt))
		assert.Equal(t, apikeyDomain.StatusRotating, got.Key.Status)
	})

	t.Run("Success_LocalLifetimeCappedAtTTL", func(t *testing.T) {
		fake := clockwork.NewFakeClock()
		shared := newMemoryCache()
		instanceA := NewTwoTierCache(shared, cfg, fake, createTestLogger())
		instanceB := NewTwoTierCache(shared, cfg, fake, createTestLogger())

		entry := newCachedKey("hash-1")
		instanceA.Set(ctx, entry)
		_, ok := instanceB.GetByHash(ctx, "hash-1")
		require.True(t, ok)

		// A deletes the shared entry; B only holds its local copy.
		require.NoError(t, instanceA.Invalidate(ctx, "hash-1", entry.Key.ID))
		_, ok = instanceB.GetByHash(ctx, "hash-1")
		assert.True(t, ok)

		fake.Advance(time.Hour)
		_, ok = instanceB.GetByHash(ctx, "hash-1")
		assert.False(t, ok)
		_, ok = instanceB.GetByID(ctx, entry.Key.ID)
		assert.False(t, ok)
	})

	t.Run("Success_LongerLocalMaxAgeIsCapped", func(t *testing.T) {
		fake := clockwork.NewFakeClock()
		c := NewTwoTierCache(newMemoryCache(), Config{TTL: time.Minute, LocalMaxAge: time.Hour}, fake, createTestLogger())
		assert.Equal(t, time.Minute, c.cfg.LocalMaxAge)

		c = NewTwoTierCache(newMemoryCache(), Config{TTL: time.Hour, LocalMaxAge: time.Minute}, fake, createTestLogger())
		assert.Equal(t, time.Minute, c.cfg.LocalMaxAge)

		c = NewTwoTierCache(nil, Config{TTL: time.Minute}, fake, createTestLogger())
		assert.Zero(t, c.cfg.LocalMaxAge)
	})

	t.Run("Success_BackfillKeepsDistributedAge", func(t *testing.T) {
		fake := clockwork.NewFakeClock()
		shared := newMemoryCache()
		entry := newCachedKey("hash-1")
		NewTwoTierCache(shared, cfg, fake, createTestLogger()).Set(ctx, entry)

		fake.Advance(40 * time.Minute)
		instanceB := NewTwoTierCache(shared, cfg, fake, createTestLogger())
		_, ok := instanceB.GetByHash(ctx, "hash-1")
		require.True(t, ok)

		// The memory cache never expires, so delete to observe the local copy alone.
		require.NoError(t, shared.Delete(ctx, hashKeyPrefix+"hash-1"))
		fake.Advance(20 * time.Minute)
		_, ok = instanceB.GetByHash(ctx, "hash-1")
		assert.False(t, ok, "local copy must expire with the distributed write, not the backfill")
	})

	t.Run("Success_GetErrorFallsBackToMiss", func(t *testing.T) {
		distributed := &mockDistributedCache{}
		distributed.On("Get", mock.Anything, hashKeyPrefix+"hash-1").Return(nil, errors.New("connection refused"))

		c := NewTwoTierCache(distributed, cfg, clock, createTestLogger())
		_, ok := c.GetByHash(ctx, "hash-1")

		assert.False(t, ok)
		distributed.AssertExpectations(t)
	})

	t.Run("Success_CorruptEntryIsDiscarded", func(t *testing.T) {
		distributed := &mockDistributedCache{}
		distributed.On("Get", mock.Anything, hashKeyPrefix+"hash-1").Return([]byte(`{"role":"root"}`), nil)

		c := NewTwoTierCache(distributed, cfg, clock, createTestLogger())
		_, ok := c.GetByHash(ctx, "hash-1")

		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("Success_MismatchedHashIsDiscarded", func(t *testing.T) {
		data, err := encodeCachedKey(newCachedKey("other-hash"), clock.Now())
		require.NoError(t, err)

		distributed := &mockDistributedCache{}
		distributed.On("Get", mock.Anything, hashKeyPrefix+"hash-1").Return(data, nil)

		c := NewTwoTierCache(distributed, cfg, clock, createTestLogger())
		_, ok := c.GetByHash(ctx, "hash-1")

		assert.False(t, ok)
	})

	t.Run("Success_SetErrorKeepsLocal", func(t *testing.T) {
		distributed := &mockDistributedCache{}
		distributed.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(errors.New("timeout"))

		c := NewTwoTierCache(distributed, cfg, clock, createTestLogger())
		c.Set(ctx, newCachedKey("hash-1"))

		_, ok := c.GetByHash(ctx, "hash-1")
		assert.True(t, ok)
	})

	t.Run("Error_InvalidateReportsDistributedFailure", func(t *testing.T) {
		distributed := &mockDistributedCache{}
		distributed.On("Set", mock.Anything, mock.Anything, mock.Anything, time.Hour).Return(nil)
		distributed.On("Delete", mock.Anything, mock.Anything).Return(errors.New("timeout"))

		c := NewTwoTierCache(distributed, cfg, clock, createTestLogger())
		entry := newCachedKey("hash-1")
		c.Set(ctx, entry)

		err := c.Invalidate(ctx, "hash-1", entry.Key.ID)
		assert.Error(t, err)

		_, ok := c.localByHash("hash-1")
		assert.False(t, ok, "local tier must be cleared even when the distributed tier fails")
	})
}

func TestTwoTierCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewTwoTierCache(newMemoryCache(), Config{TTL: time.Hour}, clockwork.NewRealClock(), createTestLogger())
	entry := newCachedKey("hash-1")

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				c.Set(ctx, entry)
			case 1:
				c.GetByHash(ctx, "hash-1")
			default:
				_ = c.Invalidate(ctx, "hash-1", entry.Key.ID)
			}
		}(i)
	}
	wg.Wait()
}

type recordingObserver struct {
	mu      sync.Mutex
	lookups []string
}

func (r *recordingObserver) RecordCacheLookup(_ context.Context, tier, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, tier+":"+outcome)
}

func TestTwoTierCache_Observer(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_LocalOnly", func(t *testing.T) {
		observer := &recordingObserver{}
		c := NewTwoTierCache(nil, Config{}, clockwork.NewFakeClock(), createTestLogger())
		c.SetObserver(observer)

		_, ok := c.GetByHash(ctx, "hash-1")
		require.False(t, ok)
		c.Set(ctx, newCachedKey("hash-1"))
		_, ok = c.GetByHash(ctx, "hash-1")
		require.True(t, ok)

		assert.Equal(t, []string{"local:miss", "local:hit"}, observer.lookups)
	})

	t.Run("Success_DistributedFallback", func(t *testing.T) {
		shared := newMemoryCache()
		writer := NewTwoTierCache(shared, Config{TTL: time.Hour}, clockwork.NewFakeClock(), createTestLogger())
		entry := newCachedKey("hash-1")
		writer.Set(ctx, entry)

		observer := &recordingObserver{}
		reader := NewTwoTierCache(shared, Config{TTL: time.Hour}, clockwork.NewFakeClock(), createTestLogger())
		reader.SetObserver(observer)

		_, ok := reader.GetByID(ctx, entry.Key.ID)
		require.True(t, ok)
		_, ok = reader.GetByHash(ctx, "unknown")
		require.False(t, ok)

		assert.Equal(t, []string{
			"local:miss", "distributed:hit",
			"local:miss", "distributed:miss",
		}, observer.lookups)
	})
}
