// Package respcache is a short-lived, best-effort cache for rendered
// listing responses. Entries are never invalidated on write; readers may
// see data up to one TTL old.
//
// Two backends exist: Redis when an address is configured, otherwise a
// per-process map. Backend errors count as misses.
package respcache

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/researchportal/internal/app/system/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Backend names, used as the metrics label.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// keyPrefix namespaces keys in a shared Redis.
const keyPrefix = "researchportal:respcache:"

// Cache stores byte payloads for a fixed TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte)
	Backend() string
}

// Remember returns the cached value for key, or calls fill and caches its
// result. fill errors are returned and nothing is cached.
func Remember(ctx context.Context, c Cache, key string, fill func(context.Context) ([]byte, error)) ([]byte, bool, error) {
	if b, ok := c.Get(ctx, key); ok {
		metrics.CacheRequests.WithLabelValues(c.Backend(), "hit").Inc()
		return b, true, nil
	}
	metrics.CacheRequests.WithLabelValues(c.Backend(), "miss").Inc()

	b, err := fill(ctx)
	if err != nil {
		return nil, false, err
	}
	c.Set(ctx, key, b)
	return b, false, nil
}

/* -------------------------------- memory -------------------------------- */

type entry struct {
	val     []byte
	expires time.Time
}

// Memory is an in-process TTL map. Expired entries are dropped lazily on
// read and swept when the map grows past maxEntries.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]entry
	now        func() time.Time
}

// DefaultMaxEntries bounds the memory backend.
const DefaultMaxEntries = 1024

// NewMemory creates a memory cache with the given TTL.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		items:      make(map[string]entry),
		now:        time.Now,
	}
}

func (m *Memory) Backend() string { return BackendMemory }

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, false
	}
	return e.val, true
}

func (m *Memory) Set(_ context.Context, key string, val []byte) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.items) >= m.maxEntries {
		for k, e := range m.items {
			if !now.Before(e.expires) {
				delete(m.items, k)
			}
		}
		// Still full: drop everything rather than track recency.
		if len(m.items) >= m.maxEntries {
			m.items = make(map[string]entry)
		}
	}
	m.items[key] = entry{val: val, expires: now.Add(m.ttl)}
}

// Len reports the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

/* -------------------------------- redis --------------------------------- */

// Redis stores entries in Redis with SET EX.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if log == nil {
		log = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, log: log}
}

func (r *Redis) Backend() string { return BackendRedis }

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		r.log.Warn("respcache get failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) {
	if r.ttl <= 0 {
		return
	}
	if err := r.client.Set(ctx, keyPrefix+key, val, r.ttl).Err(); err != nil {
		r.log.Warn("respcache set failed", zap.String("key", key), zap.Error(err))
	}
}
