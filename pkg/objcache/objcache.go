// Package objcache caches emitted bytecode keyed by a hash of its
// source text, so re-running an unchanged file skips lexing through
// emission entirely. The default backend is in-process; passing a
// redis:// DSN switches to a shared backend so `vync run` invocations
// on several machines can share one cache.
package objcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/vyn-lang/vync/pkg/bytecode"
	"github.com/vyn-lang/vync/pkg/cache"
	"github.com/vyn-lang/vync/pkg/redis"
)

// DefaultTTL is how long a cached object stays valid before a cache
// miss forces recompilation.
const DefaultTTL = 10 * time.Minute

// Key hashes source text into a cache key. Two files with identical
// contents share a cache entry regardless of path.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return "vync:obj:" + hex.EncodeToString(sum[:])
}

// Cache stores and retrieves serialized bytecode by source hash.
type Cache interface {
	Get(ctx context.Context, key string) (bytecode.Bytecode, bool)
	Put(ctx context.Context, key string, bc bytecode.Bytecode) error
}

// New returns the in-process LRU-backed cache, or a Redis-backed one
// when dsn is non-empty.
func New(dsn string) (Cache, error) {
	if dsn == "" {
		return &memCache{lru: cache.NewLRUCache(cache.WithCapacity(512), cache.WithDefaultTTL(DefaultTTL))}, nil
	}
	client, err := redis.NewClientFromString(dsn)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(context.Background()); err != nil {
		return nil, err
	}
	return &redisCache{client: client}, nil
}

type memCache struct {
	lru *cache.LRUCache
}

func (m *memCache) Get(_ context.Context, key string) (bytecode.Bytecode, bool) {
	v, ok := m.lru.Get(key)
	if !ok {
		return bytecode.Bytecode{}, false
	}
	bc, ok := v.(bytecode.Bytecode)
	return bc, ok
}

func (m *memCache) Put(_ context.Context, key string, bc bytecode.Bytecode) error {
	return m.lru.Set(key, bc, DefaultTTL)
}

// redisCache serializes Bytecode as JSON; the object format's own
// binary encoding (pkg/bytecode.Save) is reserved for on-disk .hydc
// files where a human might inspect the bytes directly.
type redisCache struct {
	client *redis.Client
}

type wireBytecode struct {
	Instructions []byte              `json:"instructions"`
	Constants    []bytecode.Constant `json:"constants"`
	Strings      []string            `json:"strings"`
}

func (r *redisCache) Get(ctx context.Context, key string) (bytecode.Bytecode, bool) {
	raw, err := r.client.Get(ctx, key)
	if err != nil || raw == "" {
		return bytecode.Bytecode{}, false
	}
	var w wireBytecode
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return bytecode.Bytecode{}, false
	}
	return bytecode.Bytecode{Instructions: w.Instructions, Constants: w.Constants, Strings: w.Strings}, true
}

func (r *redisCache) Put(ctx context.Context, key string, bc bytecode.Bytecode) error {
	w := wireBytecode{Instructions: bc.Instructions, Constants: bc.Constants, Strings: bc.Strings}
	raw, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, DefaultTTL)
}
