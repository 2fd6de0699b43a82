// internal/service/cache.go
// Validation result cache
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"snowrail/internal/models"
	"snowrail/pkg/redis"
)

// CacheStore is the key-value contract behind the validation cache.
// The in-memory store is the default; multi-instance deployments can
// swap in the redis-backed store without touching the engine.
type CacheStore interface {
	Get(ctx context.Context, key string) (*models.ValidationResult, bool)
	Set(ctx context.Context, key string, result *models.ValidationResult)
}

// CacheKey derives the deterministic cache key from the destination and
// the enabled check set.
func CacheKey(destination string, checkTypes []string) string {
	sum := sha256.Sum256([]byte(destination + "|" + strings.Join(checkTypes, ",")))
	return "validation:" + hex.EncodeToString(sum[:])
}

type memoryCacheEntry struct {
	result     *models.ValidationResult
	insertedAt time.Time
}

// MemoryCacheStore is a TTL cache with FIFO eviction: when capacity is
// exceeded the oldest-inserted entry is removed, not the least recently
// used one. Expired entries are never returned even if still present.
type MemoryCacheStore struct {
	mu       sync.Mutex
	data     map[string]*memoryCacheEntry
	order    []string
	ttl      time.Duration
	capacity int
}

func NewMemoryCacheStore(ttl time.Duration, capacity int) *MemoryCacheStore {
	return &MemoryCacheStore{
		data:     make(map[string]*memoryCacheEntry),
		ttl:      ttl,
		capacity: capacity,
	}
}

func (s *MemoryCacheStore) Get(ctx context.Context, key string) (*models.ValidationResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if time.Since(entry.insertedAt) > s.ttl {
		return nil, false
	}
	return entry.result, true
}

func (s *MemoryCacheStore) Set(ctx context.Context, key string, result *models.ValidationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		s.order = append(s.order, key)
	}
	s.data[key] = &memoryCacheEntry{result: result, insertedAt: time.Now()}

	for s.capacity > 0 && len(s.data) > s.capacity {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.data, oldest)
	}
}

// Len reports the number of physically present entries, expired or not.
func (s *MemoryCacheStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// RedisCacheStore externalizes the validation cache into redis so several
// engine instances can share decisions. TTL enforcement is delegated to
// redis; capacity eviction is redis's own policy.
type RedisCacheStore struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

func NewRedisCacheStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCacheStore {
	return &RedisCacheStore{client: client, logger: logger, ttl: ttl}
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) (*models.ValidationResult, bool) {
	data, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var result models.ValidationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		s.logger.Warn("discarding corrupt cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &result, true
}

func (s *RedisCacheStore) Set(ctx context.Context, key string, result *models.ValidationResult) {
	data, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to marshal validation result for cache", zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Error("failed to cache validation result", zap.String("key", key), zap.Error(err))
	}
}

// ChecksHash fingerprints the completed check set so cached and fresh
// results for the same inputs are bit-identical.
func ChecksHash(results []models.CheckResult) string {
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "%s:%d:%t:%s;", r.Type, r.Score, r.Passed, r.Risk)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
