// Package cache provides a TTL key-value cache backed by Redis with a
// transparent in-memory fallback when Redis is unreachable or unconfigured.
package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Service is the cache used between API reads and pipeline writes.
// Values are msgpack-encoded. The cache is never authoritative: a cold
// cache must always be recoverable from persistence or recomputation.
type Service struct {
	redis *redis.Client // nil = memory only
	log   zerolog.Logger

	mu     sync.RWMutex
	memory map[string]memoryEntry

	now func() time.Time
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Stats describes the cache backend state
type Stats struct {
	Backend        string `json:"backend"`
	MemoryKeys     int    `json:"memory_keys"`
	RedisConnected bool   `json:"redis_connected"`
	RedisKeys      int64  `json:"redis_keys,omitempty"`
}

// New creates a cache service. An empty redisURL selects the in-memory
// backend; a Redis that fails the initial ping is treated the same way.
func New(redisURL string, log zerolog.Logger) *Service {
	s := &Service{
		log:    log.With().Str("component", "cache").Logger(),
		memory: make(map[string]memoryEntry),
		now:    time.Now,
	}

	if redisURL == "" {
		s.log.Info().Msg("Redis URL not configured, using in-memory cache")
		return s
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		s.log.Warn().Err(err).Msg("Invalid Redis URL, using in-memory cache")
		return s
	}
	opts.DialTimeout = 2 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Redis unreachable, using in-memory cache")
		_ = client.Close()
		return s
	}

	s.redis = client
	s.log.Info().Str("addr", opts.Addr).Msg("Redis cache connected")
	return s
}

// Get fetches a key into dest. Returns false on miss.
func (s *Service) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if s.redis != nil {
		data, err := s.redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			if err := msgpack.Unmarshal(data, dest); err != nil {
				return false, err
			}
			return true, nil
		case errors.Is(err, redis.Nil):
			return false, nil
		default:
			s.log.Warn().Err(err).Str("key", key).Msg("Redis read failed, falling back to memory")
		}
	}

	data, ok := s.getFromMemory(key)
	if !ok {
		return false, nil
	}
	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value under key with the given TTL
func (s *Service) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	if s.redis != nil {
		err := s.redis.Set(ctx, key, data, ttl).Err()
		if err == nil {
			return nil
		}
		s.log.Warn().Err(err).Str("key", key).Msg("Redis write failed, falling back to memory")
	}

	s.setInMemory(key, data, ttl)
	return nil
}

// Delete removes a key from both backends
func (s *Service) Delete(ctx context.Context, key string) bool {
	deleted := false

	if s.redis != nil {
		if n, err := s.redis.Del(ctx, key).Result(); err == nil && n > 0 {
			deleted = true
		}
	}

	s.mu.Lock()
	if _, ok := s.memory[key]; ok {
		delete(s.memory, key)
		deleted = true
	}
	s.mu.Unlock()

	return deleted
}

// DeletePattern removes all keys matching a glob pattern (e.g. "index:*").
// Returns the number of keys removed.
func (s *Service) DeletePattern(ctx context.Context, pattern string) int {
	count := 0

	if s.redis != nil {
		iter := s.redis.Scan(ctx, 0, pattern, 0).Iterator()
		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.log.Warn().Err(err).Str("pattern", pattern).Msg("Redis scan failed")
		}
		if len(keys) > 0 {
			if n, err := s.redis.Del(ctx, keys...).Result(); err == nil {
				count += int(n)
			}
		}
	}

	s.mu.Lock()
	for key := range s.memory {
		if ok, _ := path.Match(pattern, key); ok {
			delete(s.memory, key)
			count++
		}
	}
	s.mu.Unlock()

	return count
}

// Exists reports whether a live (non-expired) entry exists for key
func (s *Service) Exists(ctx context.Context, key string) bool {
	if s.redis != nil {
		if n, err := s.redis.Exists(ctx, key).Result(); err == nil {
			return n > 0
		}
	}

	_, ok := s.getFromMemory(key)
	return ok
}

// GetOrSet returns the cached value for key, computing and storing it on miss.
// dest receives the value on both paths.
func (s *Service) GetOrSet(ctx context.Context, key string, ttl time.Duration, dest interface{}, compute func() (interface{}, error)) error {
	if ok, err := s.Get(ctx, key, dest); err == nil && ok {
		return nil
	}

	value, err := compute()
	if err != nil {
		return err
	}

	if err := s.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache computed value")
	}

	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(data, dest)
}

// Clear empties the cache
func (s *Service) Clear(ctx context.Context) {
	if s.redis != nil {
		if err := s.redis.FlushDB(ctx).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Redis flush failed")
		}
	}

	s.mu.Lock()
	s.memory = make(map[string]memoryEntry)
	s.mu.Unlock()
}

// GetStats returns cache backend statistics
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	memKeys := len(s.memory)
	s.mu.RUnlock()

	stats := Stats{
		Backend:    "memory",
		MemoryKeys: memKeys,
	}

	if s.redis != nil {
		stats.Backend = "redis"
		if n, err := s.redis.DBSize(ctx).Result(); err == nil {
			stats.RedisConnected = true
			stats.RedisKeys = n
		}
	}

	return stats
}

// Close releases the Redis connection if any
func (s *Service) Close() error {
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}

func (s *Service) getFromMemory(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.memory[key]
	if !ok {
		return nil, false
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.memory, key)
		return nil, false
	}
	return entry.data, true
}

func (s *Service) setInMemory(key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	s.memory[key] = memoryEntry{data: data, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}
