package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage keys. The value, its fetch time (epoch millis) and the version
// tag live under separate keys so the value can be dropped while the
// version survives.
const (
	StoreKeyValue     = "site_settings"
	StoreKeyTimestamp = "site_settings_timestamp"
	StoreKeyVersion   = "site_settings_version"
)

// DefaultKeyPrefix namespaces the keys in a Redis shared with other apps.
const DefaultKeyPrefix = "portal:"

// Entry is the raw content of the three cache keys. Empty strings mean the
// key is absent. The cache decides what a malformed entry means.
type Entry struct {
	Value     string
	Timestamp string
	Version   string
}

// FetchedAt parses the stored timestamp.
func (e Entry) FetchedAt() (time.Time, bool) {
	ms, err := strconv.ParseInt(e.Timestamp, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// Store persists a settings snapshot.
type Store interface {
	// Load reads all three keys. Missing keys come back empty.
	Load(ctx context.Context) (Entry, error)

	// Save writes value, timestamp and version together.
	Save(ctx context.Context, value string, fetchedAt time.Time, version string) error

	// Invalidate removes the value and timestamp keys only. The version
	// key is kept.
	Invalidate(ctx context.Context) error
}

// --- Redis ---

// RedisStore keeps the snapshot in Redis so every portal instance shares
// one cache.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed store. prefix namespaces the keys
// when the Redis database is shared.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) key(name string) string {
	return s.prefix + name
}

// Load reads the three keys in one round trip.
func (s *RedisStore) Load(ctx context.Context) (Entry, error) {
	vals, err := s.rdb.MGet(ctx,
		s.key(StoreKeyValue),
		s.key(StoreKeyTimestamp),
		s.key(StoreKeyVersion),
	).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("loading settings cache: %w", err)
	}

	str := func(v any) string {
		if s, ok := v.(string); ok {
			return s
		}
		return ""
	}
	return Entry{Value: str(vals[0]), Timestamp: str(vals[1]), Version: str(vals[2])}, nil
}

// Save writes the three keys in a transaction. Keys never expire; the
// staleness window is enforced by the cache on read.
func (s *RedisStore) Save(ctx context.Context, value string, fetchedAt time.Time, version string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(StoreKeyValue), value, 0)
		pipe.Set(ctx, s.key(StoreKeyTimestamp), strconv.FormatInt(fetchedAt.UnixMilli(), 10), 0)
		pipe.Set(ctx, s.key(StoreKeyVersion), version, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving settings cache: %w", err)
	}
	return nil
}

// Invalidate deletes the value and timestamp keys.
func (s *RedisStore) Invalidate(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.key(StoreKeyValue), s.key(StoreKeyTimestamp)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidating settings cache: %w", err)
	}
	return nil
}

// --- Memory ---

// MemoryStore keeps the snapshot in process memory. Used when Redis is not
// configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Load returns the stored keys.
func (s *MemoryStore) Load(_ context.Context) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Entry{
		Value:     s.data[StoreKeyValue],
		Timestamp: s.data[StoreKeyTimestamp],
		Version:   s.data[StoreKeyVersion],
	}, nil
}

// Save stores all three keys.
func (s *MemoryStore) Save(_ context.Context, value string, fetchedAt time.Time, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[StoreKeyValue] = value
	s.data[StoreKeyTimestamp] = strconv.FormatInt(fetchedAt.UnixMilli(), 10)
	s.data[StoreKeyVersion] = version
	return nil
}

// Invalidate drops the value and timestamp.
func (s *MemoryStore) Invalidate(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, StoreKeyValue)
	delete(s.data, StoreKeyTimestamp)
	return nil
}

// Put sets a raw key. Tests use it to plant malformed entries.
func (s *MemoryStore) Put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}
