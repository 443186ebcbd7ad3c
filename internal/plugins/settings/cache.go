package settings

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/siddesa/portal/internal/metrics"
)

// Fetcher loads the flat public settings map from the upstream API.
type Fetcher interface {
	GetSettings(ctx context.Context) (map[string]string, error)
}

// refetchTimeout bounds a shared upstream fetch. The fetch outlives the
// request that started it so other waiters are not cancelled with it.
const refetchTimeout = 15 * time.Second

// IsFresh reports whether a cached snapshot may be served without a
// network call: its version must equal expected and its age must be below
// maxAge. A zero fetchedAt is never fresh.
func IsFresh(version, expected string, fetchedAt time.Time, maxAge time.Duration, now time.Time) bool {
	if version != expected || fetchedAt.IsZero() {
		return false
	}
	age := now.Sub(fetchedAt)
	return age >= 0 && age < maxAge
}

// Cache serves the site settings snapshot. Reads hit the store first and
// fall back to the upstream API; a failed fetch degrades to the last
// stored snapshot and then to DefaultSnapshot, so callers always get a
// value.
type Cache struct {
	store   Store
	fetcher Fetcher
	version string
	maxAge  time.Duration
	now     func() time.Time

	group singleflight.Group

	// last keeps the most recent good snapshot in process so a Redis
	// outage still has something to fall back to.
	mu   sync.RWMutex
	last *Snapshot
}

// NewCache creates a settings cache. version is the expected version tag
// and maxAge the staleness window.
func NewCache(store Store, fetcher Fetcher, version string, maxAge time.Duration) *Cache {
	return &Cache{
		store:   store,
		fetcher: fetcher,
		version: version,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// Version returns the expected version tag.
func (c *Cache) Version() string { return c.version }

// GetSettings returns the current snapshot. It never returns nil.
func (c *Cache) GetSettings(ctx context.Context) *Snapshot {
	snap, _ := c.Lookup(ctx)
	return snap
}

// Lookup returns the current snapshot and where it came from.
func (c *Cache) Lookup(ctx context.Context) (*Snapshot, Source) {
	snap, src := c.lookup(ctx)
	metrics.RecordSettingsLookup(string(src))
	return snap, src
}

func (c *Cache) lookup(ctx context.Context) (*Snapshot, Source) {
	entry, err := c.store.Load(ctx)
	if err != nil {
		slog.Warn("settings cache unavailable", slog.Any("error", err))
	}

	// A version mismatch clears the old entry; it is never served.
	var stale *Snapshot
	if err == nil && entry.Version != "" && entry.Version != c.version {
		if err := c.store.Invalidate(ctx); err != nil {
			slog.Warn("clearing outdated settings cache", slog.Any("error", err))
		}
	} else if cached, ok := c.decode(entry); ok {
		if IsFresh(cached.Version, c.version, cached.FetchedAt, c.maxAge, c.now()) {
			return cached, SourceCache
		}
		stale = cached
	}

	snap, err := c.Refetch(ctx)
	if err == nil {
		return snap, SourceNetwork
	}
	slog.Warn("fetching site settings failed", slog.Any("error", err))
	metrics.RecordError("settings_fetch", "upstream")

	if stale != nil {
		return stale, SourceStale
	}
	if last := c.lastGood(); last != nil {
		return last, SourceStale
	}
	return DefaultSnapshot(c.version), SourceDefault
}

// decode parses a stored entry. Entries with a bad JSON value, a bad
// timestamp or a different version are treated as missing.
func (c *Cache) decode(e Entry) (*Snapshot, bool) {
	if e.Value == "" || e.Version != c.version {
		return nil, false
	}
	fetchedAt, ok := e.FetchedAt()
	if !ok {
		return nil, false
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(e.Value), &snap); err != nil {
		return nil, false
	}
	snap.Version = e.Version
	snap.FetchedAt = fetchedAt
	return &snap, true
}

// Refetch loads settings from the upstream API and stores the result.
// Concurrent callers share one request; each stops waiting when its own
// ctx is done.
func (c *Cache) Refetch(ctx context.Context) (*Snapshot, error) {
	ch := c.group.DoChan("settings", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refetchTimeout)
		defer cancel()

		flat, err := c.fetcher.GetSettings(fctx)
		if err != nil {
			return nil, err
		}

		snap := Transform(flat)
		snap.Version = c.version
		snap.FetchedAt = c.now().Truncate(time.Millisecond)

		raw, err := json.Marshal(snap)
		if err != nil {
			return nil, err
		}
		if err := c.store.Save(fctx, string(raw), snap.FetchedAt, c.version); err != nil {
			slog.Warn("storing site settings failed", slog.Any("error", err))
		}

		c.mu.Lock()
		c.last = &snap
		c.mu.Unlock()
		return &snap, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		snap := *res.Val.(*Snapshot)
		return &snap, nil
	}
}

// Invalidate drops the stored value and timestamp so the next read
// refetches. The version key is kept.
func (c *Cache) Invalidate(ctx context.Context) error {
	return c.store.Invalidate(ctx)
}

func (c *Cache) lastGood() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	snap := *c.last
	return &snap
}
