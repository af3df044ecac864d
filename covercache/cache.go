// Package covercache keeps resolved cover images between runs.
//
// All entries are serialized together as one JSON object under a single
// store key, so a Put rewrites the whole blob. Entries are fresh for
// Retention after they were written.
package covercache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultKey is the store key holding the serialized cache.
	DefaultKey = "zotshelf.cachedCovers"

	// Retention is how long an entry stays usable after it was written.
	Retention = 7 * 24 * time.Hour
)

// Entry is one cached cover.
type Entry struct {
	// Data is the encoded cover image.
	Data string `json:"data"`

	// Timestamp is the write time in epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Cache maps item keys to encoded cover images. It is safe for concurrent use.
type Cache struct {
	store  Store
	key    string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger for the cache.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithNow sets the time function for testing.
func WithNow(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithKey overrides the store key the cache is persisted under.
func WithKey(key string) Option {
	return func(c *Cache) {
		c.key = key
	}
}

// New returns an empty cache persisted to store. Call Load to populate it
// from previously written state.
func New(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		key:     DefaultKey,
		logger:  slog.Default(),
		now:     time.Now,
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached image for itemKey when it was written less than
// Retention ago. Stale entries are left in place.
func (c *Cache) Get(itemKey string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[itemKey]
	if !ok {
		return "", false
	}
	if c.nowMillis()-e.Timestamp >= Retention.Milliseconds() {
		return "", false
	}
	return e.Data, true
}

// Put records image for itemKey with the current time and writes the whole
// cache through to the store. An empty image is ignored. On a store error
// the in-memory entry is kept and the error is returned.
func (c *Cache) Put(ctx context.Context, itemKey, image string) error {
	if image == "" {
		return nil
	}

	c.mu.Lock()
	c.entries[itemKey] = Entry{Data: image, Timestamp: c.nowMillis()}
	blob, err := json.Marshal(c.entries)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding cover cache: %w", err)
	}

	if err := c.store.Set(ctx, c.key, string(blob)); err != nil {
		return fmt.Errorf("writing cover cache: %w", err)
	}
	return nil
}

// Load replaces the in-memory entries with the persisted ones, dropping
// entries older than Retention. Missing, corrupt or malformed data yields an
// empty cache; only store read failures are returned.
func (c *Cache) Load(ctx context.Context) error {
	raw, ok, err := c.store.Get(ctx, c.key)
	switch {
	case errors.Is(err, ErrCorruptValue):
		c.logger.Warn("discarding corrupt cover cache", "key", c.key, "error", err)
		ok = false
	case err != nil:
		return fmt.Errorf("reading cover cache: %w", err)
	}

	var entries map[string]Entry
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			c.logger.Warn("discarding malformed cover cache", "key", c.key, "error", err)
			entries = nil
		}
	}
	if entries == nil {
		entries = make(map[string]Entry)
	}

	now := c.nowMillis()
	dropped := 0
	for k, e := range entries {
		if now-e.Timestamp > Retention.Milliseconds() {
			delete(entries, k)
			dropped++
		}
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	c.logger.Debug("loaded cover cache", "entries", len(entries), "expired", dropped)
	return nil
}

// Flush writes the current entries to the store.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	blob, err := json.Marshal(c.entries)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encoding cover cache: %w", err)
	}
	if err := c.store.Set(ctx, c.key, string(blob)); err != nil {
		return fmt.Errorf("writing cover cache: %w", err)
	}
	return nil
}

// Len returns the number of entries held in memory, stale or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) nowMillis() int64 {
	return c.now().UnixMilli()
}
