// Package cache provides the in-process TTL cache that fronts the upstream
// data feeds. Every stored value carries a weak ETag derived from its JSON
// encoding so HTTP handlers can answer conditional requests.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/pkg/clock"
	"golang.org/x/sync/singleflight"
)

// Entry is a cached value with its expiry and ETag.
type Entry struct {
	Value     any
	ExpiresAt time.Time
	ETag      string
}

// Config configures a Cache.
type Config struct {
	// MaxEntries bounds the number of keys. Zero means unbounded.
	MaxEntries int
	// OnEvict is called when a live entry is dropped to make room (optional).
	OnEvict func(key string)
}

// Loader produces the value for a missing key.
type Loader func(ctx context.Context) (any, error)

// Cache is a TTL key/value store. Expired entries are removed lazily when
// they are read. A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Entry
	config  Config
	clock   clock.Clock
	group   singleflight.Group
}

// New creates an empty cache. A nil clock uses wall time.
func New(config Config, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		entries: make(map[string]Entry),
		config:  config,
		clock:   clk,
	}
}

// ComputeETag returns W/"<sha1 of the JSON encoding of value>".
func ComputeETag(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value for etag: %w", err)
	}
	sum := sha1.Sum(data)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, nil
}

// Set stores value under key for ttl and returns its ETag.
func (c *Cache) Set(key string, value any, ttl time.Duration) (string, error) {
	entry, err := c.store(key, value, ttl)
	if err != nil {
		return "", err
	}
	return entry.ETag, nil
}

func (c *Cache) store(key string, value any, ttl time.Duration) (Entry, error) {
	etag, err := ComputeETag(value)
	if err != nil {
		return Entry{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.makeRoom()
	}
	entry := Entry{
		Value:     value,
		ExpiresAt: c.clock.Now().Add(ttl),
		ETag:      etag,
	}
	c.entries[key] = entry
	return entry, nil
}

// Get returns the entry for key if it has not expired. An expired entry is
// deleted and reported as absent.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *Cache) getLocked(key string) (Entry, bool) {
	entry, ok := c.entries[key]
	if !ok {
		return Entry{}, false
	}
	if c.clock.Now().After(entry.ExpiresAt) {
		delete(c.entries, key)
		return Entry{}, false
	}
	return entry, true
}

// GetOrLoad returns the cached entry for key, or calls load and stores its
// result for ttl. Concurrent misses on the same key share one load call.
// hit reports whether the entry was already cached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader) (entry Entry, hit bool, err error) {
	if entry, ok := c.Get(key); ok {
		return entry, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A flight that finished between Get and Do already stored the value.
		if entry, ok := c.Get(key); ok {
			return entry, nil
		}
		value, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return c.store(key, value, ttl)
	})
	if err != nil {
		return Entry{}, false, err
	}
	return v.(Entry), false, nil
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored keys, including expired ones not yet read.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge removes every expired entry and returns how many were dropped.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked()
}

func (c *Cache) purgeLocked() int {
	now := c.clock.Now()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// makeRoom frees a slot when the cache is bounded and full. Expired entries
// go first, then the entry closest to expiry.
// Must be called with the lock held.
func (c *Cache) makeRoom() {
	if c.config.MaxEntries <= 0 || len(c.entries) < c.config.MaxEntries {
		return
	}
	if c.purgeLocked() > 0 && len(c.entries) < c.config.MaxEntries {
		return
	}

	var victim string
	var earliest time.Time
	for key, entry := range c.entries {
		if victim == "" || entry.ExpiresAt.Before(earliest) {
			victim, earliest = key, entry.ExpiresAt
		}
	}
	if victim == "" {
		return
	}
	delete(c.entries, victim)
	if c.config.OnEvict != nil {
		c.config.OnEvict(victim)
	}
}
