// ABOUTME: In-memory render cache keyed by a blake3 hash of the canonical map JSON, format, and dimensions.
// ABOUTME: Supports TTL-based expiry, concurrent access, pruning, and manual clearing.
package render

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"lukechampine.com/blake3"

	"github.com/2389-research/reasonsketch/reasoning"
)

// RenderFunc is the signature of the renderer the cache wraps.
type RenderFunc func(ctx context.Context, m reasoning.ReasoningMap, format string, opts Options) ([]byte, error)

type cacheEntry struct {
	data      []byte
	createdAt time.Time
}

// Cache wraps a RenderFunc with an in-memory cache. Entries expire after the
// configured TTL; errors are never cached.
type Cache struct {
	renderFn RenderFunc
	ttl      time.Duration
	entries  map[string]*cacheEntry
	mu       sync.RWMutex
}

// NewCache wraps renderFn. A nil renderFn uses Render.
func NewCache(renderFn RenderFunc, ttl time.Duration) *Cache {
	if renderFn == nil {
		renderFn = Render
	}
	return &Cache{
		renderFn: renderFn,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
	}
}

// Render returns a cached result when one exists and has not expired.
func (c *Cache) Render(ctx context.Context, m reasoning.ReasoningMap, format string, opts Options) ([]byte, error) {
	key, err := cacheKey(m, format, opts)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	if entry, ok := c.entries[key]; ok && time.Since(entry.createdAt) < c.ttl {
		data := entry.data
		c.mu.RUnlock()
		return data, nil
	}
	c.mu.RUnlock()

	data, err := c.renderFn(ctx, m, format, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = &cacheEntry{data: data, createdAt: time.Now()}
	c.mu.Unlock()
	return data, nil
}

// Len returns the number of entries, including expired ones.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prune drops expired entries and returns how many were removed.
func (c *Cache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if time.Since(e.createdAt) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// cacheKey hashes the map's canonical JSON together with everything that
// changes the output.
func cacheKey(m reasoning.ReasoningMap, format string, opts Options) (string, error) {
	payload, err := json.Marshal(struct {
		Map        reasoning.ReasoningMap `json:"map"`
		Format     string                 `json:"format"`
		Width      float64                `json:"width"`
		Height     float64                `json:"height"`
		Legend     bool                   `json:"legend"`
		Background bool                   `json:"background"`
		Fit        bool                   `json:"fit"`
		Layout     any                    `json:"layout"`
	}{m, format, opts.Width, opts.Height, opts.Legend, opts.Background, opts.Fit, opts.Layout})
	if err != nil {
		return "", fmt.Errorf("hashing render request: %w", err)
	}
	sum := blake3.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
