package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/richard-senior/mcp/pkg/mcp"
	"github.com/richard-senior/mcp/pkg/protocol"
)

// ToolResultCache stores prior tool results keyed by fingerprint, each with
// its own expiry.
type ToolResultCache interface {
	Get(fingerprint string) (*protocol.ToolResult, bool)
	Set(fingerprint string, result *protocol.ToolResult, ttl time.Duration)
}

// CachedToolWrapper returns a cached result for an identical (tool name,
// arguments) fingerprint until the cache entry expires. Returned errors,
// results with IsError set, and results whose JSON encoding is larger than
// MaxBytes are never cached (spec.md §4.5).
type CachedToolWrapper struct {
	Inner    mcp.Tool
	Cache    ToolResultCache
	TTL      time.Duration
	MaxBytes int
}

func (w *CachedToolWrapper) Definition() protocol.Tool { return w.Inner.Definition() }

func (w *CachedToolWrapper) Execute(ctx context.Context, args map[string]any) (*protocol.ToolResult, error) {
	fp, err := fingerprint(w.Inner.Definition().Name, args)
	if err != nil {
		return w.Inner.Execute(ctx, args)
	}
	if cached, ok := w.Cache.Get(fp); ok {
		return cached, nil
	}
	result, err := w.Inner.Execute(ctx, args)
	if err != nil || result == nil || result.IsError {
		return result, err
	}
	if w.MaxBytes > 0 {
		if b, merr := json.Marshal(result); merr == nil && len(b) > w.MaxBytes {
			return result, nil
		}
	}
	w.Cache.Set(fp, result, w.TTL)
	return result, nil
}

// fingerprint canonicalises (name, args) so that argument key order never
// affects cache hits: map keys are sorted before hashing.
func fingerprint(name string, args map[string]any) (string, error) {
	canonical, err := canonicalJSON(args)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(name + "\x00" + canonical))
	return hex.EncodeToString(sum[:]), nil
}

func canonicalJSON(v any) (string, error) {
	m, ok := v.(map[string]any)
	if !ok {
		b, err := json.Marshal(v)
		return string(b), err
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		vs, err := canonicalJSON(m[k])
		if err != nil {
			return "", err
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return "", err
		}
		parts = append(parts, string(kb)+":"+vs)
	}
	out := "{"
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out + "}", nil
}

// MemoryToolCache is the default, zero-config ToolResultCache: an in-process
// map, swept lazily on Get.
type MemoryToolCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  *protocol.ToolResult
	expires time.Time
}

// NewMemoryToolCache builds an empty in-memory cache.
func NewMemoryToolCache() *MemoryToolCache {
	return &MemoryToolCache{entries: make(map[string]cacheEntry)}
}

func (c *MemoryToolCache) Get(fingerprint string) (*protocol.ToolResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expires) {
		delete(c.entries, fingerprint)
		return nil, false
	}
	return e.result, true
}

func (c *MemoryToolCache) Set(fingerprint string, result *protocol.ToolResult, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = cacheEntry{result: result, expires: time.Now().Add(ttl)}
}
