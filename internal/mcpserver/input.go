package mcpserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erraggy/wmtools/internal/httputil"
	"github.com/erraggy/wmtools/webmap"
)

// webmapInput represents the three ways a web map can be provided to a tool.
// Exactly one of File, URL, or Content must be set.
type webmapInput struct {
	File     string `json:"file,omitempty"     jsonschema:"Path to a web map JSON or YAML file on disk"`
	URL      string `json:"url,omitempty"      jsonschema:"URL returning web map JSON, such as a portal item data URL"`
	Content  string `json:"content,omitempty"  jsonschema:"Inline web map document content (JSON or YAML)"`
	Metadata string `json:"metadata,omitempty" jsonschema:"Optional JSON object of per-layer metadata keyed by layer id (created_date, fields, service, item_form)"`
	ID       string `json:"id,omitempty"       jsonschema:"Document id reported in results; defaults to the file name"`
}

// cacheEntry holds a cached document with LRU ordering and TTL expiry.
type cacheEntry struct {
	doc       *webmap.Document
	insertAt  time.Time
	expiresAt time.Time
}

// docCacheStore provides a session-scoped cache for parsed web maps.
// File inputs are keyed by (absolutePath, modTime). Content inputs are keyed
// by a SHA-256 hash. URL inputs are keyed by URL string. Documents are
// mutable, so the cache stores and hands out deep copies.
type docCacheStore struct {
	mu             sync.Mutex
	entries        map[string]*cacheEntry
	maxSize        int
	sweeperStarted atomic.Bool
}

var docCache = &docCacheStore{
	entries: make(map[string]*cacheEntry),
	maxSize: cfg.CacheMaxSize,
}

// get returns a copy of a cached document or nil. Expired entries are lazily removed.
func (c *docCacheStore) get(key string) *webmap.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if time.Now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil
	}
	e.insertAt = time.Now()
	return e.doc.DeepCopy()
}

// put stores a copy of doc, evicting the least recently used entry at capacity.
func (c *docCacheStore) put(key string, doc *webmap.Document, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	entry := &cacheEntry{doc: doc.DeepCopy(), insertAt: now, expiresAt: now.Add(ttl)}
	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		var oldestKey string
		var oldestTime time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.insertAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = e.insertAt
			}
		}
		delete(c.entries, oldestKey)
	}
	c.entries[key] = entry
}

// sweep removes all expired entries from the cache.
func (c *docCacheStore) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// startSweeper launches a background goroutine that periodically removes
// expired entries until ctx is cancelled. Only the first call starts one.
func (c *docCacheStore) startSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || !c.sweeperStarted.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.sweeperStarted.Store(false)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.sweep()
			}
		}
	}()
}

// reset clears all cached entries. Used in tests.
func (c *docCacheStore) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
}

// size returns the number of cached entries.
func (c *docCacheStore) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cacheKey returns the cache key and TTL for the input, or "" when the
// input must not be cached.
func (w webmapInput) cacheKey() (string, time.Duration) {
	if !cfg.CacheEnabled || w.Metadata != "" {
		return "", 0
	}
	switch {
	case w.File != "":
		absPath, err := filepath.Abs(w.File)
		if err != nil {
			return "", 0
		}
		info, err := os.Stat(absPath)
		if err != nil {
			return "", 0
		}
		return fmt.Sprintf("file:%s:%d:%s", absPath, info.ModTime().UnixNano(), w.ID), cfg.CacheFileTTL
	case w.Content != "":
		h := sha256.Sum256([]byte(w.Content))
		return fmt.Sprintf("content:%s:%s", hex.EncodeToString(h[:]), w.ID), cfg.CacheContentTTL
	case w.URL != "":
		return fmt.Sprintf("url:%s:%s", w.URL, w.ID), cfg.CacheURLTTL
	}
	return "", 0
}

// resolve parses the web map from whichever input was provided.
func (w webmapInput) resolve(ctx context.Context) (*webmap.Document, error) {
	count := 0
	for _, set := range []bool{w.File != "", w.URL != "", w.Content != ""} {
		if set {
			count++
		}
	}
	if count != 1 {
		return nil, fmt.Errorf("exactly one of file, url, or content must be provided (got %d)", count)
	}
	if w.Content != "" && int64(len(w.Content)) > cfg.MaxInlineSize {
		return nil, fmt.Errorf("inline content size %d bytes exceeds maximum %d bytes; use file input instead, or set WMTOOLS_MAX_INLINE_SIZE to increase",
			len(w.Content), cfg.MaxInlineSize)
	}

	key, ttl := w.cacheKey()
	if key != "" {
		if doc := docCache.get(key); doc != nil {
			return doc, nil
		}
	}

	var opts []webmap.Option
	if w.ID != "" {
		opts = append(opts, webmap.WithDocumentID(w.ID))
	}
	if w.Metadata != "" {
		var meta map[string]webmap.LayerMetadata
		if err := json.Unmarshal([]byte(w.Metadata), &meta); err != nil {
			return nil, fmt.Errorf("invalid metadata: %w", err)
		}
		opts = append(opts, webmap.WithMetadata(meta))
	}

	var doc *webmap.Document
	var err error
	switch {
	case w.File != "":
		doc, err = webmap.ParseWithOptions(append(opts, webmap.WithFilePath(w.File))...)
	case w.Content != "":
		doc, err = webmap.ParseWithOptions(append(opts, webmap.WithReader(strings.NewReader(w.Content)))...)
	default:
		doc, err = w.fetch(ctx, opts)
	}
	if err != nil {
		return nil, err
	}

	if key != "" {
		docCache.put(key, doc, ttl)
	}
	return doc, nil
}

func (w webmapInput) fetch(ctx context.Context, opts []webmap.Option) (*webmap.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := newHTTPClient(cfg.App.Portal.Timeout, cfg.AllowPrivateIPs).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching web map: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var raw map[string]any
	if err := httputil.DecodeResponse(resp, &raw); err != nil {
		return nil, fmt.Errorf("fetching web map: %w", err)
	}
	return webmap.FromMap(raw, opts...)
}
