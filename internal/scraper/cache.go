package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"go.uber.org/zap"
)

// DefaultCacheDir is where fetched postings are kept between runs.
const DefaultCacheDir = ".cache"

// cacheVersion tags the on-disk payload. Entries with another version are
// treated as misses and refetched.
const cacheVersion = 1

// Cache stores fetched pages on disk keyed by the posting URL hash. Anything
// unreadable counts as a miss, never as an error: the fetcher is the source
// of truth, the cache only saves browser round trips.
type Cache struct {
	dir    string
	logger *zap.Logger

	mu sync.Mutex
}

func NewCache(dir string, logger *zap.Logger) *Cache {
	if dir == "" {
		dir = DefaultCacheDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{dir: dir, logger: logger}
}

func (c *Cache) path(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

// Get loads the cached page for a URL. The payload is decoded loosely first,
// so a malformed or outdated entry degrades to a miss instead of failing the
// run.
func (c *Cache) Get(pageURL string) (*Page, bool) {
	data, err := os.ReadFile(c.path(pageURL))
	if err != nil {
		return nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		c.logger.Warn("discarding unreadable cache entry", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}

	version, ok := payload["version"].(float64)
	if !ok || int(version) != cacheVersion {
		return nil, false
	}

	var page Page
	cfg := &mapstructure.DecoderConfig{
		Result:     &page,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339Nano),
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, false
	}
	if err := decoder.Decode(payload["page"]); err != nil {
		c.logger.Warn("discarding undecodable cache entry", zap.String("url", pageURL), zap.Error(err))
		return nil, false
	}
	if page.URL == "" || page.Text == "" {
		return nil, false
	}

	return &page, true
}

// Put writes a page to the cache, creating the cache directory on first use.
func (c *Cache) Put(page *Page) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	envelope := map[string]any{
		"version": cacheVersion,
		"page":    page,
	}
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	if err := os.WriteFile(c.path(page.URL), data, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// cachedFetcher consults the cache before the real fetcher.
type cachedFetcher struct {
	inner   Fetcher
	cache   *Cache
	refresh bool
	logger  *zap.Logger
}

// WithCache puts the disk cache in front of a fetcher. With refresh set,
// cached entries are ignored and overwritten by fresh fetches. A failed cache
// write is logged and swallowed, the fetched page still flows through.
func WithCache(inner Fetcher, cache *Cache, refresh bool, logger *zap.Logger) Fetcher {
	if cache == nil {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedFetcher{inner: inner, cache: cache, refresh: refresh, logger: logger}
}

func (f *cachedFetcher) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	if !f.refresh {
		if page, ok := f.cache.Get(pageURL); ok {
			f.logger.Debug("posting loaded from cache", zap.String("url", pageURL))
			return page, nil
		}
	}

	page, err := f.inner.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	if err := f.cache.Put(page); err != nil {
		f.logger.Warn("caching posting failed", zap.String("url", pageURL), zap.Error(err))
	}
	return page, nil
}
