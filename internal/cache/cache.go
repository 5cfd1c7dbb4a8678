// Package cache provides a read-through cache for expensive data-source
// lookups, keyed by the request parameters.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dohyunlee/proplens/internal/metrics"
)

// Cache stores serialized lookup results keyed by request parameters.
type Cache interface {
	// Get unmarshals the cached value for params into out and reports
	// whether a fresh entry existed.
	Get(params map[string]string, out any) bool

	// Set stores v under params.
	Set(params map[string]string, v any) error
}

const defaultTTL = 24 * time.Hour

// FileCache implements Cache on top of one JSON file per entry. Entries
// expire after a TTL; expired files are removed on read.
type FileCache struct {
	dir  string
	name string
	ttl  time.Duration
	log  *slog.Logger
	now  func() time.Time
}

// Option configures a FileCache.
type Option func(*FileCache)

// WithTTL overrides the default 24h entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *FileCache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(c *FileCache) {
		c.now = now
	}
}

// NewFileCache creates the cache directory if needed. The name labels the
// cache in logs and metrics.
func NewFileCache(dir, name string, log *slog.Logger, opts ...Option) (*FileCache, error) {
	c := &FileCache{
		dir:  dir,
		name: name,
		ttl:  defaultTTL,
		log:  log.With("cache", name),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	return c, nil
}

type envelope struct {
	CachedAt time.Time         `json:"cached_at"`
	Params   map[string]string `json:"params"`
	Data     json.RawMessage   `json:"data"`
}

// Get implements Cache. A corrupt or expired file counts as a miss and is
// removed.
func (c *FileCache) Get(params map[string]string, out any) bool {
	path := c.path(params)

	raw, err := os.ReadFile(path)
	if err != nil {
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.log.Warn("removing corrupt cache entry", "path", path, "error", err)
		os.Remove(path)
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return false
	}

	if c.now().Sub(env.CachedAt) > c.ttl {
		c.log.Debug("cache entry expired", "path", path)
		os.Remove(path)
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return false
	}

	if err := json.Unmarshal(env.Data, out); err != nil {
		c.log.Warn("cache entry does not match requested type", "path", path, "error", err)
		metrics.CacheMissesTotal.WithLabelValues(c.name).Inc()
		return false
	}

	c.log.Debug("cache hit", "region", params["region"])
	metrics.CacheHitsTotal.WithLabelValues(c.name).Inc()
	return true
}

// Set implements Cache.
func (c *FileCache) Set(params map[string]string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling cache value: %w", err)
	}
	env := envelope{
		CachedAt: c.now(),
		Params:   params,
		Data:     data,
	}
	raw, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling cache envelope: %w", err)
	}
	if err := os.WriteFile(c.path(params), raw, 0o644); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry and returns how many were deleted.
func (c *FileCache) Clear() (int, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing cache entries: %w", err)
	}
	count := 0
	for _, f := range files {
		if os.Remove(f) == nil {
			count++
		}
	}
	c.log.Info("cache cleared", "entries", count)
	return count, nil
}

// ClearExpired removes expired and unreadable entries and returns how many
// were deleted.
func (c *FileCache) ClearExpired() (int, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing cache entries: %w", err)
	}
	count := 0
	for _, f := range files {
		var env envelope
		raw, err := os.ReadFile(f)
		if err == nil && json.Unmarshal(raw, &env) == nil {
			if c.now().Sub(env.CachedAt) <= c.ttl {
				continue
			}
		}
		if os.Remove(f) == nil {
			count++
		}
	}
	c.log.Info("expired cache entries cleared", "entries", count)
	return count, nil
}

// ClearRegion removes entries whose region parameter starts with region.
func (c *FileCache) ClearRegion(region string) (int, error) {
	files, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("listing cache entries: %w", err)
	}
	count := 0
	for _, f := range files {
		var env envelope
		raw, err := os.ReadFile(f)
		if err != nil || json.Unmarshal(raw, &env) != nil {
			continue
		}
		if strings.HasPrefix(env.Params["region"], region) && os.Remove(f) == nil {
			count++
		}
	}
	c.log.Info("cache cleared for region", "region", region, "entries", count)
	return count, nil
}

// path derives the entry file path from the params. json.Marshal emits map
// keys in sorted order, so equal params always map to the same file.
func (c *FileCache) path(params map[string]string) string {
	raw, _ := json.Marshal(params)
	sum := md5.Sum(raw)
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
