package assets

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

type DiskCacheConfig struct {
	Dir        string
	MaxEntries int
	// MaxBytes bounds the total body size; <= 0 means unbounded.
	MaxBytes int64
	TTL      time.Duration
}

type cacheEntry struct {
	File        string    `json:"file"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	ExpiresAt   time.Time `json:"expires_at"`
	AccessedAt  time.Time `json:"accessed_at"`
}

type cacheIndex struct {
	Entries map[string]cacheEntry `json:"entries"`
}

// DiskCache keeps downloaded asset bodies between runs, keyed by URL, with
// TTL expiry and least-recently-used eviction. The index is rewritten on
// every change.
type DiskCache struct {
	mu sync.Mutex

	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64
	ttl        time.Duration

	totalBytes int64
	entries    map[string]cacheEntry
}

func OpenDiskCache(cfg DiskCacheConfig) (*DiskCache, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("assets: cache dir is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 2048
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	c := &DiskCache{
		dataDir:    filepath.Join(dir, "data"),
		indexPath:  filepath.Join(dir, "index.json"),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		ttl:        cfg.TTL,
		entries:    map[string]cacheEntry{},
	}
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadIndexLocked(); err != nil {
		return nil, err
	}
	c.evictLocked(time.Now())
	if err := c.persistLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load returns the cached asset for url. A miss is not an error.
func (c *DiskCache) Load(url string) (Asset, bool, error) {
	if c == nil {
		return Asset{}, false, nil
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	ent, ok := c.entries[url]
	if !ok {
		return Asset{}, false, nil
	}
	if now.After(ent.ExpiresAt) {
		c.removeLocked(url, ent)
		return Asset{}, false, c.persistLocked()
	}
	body, err := os.ReadFile(filepath.Join(c.dataDir, ent.File))
	if os.IsNotExist(err) {
		c.removeLocked(url, ent)
		return Asset{}, false, c.persistLocked()
	}
	if err != nil {
		return Asset{}, false, err
	}
	ent.AccessedAt = now
	c.entries[url] = ent
	if err := c.persistLocked(); err != nil {
		return Asset{}, false, err
	}
	return Asset{URL: url, ContentType: ent.ContentType, Body: body}, true, nil
}

// Save stores a downloaded asset under its URL.
func (c *DiskCache) Save(a Asset) error {
	if c == nil {
		return nil
	}
	if a.URL == "" {
		return fmt.Errorf("assets: cache key is empty")
	}
	now := time.Now()
	file := hashedName(a.URL)

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.entries[a.URL]; ok {
		c.totalBytes -= old.Size
	}
	if err := os.WriteFile(filepath.Join(c.dataDir, file), a.Body, 0o644); err != nil {
		return err
	}
	c.entries[a.URL] = cacheEntry{
		File:        file,
		ContentType: a.ContentType,
		Size:        int64(len(a.Body)),
		ExpiresAt:   now.Add(c.ttl),
		AccessedAt:  now,
	}
	c.totalBytes += int64(len(a.Body))
	c.evictLocked(now)
	return c.persistLocked()
}

// Len reports the number of cached entries.
func (c *DiskCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *DiskCache) loadIndexLocked() error {
	raw, err := os.ReadFile(c.indexPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var idx cacheIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return fmt.Errorf("assets: decode cache index: %w", err)
	}
	if idx.Entries != nil {
		c.entries = idx.Entries
	}
	c.totalBytes = 0
	for _, ent := range c.entries {
		c.totalBytes += ent.Size
	}
	return nil
}

// evictLocked drops expired and orphaned entries, then the least recently
// used ones until the limits hold.
func (c *DiskCache) evictLocked(now time.Time) {
	for url, ent := range c.entries {
		if now.After(ent.ExpiresAt) {
			c.removeLocked(url, ent)
			continue
		}
		if _, err := os.Stat(filepath.Join(c.dataDir, ent.File)); os.IsNotExist(err) {
			c.removeLocked(url, ent)
		}
	}
	if !c.overLimitLocked() {
		return
	}
	urls := make([]string, 0, len(c.entries))
	for url := range c.entries {
		urls = append(urls, url)
	}
	sort.Slice(urls, func(i, j int) bool {
		ai, aj := c.entries[urls[i]].AccessedAt, c.entries[urls[j]].AccessedAt
		if ai.Equal(aj) {
			return urls[i] < urls[j]
		}
		return ai.Before(aj)
	})
	for _, url := range urls {
		if !c.overLimitLocked() {
			return
		}
		c.removeLocked(url, c.entries[url])
	}
}

func (c *DiskCache) overLimitLocked() bool {
	if len(c.entries) == 0 {
		return false
	}
	return len(c.entries) > c.maxEntries || (c.maxBytes > 0 && c.totalBytes > c.maxBytes)
}

func (c *DiskCache) removeLocked(url string, ent cacheEntry) {
	delete(c.entries, url)
	c.totalBytes = max(c.totalBytes-ent.Size, 0)
	_ = os.Remove(filepath.Join(c.dataDir, ent.File))
}

func (c *DiskCache) persistLocked() error {
	raw, err := json.MarshalIndent(cacheIndex{Entries: c.entries}, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.indexPath)
}

func hashedName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:]) + ".bin"
}
