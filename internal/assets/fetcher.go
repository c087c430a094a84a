// Package assets downloads image-fill bitmaps and rendered vector images
// referenced by a document.
package assets

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Dir is where downloaded assets are emitted, relative to the run root.
const Dir = "src/assets"

// Asset is one downloaded image. Key is the image-fill ref or the node id the
// image was rendered for.
type Asset struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"-"`
}

// FileName returns the emitted file name for the asset.
func (a Asset) FileName() string {
	return safeKey(a.Key) + extFor(a.ContentType, a.URL)
}

// Path returns the artifact path of the asset.
func (a Asset) Path() string {
	return Dir + "/" + a.FileName()
}

// Map indexes assets by key.
type Map map[string]Asset

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Merge copies other into m; entries in other win.
func (m Map) Merge(other Map) {
	for k, v := range other {
		m[k] = v
	}
}

type Options struct {
	HTTPClient  *http.Client
	Concurrency int
	// CacheSize bounds the URL-keyed download cache; <= 0 uses 256.
	CacheSize int
	CacheTTL  time.Duration
	// Disk, when set, keeps bodies between process runs.
	Disk *DiskCache
}

// Fetcher downloads assets with bounded parallelism. Bodies are cached by URL
// so watch-mode rebuilds do not download unchanged images again.
type Fetcher struct {
	http  *http.Client
	limit int
	cache *expirable.LRU[string, Asset]
	disk  *DiskCache
}

func NewFetcher(opts Options) *Fetcher {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Fetcher{
		http:  hc,
		limit: opts.Concurrency,
		cache: expirable.NewLRU[string, Asset](opts.CacheSize, nil, opts.CacheTTL),
		disk:  opts.Disk,
	}
}

// FetchAll downloads every key→url entry. Empty urls are skipped. The first
// failed download cancels the rest and is returned.
func (f *Fetcher) FetchAll(ctx context.Context, urls map[string]string) (Map, error) {
	out := make(Map, len(urls))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.limit)
	for key, u := range urls {
		key, u := key, strings.TrimSpace(u)
		if u == "" {
			continue
		}
		g.Go(func() error {
			a, err := f.Fetch(gctx, key, u)
			if err != nil {
				return err
			}
			mu.Lock()
			out[key] = a
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Fetch downloads a single asset, serving repeated URLs from the cache.
func (f *Fetcher) Fetch(ctx context.Context, key, u string) (Asset, error) {
	if cached, ok := f.cache.Get(u); ok {
		cached.Key = key
		return cached, nil
	}
	if stored, ok, err := f.disk.Load(u); err != nil {
		log.Printf("assets: disk cache read %s: %v", key, err)
	} else if ok {
		f.cache.Add(u, stored)
		stored.Key = key
		return stored, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Asset{}, fmt.Errorf("asset %s: %w", key, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return Asset{}, fmt.Errorf("asset %s: %w", key, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Asset{}, fmt.Errorf("asset %s: unexpected status %d: %s", key, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("asset %s: read body: %w", key, err)
	}
	a := Asset{
		Key:         key,
		URL:         u,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	f.cache.Add(u, a)
	if err := f.disk.Save(a); err != nil {
		log.Printf("assets: disk cache write %s: %v", key, err)
	}
	log.Printf("assets: fetched %s (%d bytes, %s)", key, len(body), a.ContentType)
	return a, nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeKey(key string) string {
	s := strings.Trim(unsafeKeyChars.ReplaceAllString(key, "-"), "-")
	if s == "" {
		return "asset"
	}
	return s
}

func extFor(contentType, rawURL string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		switch mediaType {
		case "image/svg+xml":
			return ".svg"
		case "image/png":
			return ".png"
		case "image/jpeg":
			return ".jpg"
		case "image/gif":
			return ".gif"
		case "application/pdf":
			return ".pdf"
		}
		if exts, _ := mime.ExtensionsByType(mediaType); len(exts) > 0 {
			return exts[0]
		}
	}
	if i := strings.IndexAny(rawURL, "?#"); i >= 0 {
		rawURL = rawURL[:i]
	}
	if ext := path.Ext(rawURL); ext != "" && len(ext) <= 5 {
		return strings.ToLower(ext)
	}
	return ".bin"
}
