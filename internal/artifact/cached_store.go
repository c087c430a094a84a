package artifact

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type CacheConfig struct {
	// Entries bounds the number of cached files; TTL expires them.
	Entries int
	TTL     time.Duration
	// MaxBody skips caching of files larger than this, which keeps big
	// rendered assets out of memory while page sources stay hot.
	MaxBody int

	ListTTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Entries: 512,
		TTL:     5 * time.Minute,
		MaxBody: 256 << 10,
		ListTTL: 30 * time.Second,
	}
}

// CacheStats counts cache traffic since the store was created.
type CacheStats struct {
	Hits         uint64
	Misses       uint64
	Oversized    uint64
	OriginWrites uint64
	OriginErrors uint64
}

// CachedStore fronts a remote Store (S3, Postgres) for the preview server,
// which reads the same run files over and over. Bodies and run listings are
// held in expiring LRUs; presigned URLs are never cached since they expire
// on their own schedule. Writes go to the origin before the cache.
type CachedStore struct {
	origin  Store
	maxBody int

	files *expirable.LRU[string, []byte]
	lists *expirable.LRU[string, []string]

	hits, misses, oversized atomic.Uint64
	writes, originErrs      atomic.Uint64
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.Entries <= 0 {
		cfg.Entries = def.Entries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxBody <= 0 {
		cfg.MaxBody = def.MaxBody
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	return &CachedStore{
		origin:  origin,
		maxBody: cfg.MaxBody,
		files:   expirable.NewLRU[string, []byte](cfg.Entries, nil, cfg.TTL),
		lists:   expirable.NewLRU[string, []string](64, nil, cfg.ListTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, runID, path string, content []byte) error {
	s.writes.Add(1)
	if err := s.origin.Put(ctx, runID, path, content); err != nil {
		s.originErrs.Add(1)
		return err
	}
	s.lists.Remove(strings.TrimSpace(runID))
	s.remember(fileKey(runID, path), content)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, runID, path string) ([]byte, error) {
	key := fileKey(runID, path)
	if body, ok := s.files.Get(key); ok {
		s.hits.Add(1)
		return append([]byte(nil), body...), nil
	}
	s.misses.Add(1)
	body, err := s.origin.Get(ctx, runID, path)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.originErrs.Add(1)
		}
		return nil, err
	}
	s.remember(key, body)
	return body, nil
}

func (s *CachedStore) GetURL(ctx context.Context, runID, path string) (string, error) {
	return s.origin.GetURL(ctx, runID, path)
}

func (s *CachedStore) List(ctx context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if files, ok := s.lists.Get(runID); ok {
		s.hits.Add(1)
		return append([]string(nil), files...), nil
	}
	s.misses.Add(1)
	files, err := s.origin.List(ctx, runID)
	if err != nil {
		s.originErrs.Add(1)
		return nil, err
	}
	s.lists.Add(runID, append([]string(nil), files...))
	return files, nil
}

// ListKind returns the run's files of one kind. Origins that filter by kind
// themselves are asked directly; otherwise the cached listing is filtered.
func (s *CachedStore) ListKind(ctx context.Context, runID, kind string) ([]string, error) {
	if kl, ok := s.origin.(interface {
		ListKind(ctx context.Context, runID, kind string) ([]string, error)
	}); ok {
		return kl.ListKind(ctx, runID, kind)
	}
	files, err := s.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range files {
		if FileKind(p) == kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *CachedStore) Stats() CacheStats {
	return CacheStats{
		Hits:         s.hits.Load(),
		Misses:       s.misses.Load(),
		Oversized:    s.oversized.Load(),
		OriginWrites: s.writes.Load(),
		OriginErrors: s.originErrs.Load(),
	}
}

func (s *CachedStore) remember(key string, body []byte) {
	if len(body) > s.maxBody {
		s.oversized.Add(1)
		s.files.Remove(key)
		return
	}
	s.files.Add(key, append([]byte(nil), body...))
}

func fileKey(runID, path string) string {
	return strings.TrimSpace(runID) + "\x00" + strings.TrimLeft(strings.TrimSpace(path), "/")
}
