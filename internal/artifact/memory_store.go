package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemoryStore holds runs in process memory. It backs tests, offline previews
// and the -store memory mode.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string]map[string][]byte{}}
}

func (s *MemoryStore) Put(_ context.Context, runID, path string, content []byte) error {
	runID, path, err := normalize(runID, path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	files := s.runs[runID]
	if files == nil {
		files = map[string][]byte{}
		s.runs[runID] = files
	}
	files[path] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	runID, path, err := normalize(runID, path)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.runs[runID][path]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, runID string) ([]string, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runs[runID]))
	for p := range s.runs[runID] {
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}

// Runs returns the ids of every run held, sorted.
func (s *MemoryStore) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.runs))
	for id := range s.runs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// GetURL is unsupported; in-memory files are only reachable through Get.
func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
