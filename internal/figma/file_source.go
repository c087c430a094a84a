package figma

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"figmagen/internal/types"
)

// FileSource reads a previously saved GET /v1/files response from disk, for
// offline runs. It has no access to image exports, so the image methods
// return empty manifests.
type FileSource struct {
	path string
}

func NewFileSource(path string) (*FileSource, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("figma: document path is required")
	}
	return &FileSource{path: path}, nil
}

func (s *FileSource) Path() string { return s.path }

func (s *FileSource) File(_ context.Context) (*File, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	var out File
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", s.path, err)
	}
	if out.Document == nil {
		return nil, fmt.Errorf("decode document %s: %w: no document", s.path, types.ErrMalformedNode)
	}
	return &out, nil
}

func (s *FileSource) ImageFills(context.Context) (map[string]string, error) {
	return map[string]string{}, nil
}

func (s *FileSource) RenderImages(context.Context, []string, string) (map[string]string, error) {
	return map[string]string{}, nil
}

// Nodes re-reads the document and returns the requested subtrees.
func (s *FileSource) Nodes(ctx context.Context, ids []string) (map[string]*types.Node, error) {
	f, err := s.File(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.Node, len(ids))
	for _, id := range ids {
		if n, ok := f.Document.Find(id); ok {
			out[id] = n
		}
	}
	return out, nil
}
