package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiskStore writes run files under root/<runID>/<path>. In the flat layout
// the run id level is dropped and output lands directly in root, which is what
// a project checkout expects for src/pages and src/components.
//
// Writes whose content matches the file on disk are skipped, so a rebuild
// leaves unchanged files with their old mtime and a watching dev server only
// reloads what actually changed.
type DiskStore struct {
	root string
	flat bool
}

func NewDiskStore(root string, flat bool) *DiskStore {
	return &DiskStore{root: strings.TrimSpace(root), flat: flat}
}

func (s *DiskStore) Put(_ context.Context, runID, path string, content []byte) error {
	target, err := s.file(runID, path)
	if err != nil {
		return err
	}
	if old, err := os.ReadFile(target); err == nil && bytes.Equal(old, content) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (s *DiskStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	target, err := s.file(runID, path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return raw, err
}

// GetURL returns a file:// URL for the file.
func (s *DiskStore) GetURL(_ context.Context, runID, path string) (string, error) {
	target, err := s.file(runID, path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}

// List walks the run directory. Temp files from interrupted writes are
// ignored.
func (s *DiskStore) List(_ context.Context, runID string) ([]string, error) {
	dir, err := s.dir(runID)
	if err != nil {
		return nil, err
	}
	var out []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		switch {
		case err != nil:
			return err
		case d.IsDir(), strings.HasSuffix(d.Name(), ".tmp"):
			return nil
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func (s *DiskStore) dir(runID string) (string, error) {
	if s.root == "" {
		return "", fmt.Errorf("disk store root is required")
	}
	runID, _, err := normalize(runID, "_")
	if err != nil {
		return "", err
	}
	if s.flat {
		return s.root, nil
	}
	return filepath.Join(s.root, runID), nil
}

func (s *DiskStore) file(runID, path string) (string, error) {
	dir, err := s.dir(runID)
	if err != nil {
		return "", err
	}
	_, path, err = normalize(runID, path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.FromSlash(path)), nil
}
