// Package artifact persists the files a run emits (page and component
// source, downloaded assets, JSON dumps) keyed by run id and relative path.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// Store defines operations for persisting run artifacts.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	GetURL(ctx context.Context, runID, path string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

// normalize trims and validates a run id / path pair.
func normalize(runID, p string) (string, string, error) {
	runID = strings.TrimSpace(runID)
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if runID == "" {
		return "", "", fmt.Errorf("run_id is required")
	}
	if p == "" {
		return "", "", fmt.Errorf("path is required")
	}
	if strings.Contains(runID, "..") || strings.Contains(runID, "/") {
		return "", "", fmt.Errorf("invalid run_id: %s", runID)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", "", fmt.Errorf("invalid path: %s", p)
		}
	}
	return runID, p, nil
}

func objectKey(runID, p string) string {
	return runID + "/" + p
}

// ContentType guesses a MIME type from the artifact path.
func ContentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".js", ".jsx":
		return "text/javascript; charset=utf-8"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	}
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
