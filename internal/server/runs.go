package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"figmagen/internal/artifact"
)

// RunsHandler serves emitted run files from a store.
type RunsHandler struct {
	store artifact.Store
}

func NewRunsHandler(store artifact.Store) *RunsHandler {
	return &RunsHandler{store: store}
}

// kindLister is implemented by stores that filter by file kind themselves
// (artifact.PostgresStore).
type kindLister interface {
	ListKind(ctx context.Context, runID, kind string) ([]string, error)
}

type fileEntry struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

type listResponse struct {
	RunID string      `json:"runId"`
	Files []fileEntry `json:"files"`
}

// HandleList returns the files of a run as JSON. ?kind=page (or asset,
// component, registry, manifest, dump) narrows the listing.
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("runID")
	want := strings.TrimSpace(r.URL.Query().Get("kind"))
	if kl, ok := h.store.(kindLister); ok && want != "" {
		paths, err := kl.ListKind(r.Context(), runID, want)
		if err != nil {
			log.Printf("server: list %s files of run %s: %v", want, runID, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		// nothing of that kind; fall through so an unknown run still 404s
		if len(paths) > 0 {
			writeList(w, runID, paths, "")
			return
		}
	}
	paths, err := h.store.List(r.Context(), runID)
	if err != nil {
		log.Printf("server: list run %s: %v", runID, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(paths) == 0 {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	writeList(w, runID, paths, want)
}

func writeList(w http.ResponseWriter, runID string, paths []string, want string) {
	resp := listResponse{RunID: runID, Files: make([]fileEntry, 0, len(paths))}
	for _, p := range paths {
		kind := artifact.FileKind(p)
		if want != "" && kind != want {
			continue
		}
		resp.Files = append(resp.Files, fileEntry{Path: p, Kind: kind})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// HandleFile returns one file body. Assets in a store that can presign URLs
// are redirected instead of proxied.
func (h *RunsHandler) HandleFile(w http.ResponseWriter, r *http.Request) {
	runID, path := r.PathValue("runID"), r.PathValue("path")
	if artifact.FileKind(path) == "asset" {
		if u, err := h.store.GetURL(r.Context(), runID, path); err == nil && strings.HasPrefix(u, "http") {
			http.Redirect(w, r, u, http.StatusFound)
			return
		}
	}
	body, err := h.store.Get(r.Context(), runID, path)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
		http.Error(w, "file not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("server: get %s/%s: %v", runID, path, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType(path))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, _ = w.Write(body)
}
