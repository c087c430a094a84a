package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"figmagen/internal/artifact"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := artifact.NewMemoryStore()
	ctx := context.Background()
	for p, body := range map[string]string{
		"src/pages/index.js": "export default 1;",
		"src/assets/1-2.svg": "<svg/>",
		"manifest.json":      `{"runId":"r1"}`,
	} {
		if err := store.Put(ctx, "r1", p, []byte(body)); err != nil {
			t.Fatalf("seed %s: %v", p, err)
		}
	}
	srv := httptest.NewServer(NewMux(NewRunsHandler(store)))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, string(b)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || body != "ok" {
		t.Fatalf("healthz: %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing cors header")
	}
}

func TestListRun(t *testing.T) {
	srv := newTestServer(t)
	resp, body := get(t, srv.URL+"/runs/r1")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d %s", resp.StatusCode, body)
	}
	var got listResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != "r1" || len(got.Files) != 3 || got.Files[0] != (fileEntry{Path: "manifest.json", Kind: "manifest"}) {
		t.Fatalf("unexpected list: %+v", got)
	}

	_, body = get(t, srv.URL+"/runs/r1?kind=asset")
	got = listResponse{}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode filtered: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0].Path != "src/assets/1-2.svg" {
		t.Fatalf("kind filter: %+v", got.Files)
	}

	resp, _ = get(t, srv.URL+"/runs/unknown")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown run: %d", resp.StatusCode)
	}
}

func TestGetFile(t *testing.T) {
	srv := newTestServer(t)
	cases := []struct {
		path   string
		status int
		ctype  string
		body   string
	}{
		{"/runs/r1/files/src/pages/index.js", http.StatusOK, "text/javascript; charset=utf-8", "export default 1;"},
		{"/runs/r1/files/src/assets/1-2.svg", http.StatusOK, "image/svg+xml", "<svg/>"},
		{"/runs/r1/files/missing.js", http.StatusNotFound, "", ""},
	}
	for _, tc := range cases {
		resp, body := get(t, srv.URL+tc.path)
		if resp.StatusCode != tc.status {
			t.Fatalf("%s: status %d", tc.path, resp.StatusCode)
		}
		if tc.status != http.StatusOK {
			continue
		}
		if ct := resp.Header.Get("Content-Type"); ct != tc.ctype {
			t.Fatalf("%s: content type %q", tc.path, ct)
		}
		if body != tc.body {
			t.Fatalf("%s: body %q", tc.path, body)
		}
	}
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t)
	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/runs/r1", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("preflight status: %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("origin not echoed: %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}

type presigningStore struct {
	*artifact.MemoryStore
}

func (presigningStore) GetURL(_ context.Context, runID, path string) (string, error) {
	return "https://cdn.example/" + runID + "/" + path, nil
}

func TestAssetRedirectsToPresignedURL(t *testing.T) {
	store := presigningStore{artifact.NewMemoryStore()}
	ctx := context.Background()
	_ = store.Put(ctx, "r1", "src/assets/hero.png", []byte("png"))
	_ = store.Put(ctx, "r1", "src/pages/index.js", []byte("page"))
	srv := httptest.NewServer(NewMux(NewRunsHandler(store)))
	defer srv.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/runs/r1/files/src/assets/hero.png")
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "https://cdn.example/r1/src/assets/hero.png" {
		t.Fatalf("asset: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err = client.Get(srv.URL + "/runs/r1/files/src/pages/index.js")
	if err != nil {
		t.Fatalf("get page: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pages are served directly, got %d", resp.StatusCode)
	}
}

type kindFilteringStore struct {
	*artifact.MemoryStore
	kinds []string
}

func (s *kindFilteringStore) ListKind(ctx context.Context, runID, kind string) ([]string, error) {
	s.kinds = append(s.kinds, kind)
	all, err := s.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range all {
		if artifact.FileKind(p) == kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestListKindDelegatesToStore(t *testing.T) {
	store := &kindFilteringStore{MemoryStore: artifact.NewMemoryStore()}
	_ = store.Put(context.Background(), "r1", "src/pages/index.js", []byte("page"))
	_ = store.Put(context.Background(), "r1", "manifest.json", []byte("{}"))
	srv := httptest.NewServer(NewMux(NewRunsHandler(store)))
	defer srv.Close()

	resp, body := get(t, srv.URL+"/runs/r1?kind=page")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d %s", resp.StatusCode, body)
	}
	var got listResponse
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Files) != 1 || got.Files[0] != (fileEntry{Path: "src/pages/index.js", Kind: "page"}) {
		t.Fatalf("files: %+v", got.Files)
	}
	if len(store.kinds) != 1 || store.kinds[0] != "page" {
		t.Fatalf("store filter not used: %v", store.kinds)
	}

	resp, _ = get(t, srv.URL+"/runs/missing?kind=page")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown run with kind filter: %d", resp.StatusCode)
	}
}
