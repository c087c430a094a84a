package figma

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"figmagen/internal/types"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient("KEY", "tok", Options{BaseURL: srv.URL, BaseDelay: time.Millisecond, MaxAttempts: 3})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClientFileSendsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/files/KEY" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if r.Header.Get("X-Figma-Token") != "tok" {
			t.Errorf("missing token header")
		}
		_, _ = w.Write([]byte(`{"name":"Demo","document":{"id":"0:0","type":"DOCUMENT","children":[
			{"id":"0:1","type":"CANVAS","prototypeStartNodeID":"1:1","children":[{"id":"1:1","type":"FRAME","name":"Home"}]}]}}`))
	})
	f, err := c.File(context.Background())
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	canvas, err := f.Canvas()
	if err != nil {
		t.Fatalf("canvas: %v", err)
	}
	if canvas.PrototypeStartNodeID != "1:1" || len(canvas.Children) != 1 || canvas.Children[0].Name != "Home" {
		t.Fatalf("unexpected canvas: %+v", canvas)
	}
}

func TestClientImageFillsDropsNull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":false,"status":200,"meta":{"images":{"a":"https://img/a","b":null}}}`))
	})
	got, err := c.ImageFills(context.Background())
	if err != nil {
		t.Fatalf("image fills: %v", err)
	}
	if len(got) != 1 || got["a"] != "https://img/a" {
		t.Fatalf("unexpected manifest: %#v", got)
	}
}

func TestClientRenderImagesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/KEY" {
			t.Errorf("path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("ids") != "1:2,1:3" || r.URL.Query().Get("format") != "svg" {
			t.Errorf("query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"err":null,"images":{"1:2":"https://r/2","1:3":null}}`))
	})
	got, err := c.RenderImages(context.Background(), []string{"1:2", "1:3"}, "")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(got) != 1 || got["1:2"] != "https://r/2" {
		t.Fatalf("unexpected renders: %#v", got)
	}
	empty, err := c.RenderImages(context.Background(), nil, "svg")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty ids should short-circuit: %v %v", empty, err)
	}
}

func TestClientNodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"nodes":{"1:1":{"document":{"id":"1:1","type":"FRAME"}},"9:9":null}}`))
	})
	got, err := c.Nodes(context.Background(), []string{"1:1", "9:9"})
	if err != nil {
		t.Fatalf("nodes: %v", err)
	}
	if len(got) != 1 || got["1:1"].Type != types.NodeFrame {
		t.Fatalf("unexpected nodes: %#v", got)
	}
}

func TestClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"meta":{"images":{}}}`))
	})
	if _, err := c.ImageFills(context.Background()); err != nil {
		t.Fatalf("expected success after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestClientDoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"status":403,"err":"Invalid token"}`))
	})
	_, err := c.File(context.Background())
	var pErr *PermanentError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		t.Fatalf("expected api error with status, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err := c.File(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway {
		t.Fatalf("expected last api error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient("", "tok", Options{}); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewClient("KEY", " ", Options{}); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "doc.json")
	body := `{"name":"Local","document":{"id":"0:0","type":"DOCUMENT","children":[
		{"id":"0:1","type":"CANVAS","children":[{"id":"1:1","type":"FRAME","children":[{"id":"1:2","type":"TEXT"}]}]}]}}`
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	src, err := NewFileSource(p)
	if err != nil {
		t.Fatalf("new source: %v", err)
	}
	f, err := src.File(context.Background())
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if f.Name != "Local" {
		t.Fatalf("name: %s", f.Name)
	}
	nodes, err := src.Nodes(context.Background(), []string{"1:2", "nope"})
	if err != nil || len(nodes) != 1 || nodes["1:2"].Type != types.NodeText {
		t.Fatalf("nodes: %#v %v", nodes, err)
	}
	fills, _ := src.ImageFills(context.Background())
	if len(fills) != 0 {
		t.Fatalf("file source has no image fills")
	}
}

func TestCanvasMissing(t *testing.T) {
	f := &File{Document: &types.Node{ID: "0:0", Type: types.NodeDocument}}
	if _, err := f.Canvas(); !errors.Is(err, ErrNoCanvas) {
		t.Fatalf("expected ErrNoCanvas, got %v", err)
	}
}

func TestRPSLimiterSpacesRequests(t *testing.T) {
	l := newRPSLimiter(10, 2)
	defer l.Stop()
	now := time.Now()
	waits := []time.Duration{l.reserve(now), l.reserve(now), l.reserve(now)}
	if waits[0] != 0 || waits[1] != 0 {
		t.Fatalf("burst of two should pass immediately: %v", waits)
	}
	if waits[2] != 100*time.Millisecond {
		t.Fatalf("third call should wait one interval, got %v", waits[2])
	}
	if got := l.reserve(now.Add(time.Second)); got != 0 {
		t.Fatalf("idle limiter should not wait, got %v", got)
	}

	l.Stop()
	if err := l.Acquire(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("stopped limiter: %v", err)
	}
	var none *rpsLimiter
	if err := none.Acquire(context.Background()); err != nil {
		t.Fatalf("nil limiter: %v", err)
	}
}
