package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestTriggerSerialisesRuns(t *testing.T) {
	var active, maxActive atomic.Int32
	trig := NewTrigger(func(context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trig.Fire(context.Background(), "test")
		}()
	}
	wg.Wait()
	if maxActive.Load() != 1 {
		t.Fatalf("rebuilds overlapped: max=%d", maxActive.Load())
	}
}

func TestTriggerSkipsCancelledContext(t *testing.T) {
	var runs atomic.Int32
	trig := NewTrigger(func(context.Context) error {
		runs.Add(1)
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	trig.Fire(ctx, "test")
	if runs.Load() != 0 {
		t.Fatalf("expected no run after cancellation")
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(doc, []byte("{}"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	var runs atomic.Int32
	trig := NewTrigger(func(context.Context) error {
		runs.Add(1)
		return nil
	})
	w := NewWatcher(doc, 100*time.Millisecond, trig)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	// let the watcher register before writing
	time.Sleep(100 * time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(doc, []byte(`{"n":1}`), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	// unrelated files in the same directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}

	waitFor(t, 2*time.Second, func() bool { return runs.Load() >= 1 })
	time.Sleep(250 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Fatalf("expected one debounced rebuild, got %d", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not stop")
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	if _, err := Schedule(context.Background(), "not a spec", NewTrigger(func(context.Context) error { return nil })); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScheduleFires(t *testing.T) {
	var runs atomic.Int32
	stop, err := Schedule(context.Background(), "@every 1s", NewTrigger(func(context.Context) error {
		runs.Add(1)
		return nil
	}))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	defer stop()
	waitFor(t, 3*time.Second, func() bool { return runs.Load() >= 1 })
}
