// Package watch re-runs generation when the local document changes or on a
// cron schedule. Rebuilds never overlap.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

type RebuildFunc func(ctx context.Context) error

// Trigger serialises calls to a RebuildFunc.
type Trigger struct {
	fn RebuildFunc
	mu sync.Mutex
}

func NewTrigger(fn RebuildFunc) *Trigger {
	return &Trigger{fn: fn}
}

// Fire runs the rebuild, waiting for any in-flight run first.
func (t *Trigger) Fire(ctx context.Context, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := t.fn(ctx); err != nil {
		log.Printf("watch: rebuild (%s) failed: %v", reason, err)
		return
	}
	log.Printf("watch: rebuild (%s) done in %s", reason, time.Since(start).Round(time.Millisecond))
}

// Watcher fires a Trigger after writes to one file settle for the debounce
// interval. The parent directory is watched so editors that replace the file
// are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	trigger  *Trigger
}

func NewWatcher(path string, debounce time.Duration, trigger *Trigger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{path: path, debounce: debounce, trigger: trigger}
}

// Run blocks until ctx is cancelled or the watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("watch: bad path %q: %w", w.path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return fmt.Errorf("watch: watch dir %q: %w", filepath.Dir(absPath), err)
	}
	log.Printf("watch: watching %s", absPath)

	var (
		timerMu sync.Mutex
		timer   *time.Timer
		wg      sync.WaitGroup
	)
	defer func() {
		timerMu.Lock()
		if timer != nil && timer.Stop() {
			wg.Done()
		}
		timerMu.Unlock()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if p, _ := filepath.Abs(event.Name); p != absPath {
				continue
			}
			timerMu.Lock()
			if timer != nil && timer.Stop() {
				wg.Done()
			}
			wg.Add(1)
			timer = time.AfterFunc(w.debounce, func() {
				defer wg.Done()
				log.Printf("watch: file changed %q", absPath)
				w.trigger.Fire(ctx, "file change")
			})
			timerMu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: error: %v", err)
		}
	}
}

// Schedule fires trigger on a cron spec (standard five fields or
// descriptors such as "@every 10m"). The returned stop func waits for a
// running rebuild to finish.
func Schedule(ctx context.Context, spec string, trigger *Trigger) (func(), error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		trigger.Fire(ctx, "schedule")
	}); err != nil {
		return nil, fmt.Errorf("watch: invalid schedule %q: %w", spec, err)
	}
	c.Start()
	log.Printf("watch: scheduled rebuilds %q", spec)
	return func() {
		<-c.Stop().Done()
	}, nil
}
