// Package watch discovers freshly scanned images in a hot folder. Scanner
// drivers write files incrementally, so each new image is debounced until its
// writes settle before it is handed to the caller.
package watch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/purushottampradhan001-creator/answer-sheet-scan/observability"
	"github.com/purushottampradhan001-creator/answer-sheet-scan/raster"
)

// Config assembles a Watcher.
type Config struct {
	// Dir is the hot folder the scanner writes into.
	Dir string
	// Debounce is how long a file must stay quiet before it is emitted.
	Debounce time.Duration
	// Logger receives watcher trace output. Nil means silent.
	Logger observability.Logger
}

// DefaultConfig watches with a settle time generous enough for slow scanner
// drivers.
func DefaultConfig(dir string) Config {
	return Config{Dir: dir, Debounce: 500 * time.Millisecond, Logger: observability.NopLogger{}}
}

// Watcher emits image paths once their writes have settled. Non-image files
// are ignored.
type Watcher struct {
	cfg Config
	log observability.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New validates the configuration and constructs a Watcher.
func New(cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("watch directory is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &Watcher{cfg: cfg, log: cfg.Logger, pending: make(map[string]*time.Timer)}, nil
}

// Run watches the hot folder until ctx is canceled, invoking handle once per
// settled image. handle is called from timer goroutines; it must be safe to
// call concurrently with Run.
func (w *Watcher) Run(ctx context.Context, handle func(path string)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer fsw.Close()
	defer w.cancelPending()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	w.log.Info("watching for scans", observability.String("dir", w.cfg.Dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !raster.IsImagePath(event.Name) {
				continue
			}
			w.touch(event.Name, handle)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", observability.Error("error", err))
		}
	}
}

// touch arms or rearms the settle timer for one path.
func (w *Watcher) touch(path string, handle func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.cfg.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.log.Debug("scan settled", observability.String("path", path))
		handle(path)
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
