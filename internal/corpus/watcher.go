package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for edits to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes of the corpus source file. Bursts of filesystem
// events are coalesced into one callback carrying the bytes read after the
// burst settled.
type Watcher struct {
	path     string
	debounce time.Duration
	onChange func(raw []byte)
	logger   *slog.Logger
}

func NewWatcher(path string, debounce time.Duration, onChange func(raw []byte), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		onChange: onChange,
		logger:   logger,
	}
}

// Run watches until ctx is done. The directory is watched rather than the
// file so that creation, replacement and deletion are all observed.
func (w *Watcher) Run(ctx context.Context) error {
	absPath, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(absPath)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	// a reload still pending when Run returns is dropped
	var stopped atomic.Bool
	defer stopped.Store(true)
	debounced := debounce.New(w.debounce)
	reload := func() {
		if stopped.Load() {
			return
		}
		w.onChange(LoadSource(absPath, w.logger))
	}

	w.logger.Info("corpus_watch_started", "path", absPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != absPath {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Debug("corpus_source_event", "op", ev.Op.String())
			debounced(reload)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("corpus_watch_error", "error", err.Error())
		}
	}
}
