// Package watch keeps scanning after the initial pass: archives that appear
// or change under the root are processed once they stop growing.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dyluth/credscan/internal/locator"
	"github.com/dyluth/credscan/internal/mediatype"
	"github.com/dyluth/credscan/internal/pipeline"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long an archive's size must stay unchanged before it
// is considered completely written.
const DefaultSettle = 2 * time.Second

// Processor handles one archive. *pipeline.Coordinator implements it.
type Processor interface {
	ProcessArchive(ctx context.Context, path string) (pipeline.ArchiveStats, error)
}

// Options configure a Watcher.
type Options struct {
	Sniffer   mediatype.Sniffer
	Settle    time.Duration
	Processor Processor
	Logger    *slog.Logger
}

// pending tracks an archive waiting to settle.
type pending struct {
	size    int64
	changed time.Time
}

// Watcher follows a directory tree with fsnotify.
type Watcher struct {
	root      string
	opts      Options
	fsw       *fsnotify.Watcher
	pending   map[string]*pending
	logger    *slog.Logger
	processed int
}

// New registers watches on root and every directory below it. Events that
// happen after New returns are picked up by Run.
func New(root string, opts Options) (*Watcher, error) {
	if opts.Processor == nil {
		return nil, errors.New("watch: processor is required")
	}
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat watch root: %w", err)
	}
	// A linked root is watched at its target; links below it are not followed.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch root %s is not a directory", root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		root:    root,
		opts:    opts,
		fsw:     fsw,
		pending: make(map[string]*pending),
		logger:  logger,
	}

	if err := w.addTree(root, false); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Close releases the underlying watches. Run closes them itself on return.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Processed returns how many archives Run has handed to the processor.
func (w *Watcher) Processed() int {
	return w.processed
}

// Run processes settled archives until ctx is cancelled. Archives are handed
// to the processor one at a time, oldest change first.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := w.opts.Settle / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case now := <-ticker.C:
			if err := w.flush(ctx, now); err != nil {
				return err
			}
		}
	}
}

// handleEvent updates the pending set for one fsnotify event.
// Returns true when the event queued an archive.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	path := event.Name

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		delete(w.pending, path)
		return false

	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if info.IsDir() {
			// Files may have landed before the watch was in place.
			if err := w.addTree(path, true); err != nil {
				w.logger.Warn("failed to watch new directory", "path", path, "error", err)
			}
			return false
		}
		return w.queue(path)

	case event.Has(fsnotify.Write):
		return w.queue(path)
	}

	return false
}

// queue marks path as changed if it names an archive.
func (w *Watcher) queue(path string) bool {
	if !locator.IsArchive(path, w.opts.Sniffer) {
		return false
	}
	if p, ok := w.pending[path]; ok {
		p.changed = time.Now()
		return true
	}
	w.pending[path] = &pending{size: -1, changed: time.Now()}
	w.logger.Debug("archive queued", "path", path)
	return true
}

// flush processes archives whose size has not changed for the settle period.
func (w *Watcher) flush(ctx context.Context, now time.Time) error {
	var ready []string
	for path, p := range w.pending {
		info, err := os.Stat(path)
		if err != nil {
			delete(w.pending, path)
			continue
		}
		if info.Size() != p.size {
			p.size = info.Size()
			p.changed = now
			continue
		}
		if now.Sub(p.changed) >= w.opts.Settle {
			ready = append(ready, path)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := w.pending[ready[i]], w.pending[ready[j]]
		if !a.changed.Equal(b.changed) {
			return a.changed.Before(b.changed)
		}
		return ready[i] < ready[j]
	})

	for _, path := range ready {
		delete(w.pending, path)
		w.processed++
		w.logger.Info("processing new archive", "path", path)
		if _, err := w.opts.Processor.ProcessArchive(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Already reported through pipeline events
			w.logger.Debug("archive failed", "path", path, "error", err)
		}
	}
	return nil
}

// addTree watches dir and its subdirectories. With queueExisting set,
// archives already present are queued as if they had just been created.
// Symlinked directories are not followed.
func (w *Watcher) addTree(dir string, queueExisting bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Warn("skipping unreadable directory", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if queueExisting && d.Type().IsRegular() {
			w.queue(path)
		}
		return nil
	})
}
