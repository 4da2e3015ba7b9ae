package draftfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/jsamuelsen/blogdraft/internal/platform/logging"
)

// Watcher reports edits to one draft file. It watches the parent directory
// so editors that save by renaming a temp file over the draft are seen.
type Watcher struct {
	path   string
	fs     *fsnotify.Watcher
	logger *slog.Logger
	last   []byte
}

// NewWatcher starts watching path. Call Run to receive revisions and Close
// to release the watch.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving draft path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{path: abs, fs: fw, logger: logger}, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Run calls fn with each new revision of the file until ctx is done or the
// watcher is closed. Revisions that fail to parse are logged and skipped;
// byte-identical rewrites are skipped silently.
func (w *Watcher) Run(ctx context.Context, fn func(*Document)) error {
	log := logging.FromContextOr(ctx, w.logger).With(slog.String("path", w.path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != w.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			data, err := os.ReadFile(w.path)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			if err != nil {
				log.WarnContext(ctx, "reading draft failed", slog.Any("error", err))
				continue
			}

			// Truncated mid-write; the write that follows raises its own event.
			if len(data) == 0 {
				continue
			}

			if w.last != nil && bytes.Equal(data, w.last) {
				continue
			}

			doc, err := Parse(data)
			if err != nil {
				log.WarnContext(ctx, "draft not parsed", slog.Any("error", err))
				continue
			}

			w.last = data
			log.DebugContext(ctx, "draft changed", slog.String("op", ev.Op.String()))
			fn(doc)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}

			log.WarnContext(ctx, "file watcher error", slog.Any("error", err))
		}
	}
}

// Close stops the watch. Run returns once it observes the close.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
