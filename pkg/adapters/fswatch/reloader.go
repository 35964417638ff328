// Package fswatch reports script source changes from the filesystem.
package fswatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/aretw0/rerun/internal/logging"
	"github.com/aretw0/rerun/pkg/ports"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes, e.g. from editors saving through a temp file.
const DefaultDebounce = 100 * time.Millisecond

// DefaultDependencyFiles are file names whose change invalidates cached values.
var DefaultDependencyFiles = []string{"go.mod", "go.sum"}

// Reloader implements ports.Reloader on top of fsnotify.
type Reloader struct {
	paths    []string
	deps     []string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Reloader.
type Option func(*Reloader)

// WithDependencyFiles replaces the file names that mark dependency changes.
func WithDependencyFiles(names ...string) Option {
	return func(r *Reloader) {
		r.deps = names
	}
}

// WithDebounce sets the quiet period before an event is emitted.
func WithDebounce(d time.Duration) Option {
	return func(r *Reloader) {
		r.debounce = d
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reloader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New watches the given files or directories (non-recursive).
func New(paths []string, opts ...Option) *Reloader {
	r := &Reloader{
		paths:    paths,
		deps:     DefaultDependencyFiles,
		debounce: DefaultDebounce,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ ports.Reloader = (*Reloader)(nil)

// Watch streams reload events until ctx is cancelled.
func (r *Reloader) Watch(ctx context.Context) (<-chan ports.ReloadEvent, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	for _, p := range r.paths {
		if err := w.Add(p); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	out := make(chan ports.ReloadEvent)
	go r.loop(ctx, w, out)
	return out, nil
}

func (r *Reloader) loop(ctx context.Context, w *fsnotify.Watcher, out chan<- ports.ReloadEvent) {
	defer close(out)
	defer w.Close()

	var pending *ports.ReloadEvent
	timer := time.NewTimer(r.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			deps := slices.Contains(r.deps, filepath.Base(ev.Name))
			if pending == nil {
				pending = &ports.ReloadEvent{Source: ev.Name}
			}
			pending.DependenciesChanged = pending.DependenciesChanged || deps
			timer.Reset(r.debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			r.logger.Warn("File watcher error", "err", err)
		case <-timer.C:
			if pending == nil {
				continue
			}
			select {
			case out <- *pending:
			case <-ctx.Done():
				return
			}
			pending = nil
		}
	}
}
