// Package watch installs plugin archives dropped into a directory while the
// host is running.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/loader"
)

// DefaultSettleDelay is how long a path must stay quiet before it is
// installed.
const DefaultSettleDelay = 500 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Installer installs every plugin an archive or directory provides.
// plugin.Manager implements it.
type Installer interface {
	InstallArchive(ctx context.Context, path string) ([]*entities.Descriptor, error)
}

// Watcher watches one directory for new plugin archives and directories.
type Watcher struct {
	dir       string
	installer Installer
	logger    *slog.Logger
	settle    time.Duration

	fsw       *fsnotify.Watcher
	closeOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithSettleDelay sets how long a path must stay quiet before it is
// installed.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) { w.settle = d }
}

// New starts watching dir. The directory must exist.
func New(dir string, installer Installer, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		dir:       dir,
		installer: installer,
		logger:    slog.Default(),
		settle:    DefaultSettleDelay,
	}
	for _, opt := range opts {
		opt(w)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch %s: not a directory", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w.fsw = fsw
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run installs sources as they appear until ctx is cancelled, in which case
// it returns nil, or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	ready := make(chan string)
	stop := make(chan struct{})
	timers := make(map[string]*time.Timer)
	defer func() {
		close(stop)
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			if !w.relevant(ev) {
				continue
			}
			path := ev.Name
			if t, ok := timers[path]; ok {
				t.Reset(w.settle)
				continue
			}
			timers[path] = time.AfterFunc(w.settle, func() {
				select {
				case ready <- path:
				case <-stop:
				}
			})

		case path := <-ready:
			delete(timers, path)
			w.install(ctx, path)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Warn("watch error", "dir", w.dir, "error", err)
		}
	}
}

// Close stops watching. A running Run returns ErrClosed.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return false
	}
	if loader.IsSourcePath(ev.Name) {
		return true
	}
	info, err := os.Stat(ev.Name)
	return err == nil && info.IsDir()
}

func (w *Watcher) install(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		w.logger.Debug("source vanished before install", "source", path)
		return
	}

	installed, err := w.installer.InstallArchive(ctx, path)
	if err != nil {
		w.logger.Warn("auto-install failed", "source", path, "error", err)
	}
	if len(installed) > 0 {
		w.logger.Info("auto-installed plugins", "source", path, "count", len(installed))
	}
}
