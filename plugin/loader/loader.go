// Package loader discovers plugin classes in archives and directories and
// instantiates them.
//
// Classes compiled into the host are created through a factory.Registry.
// Classes shipped as .wasm entries are instantiated with wazero.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/factory"
)

// Loader implements ports.Loader over a search path of sources.
type Loader struct {
	path      *SearchPath
	factories *factory.Registry
	wasm      *WasmLoader
	chain     ClassLoader
	logger    *slog.Logger
	noWasm    bool
}

// Option configures the Loader.
type Option func(*Loader)

// WithFactories sets the registry of classes compiled into the host.
func WithFactories(registry *factory.Registry) Option {
	return func(l *Loader) {
		l.factories = registry
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// WithMaxModuleSize bounds the size of a module read from a source.
func WithMaxModuleSize(n int64) Option {
	return func(l *Loader) {
		l.path.MaxEntrySize = n
	}
}

// WithoutWasm disables the wasm runtime.
func WithoutWasm() Option {
	return func(l *Loader) {
		l.noWasm = true
	}
}

// New creates a loader. Classes are resolved through the factory registry
// first, then through .wasm entries on the search path.
func New(ctx context.Context, opts ...Option) (*Loader, error) {
	l := &Loader{
		path:   &SearchPath{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.factories == nil {
		l.factories = factory.NewRegistry()
	}

	first := ClassLoader(NewFactoryLoader(l.factories))
	if !l.noWasm {
		wasm, err := NewWasmLoader(ctx, l.path, l.logger)
		if err != nil {
			return nil, err
		}
		l.wasm = wasm
		first.SetNext(wasm)
	}
	l.chain = first
	return l, nil
}

// AddSource appends an archive or directory to the search path.
func (l *Loader) AddSource(_ context.Context, path string) error {
	if err := l.path.Add(path); err != nil {
		return err
	}
	l.logger.Debug("source added", "source", path)
	return nil
}

// RemoveSource drops a source from the search path.
func (l *Loader) RemoveSource(path string) {
	if err := l.path.Remove(path); err != nil {
		l.logger.Warn("failed to close source", "source", path, "error", err)
	}
}

// Load instantiates a class through the loader chain. A non-empty source
// must already be on the search path and is the only one read.
func (l *Loader) Load(ctx context.Context, source, className string) (entities.Plugin, error) {
	return l.chain.Load(ctx, source, className)
}

// Classes lists the class names declared by a source. Sources not on the
// search path are opened for the scan only.
func (l *Loader) Classes(_ context.Context, path string) ([]string, error) {
	if src, ok := l.path.Get(path); ok {
		return src.Classes()
	}

	src, err := OpenSource(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = src.Close()
	}()
	return src.Classes()
}

// SearchPath returns the source paths in resolution order.
func (l *Loader) SearchPath() []string {
	return l.path.Paths()
}

// Close releases the wasm runtime and every open source.
func (l *Loader) Close(ctx context.Context) error {
	var errs []error
	if l.wasm != nil {
		if err := l.wasm.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to close wasm runtime: %w", err))
		}
	}
	errs = append(errs, l.path.Close())
	return errors.Join(errs...)
}
