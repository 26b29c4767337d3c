package loader

import (
	"context"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// ClassLoader resolves a class name to a plugin.
// Implements Chain of Responsibility pattern.
type ClassLoader interface {
	// Load instantiates the class or delegates to the next loader.
	// A non-empty source restricts file based loaders to that source.
	Load(ctx context.Context, source, className string) (entities.Plugin, error)

	// SetNext sets the next loader in the chain.
	SetNext(next ClassLoader)
}

// BaseLoader provides common chain-of-responsibility logic.
type BaseLoader struct {
	next ClassLoader
}

// SetNext sets the next loader in chain.
func (b *BaseLoader) SetNext(next ClassLoader) {
	b.next = next
}

// LoadNext delegates to next loader in chain.
func (b *BaseLoader) LoadNext(ctx context.Context, source, className string) (entities.Plugin, error) {
	if b.next == nil {
		return nil, &entities.ClassNotFoundError{ClassName: className}
	}
	return b.next.Load(ctx, source, className)
}
