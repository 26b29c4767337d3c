package ports

import (
	"context"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
)

// Loader resolves class names to plugin instances.
// Sources are archives or directories added to its search path.
type Loader interface {
	// AddSource appends an archive or directory to the search path.
	// Adding a path twice is a no-op.
	AddSource(ctx context.Context, path string) error

	// RemoveSource drops a path from the search path and releases it.
	RemoveSource(path string)

	// Load instantiates the named class. When source is not empty the class
	// is read from that source only; classes compiled into the host are
	// found regardless.
	// Fails with ClassNotFoundError, InstantiationError or ErrNotAPlugin.
	Load(ctx context.Context, source, className string) (entities.Plugin, error)

	// Classes enumerates the candidate class names inside a source.
	Classes(ctx context.Context, path string) ([]string, error)
}
