package entities

import (
	"context"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// Plugin is the contract every plugin implementation satisfies.
// A loaded value that does not implement it is not a plugin candidate.
type Plugin interface {
	// Info reports the plugin's identity, version and capability.
	Info() values.PluginInfo
}

// InstalledLookup answers which plugins are currently enabled.
// It is handed to DependencyChecker implementations.
type InstalledLookup interface {
	ListByCapabilityAndCode(capability values.Capability, code string, includeDisabled bool) []*Descriptor
}

// DependencyChecker is implemented by plugins that need custom dependency
// checks beyond their declared dependencies.
// Implementations must not modify the registry.
type DependencyChecker interface {
	MissingDependencies(ctx context.Context, installed InstalledLookup) []values.Dependency
}

// Closer is implemented by plugins holding resources released on uninstall.
type Closer interface {
	Close(ctx context.Context) error
}
