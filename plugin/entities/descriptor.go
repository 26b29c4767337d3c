// Package entities contains domain entities for the plugin registry.
package entities

import (
	"fmt"
	"sync/atomic"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// Descriptor is a snapshot of one installable plugin unit.
//
// Invariants:
// - className, code, uniqueID and capability are set
// - only PluginMap flips the enabled flag
type Descriptor struct {
	plugin          Plugin
	metadata        values.PluginMetadata
	className       string
	uniqueID        string
	source          string
	capability      values.Capability
	code            values.Code
	version         values.Version
	lowestSupported values.Version
	dependencies    []values.Dependency
	builtIn         bool
	enabled         atomic.Bool
	libraryProvider bool
}

// DescriptorOption configures a Descriptor at creation.
type DescriptorOption func(*Descriptor)

// WithSource sets the archive or directory the plugin was loaded from.
func WithSource(source string) DescriptorOption {
	return func(d *Descriptor) { d.source = source }
}

// AsBuiltIn marks the descriptor as coming from the bundled defaults.
func AsBuiltIn(builtIn bool) DescriptorOption {
	return func(d *Descriptor) { d.builtIn = builtIn }
}

// WithEnabled sets the initial enabled flag.
func WithEnabled(enabled bool) DescriptorOption {
	return func(d *Descriptor) { d.enabled.Store(enabled) }
}

// WithDefaultCapability is used when the plugin reports no capability,
// typically the capability of the descriptor-file group it was declared in.
func WithDefaultCapability(capability values.Capability) DescriptorOption {
	return func(d *Descriptor) {
		if d.capability.IsEmpty() {
			d.capability = capability
		}
	}
}

// NewDescriptor builds a descriptor from a loaded plugin.
// The unique id defaults to the class name.
func NewDescriptor(className string, plugin Plugin, opts ...DescriptorOption) (*Descriptor, error) {
	if className == "" {
		return nil, fmt.Errorf("%w: class name cannot be empty", ErrInvalidDescriptor)
	}
	if plugin == nil {
		return nil, fmt.Errorf("%w: %s: plugin is nil", ErrInvalidDescriptor, className)
	}

	info := plugin.Info()
	code, err := values.NewCode(info.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidDescriptor, className, err)
	}

	d := &Descriptor{
		plugin:          plugin,
		metadata:        info.Metadata(),
		className:       className,
		uniqueID:        info.UniqueID,
		capability:      info.Capability,
		code:            code,
		version:         info.Version,
		lowestSupported: info.LowestSupportedVersion,
		dependencies:    append([]values.Dependency(nil), info.Dependencies...),
		libraryProvider: info.LibraryProvider,
	}
	if d.uniqueID == "" {
		d.uniqueID = className
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.capability.IsEmpty() {
		return nil, fmt.Errorf("%w: %s: capability is not set", ErrInvalidDescriptor, className)
	}

	return d, nil
}

// ClassName returns the name the plugin was loaded by.
func (d *Descriptor) ClassName() string {
	return d.className
}

// Code returns the functionality code.
func (d *Descriptor) Code() values.Code {
	return d.code
}

// UniqueID returns the provider+implementation lineage identifier.
func (d *Descriptor) UniqueID() string {
	return d.uniqueID
}

// Version returns the plugin version.
func (d *Descriptor) Version() values.Version {
	return d.version
}

// LowestSupportedVersion returns the minimum host version required.
func (d *Descriptor) LowestSupportedVersion() values.Version {
	return d.lowestSupported
}

// Capability returns the implemented capability.
func (d *Descriptor) Capability() values.Capability {
	return d.capability
}

// Source returns the archive or directory path, empty for plugins built
// into the host.
func (d *Descriptor) Source() string {
	return d.source
}

// IsBuiltIn reports whether the descriptor comes from the bundled defaults.
func (d *Descriptor) IsBuiltIn() bool {
	return d.builtIn
}

// IsEnabled reports whether factories see this plugin. Safe to call
// while the registry changes the flag.
func (d *Descriptor) IsEnabled() bool {
	return d.enabled.Load()
}

// IsLibraryProvider reports whether the source belongs on the library path.
func (d *Descriptor) IsLibraryProvider() bool {
	return d.libraryProvider
}

// Dependencies returns the declared dependencies.
func (d *Descriptor) Dependencies() []values.Dependency {
	return append([]values.Dependency(nil), d.dependencies...)
}

// Metadata returns the display metadata.
func (d *Descriptor) Metadata() values.PluginMetadata {
	return d.metadata
}

// Plugin returns the live plugin instance.
func (d *Descriptor) Plugin() Plugin {
	return d.plugin
}

// Equals reports whether both descriptors have the same unique id and
// equal versions.
func (d *Descriptor) Equals(other *Descriptor) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.uniqueID == other.uniqueID && d.version.Equals(other.version)
}

// String returns "code uniqueID@version".
func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %s@%s", d.code, d.uniqueID, d.version)
}

func (d *Descriptor) setEnabled(enabled bool) bool {
	return d.enabled.CompareAndSwap(!enabled, enabled)
}
