// Package plugin implements the plugin registry of a host application.
//
// A Manager keeps installed plugins indexed by capability and code, enforces
// that at most one implementation per code is enabled, resolves versions and
// dependencies, and persists user changes to a descriptor file.
package plugin

import (
	"io/fs"
	"log/slog"
	"slices"
	"sync"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/filesystem"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/ports"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/services"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// Manager is the plugin registry.
// All registry operations are serialized; listeners are notified after the
// registry lock is released, so they may call back into the manager.
type Manager struct {
	loader     ports.Loader
	repository ports.DescriptorRepository
	catalog    ports.MessageCatalog
	compat     *services.CompatibilityChecker
	deps       *services.DependencyResolver
	logger     *slog.Logger

	bundledFS      fs.FS
	bundledPath    string
	overridePath   string
	autoInstallDir string

	mu           sync.Mutex
	plugins      *entities.PluginMap
	libraries    *entities.LibraryMap
	capabilities *entities.CapabilityMap
	libraryPath  []string
	pending      []Event

	listenersMu sync.RWMutex
	listeners   []Listener

	initOnce sync.Once
	initErr  error
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithHostVersion sets the version plugins are checked against.
func WithHostVersion(v values.Version) Option {
	return func(m *Manager) { m.compat = services.NewCompatibilityChecker(v) }
}

// WithBundledDescriptors sets the descriptor file of the built-in plugins.
func WithBundledDescriptors(fsys fs.FS, path string) Option {
	return func(m *Manager) {
		m.bundledFS = fsys
		m.bundledPath = path
	}
}

// WithOverridePath sets the descriptor file user changes are saved to.
func WithOverridePath(path string) Option {
	return func(m *Manager) { m.overridePath = path }
}

// WithAutoInstallDir sets the directory scanned for plugin archives.
func WithAutoInstallDir(dir string) Option {
	return func(m *Manager) { m.autoInstallDir = dir }
}

// WithRepository sets the descriptor file repository.
func WithRepository(r ports.DescriptorRepository) Option {
	return func(m *Manager) { m.repository = r }
}

// WithCatalog sets the catalog resolving capability group keys.
func WithCatalog(c ports.MessageCatalog) Option {
	return func(m *Manager) { m.catalog = c }
}

// NewManager creates a plugin registry. The loader is required.
func NewManager(loader ports.Loader, opts ...Option) *Manager {
	m := &Manager{
		loader:       loader,
		repository:   filesystem.NewFileDescriptorRepository(),
		compat:       services.NewCompatibilityChecker(values.Version{}),
		deps:         services.NewDependencyResolver(),
		logger:       slog.Default(),
		plugins:      entities.NewPluginMap(),
		libraries:    entities.NewLibraryMap(),
		capabilities: entities.NewCapabilityMap(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// HostVersion returns the version plugins are checked against.
func (m *Manager) HostVersion() values.Version {
	return m.compat.HostVersion()
}

// OverridePath returns the descriptor file Save writes to.
func (m *Manager) OverridePath() string {
	return m.overridePath
}

// locked runs fn under the registry lock and then dispatches the events it
// queued.
func (m *Manager) locked(fn func()) {
	m.mu.Lock()
	fn()
	events := m.pending
	m.pending = nil
	m.mu.Unlock()

	m.dispatch(events)
}

// ListAll returns every installed descriptor.
func (m *Manager) ListAll() []*entities.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plugins.All()
}

// ListByCapability returns the descriptors of a capability.
func (m *Manager) ListByCapability(capability values.Capability, includeDisabled bool) []*entities.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterEnabled(m.plugins.ByCapability(capability), includeDisabled)
}

// ListByCapabilityAndCode returns the descriptors of a (capability, code)
// bucket in installation order.
func (m *Manager) ListByCapabilityAndCode(capability values.Capability, code string, includeDisabled bool) []*entities.Descriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listByCapabilityAndCode(capability, code, includeDisabled)
}

func (m *Manager) listByCapabilityAndCode(capability values.Capability, code string, includeDisabled bool) []*entities.Descriptor {
	c, err := values.NewCode(code)
	if err != nil {
		return nil
	}
	return filterEnabled(m.plugins.Bucket(capability, c), includeDisabled)
}

func filterEnabled(ds []*entities.Descriptor, includeDisabled bool) []*entities.Descriptor {
	if includeDisabled {
		return ds
	}
	return slices.DeleteFunc(ds, func(d *entities.Descriptor) bool { return !d.IsEnabled() })
}

// Lookup returns the enabled descriptor serving (capability, code).
// When several versions of one plugin are enabled the highest wins.
func (m *Manager) Lookup(capability values.Capability, code string) (*entities.Descriptor, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var best *entities.Descriptor
	for _, d := range m.listByCapabilityAndCode(capability, code, false) {
		if best == nil || best.Version().LessThan(d.Version()) {
			best = d
		}
	}
	return best, best != nil
}

// IsInstalled reports whether a descriptor with the same unique id and
// version is installed.
func (m *Manager) IsInstalled(d *entities.Descriptor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.plugins.Find(d) != nil
}

// IsEnabled reports whether d is installed and enabled.
func (m *Manager) IsEnabled(d *entities.Descriptor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.plugins.Find(d)
	return stored != nil && stored.IsEnabled()
}

// IsBuiltIn reports whether d is installed from the bundled defaults.
func (m *Manager) IsBuiltIn(d *entities.Descriptor) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.plugins.Find(d)
	return stored != nil && stored.IsBuiltIn()
}

// Capabilities returns the display entries of every known capability, in
// registration order. Group keys found in the catalog replace the name.
func (m *Manager) Capabilities() []entities.CapabilityEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[values.Capability]bool)
	var out []entities.CapabilityEntry
	for _, e := range m.capabilities.All() {
		seen[e.Capability] = true
		out = append(out, m.localize(e))
	}
	for _, c := range m.plugins.Capabilities() {
		if !seen[c] {
			out = append(out, m.localize(m.capabilities.Get(c)))
		}
	}
	return out
}

func (m *Manager) localize(e entities.CapabilityEntry) entities.CapabilityEntry {
	if m.catalog == nil || e.Key == "" {
		return e
	}
	if text, ok := m.catalog.Lookup(e.Key); ok {
		e.Name = text
	}
	return e
}

// Libraries returns the tracked plugin sources.
func (m *Manager) Libraries() []entities.Library {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.libraries.All()
}

// LibraryPath returns the sources of library provider plugins.
func (m *Manager) LibraryPath() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.libraryPath)
}

// registryView exposes lookups to dependency checkers while the registry
// lock is held.
type registryView struct {
	m *Manager
}

func (v registryView) ListByCapabilityAndCode(capability values.Capability, code string, includeDisabled bool) []*entities.Descriptor {
	return v.m.listByCapabilityAndCode(capability, code, includeDisabled)
}
