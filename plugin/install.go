package plugin

import (
	"context"
	"fmt"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// InstallRequest describes a plugin to install.
type InstallRequest struct {
	// ClassName is the fully qualified class to load.
	ClassName string

	// Source is the archive or directory providing the class. Empty for
	// classes compiled into the host.
	Source string

	// Force skips the dependency check and disables conflicting plugins
	// instead of failing. Version checks are never skipped.
	Force bool

	// Enable installs the plugin enabled.
	Enable bool

	// Capability is used when the plugin does not report one.
	Capability values.Capability
}

// Install loads, validates and registers a plugin.
//
// A source is added to the loader search path before loading and stays
// there when a later check fails; its library entry is only kept once a
// descriptor references it. Every other check happens before the registry
// is modified.
func (m *Manager) Install(ctx context.Context, req InstallRequest) (*entities.Descriptor, error) {
	var (
		d   *entities.Descriptor
		err error
	)
	m.locked(func() {
		d, err = m.install(ctx, req, false)
	})
	return d, err
}

func (m *Manager) install(ctx context.Context, req InstallRequest, builtIn bool) (d *entities.Descriptor, err error) {
	tracked, err := m.trackSource(ctx, req.Source)
	if err != nil {
		return nil, fmt.Errorf("install %s: %w", req.ClassName, err)
	}
	if tracked {
		defer func() {
			if err != nil {
				m.libraries.Drop(req.Source)
			}
		}()
	}

	p, err := m.loader.Load(ctx, req.Source, req.ClassName)
	if err != nil {
		return nil, fmt.Errorf("install %s: %w", req.ClassName, err)
	}

	d, err = entities.NewDescriptor(req.ClassName, p,
		entities.WithSource(req.Source),
		entities.AsBuiltIn(builtIn),
		entities.WithEnabled(req.Enable),
		entities.WithDefaultCapability(req.Capability),
	)
	if err != nil {
		m.closePlugin(ctx, p)
		return nil, err
	}
	if !req.Capability.IsEmpty() && d.Capability() != req.Capability {
		m.logger.Warn("plugin capability differs from its group",
			"plugin", d.ClassName(), "capability", d.Capability(), "group", req.Capability)
	}

	replaced, conflicts, err := m.validate(ctx, d, req.Force || builtIn, req.Force)
	if err != nil {
		m.closePlugin(ctx, p)
		return nil, err
	}

	for _, c := range conflicts {
		m.setEnabled(c, false)
	}

	m.plugins.Add(d)
	m.libraries.Reference(d)

	for _, r := range replaced {
		if r.IsBuiltIn() {
			m.setEnabled(r, false)
			continue
		}
		m.uninstall(ctx, r)
	}

	if d.IsLibraryProvider() && d.Source() != "" {
		m.addLibraryPath(d.Source())
	}

	if len(replaced) > 0 {
		m.emit(EventUpdated, d)
		m.logger.Info("plugin updated", "plugin", d.ClassName(), "version", d.Version().String())
	} else {
		m.emit(EventInstalled, d)
		m.logger.Info("plugin installed", "plugin", d.ClassName(), "version", d.Version().String())
	}
	return d, nil
}

// validate runs every install check and returns the descriptors d replaces
// and the enabled descriptors it must disable.
func (m *Manager) validate(ctx context.Context, d *entities.Descriptor, skipDeps, force bool) (replaced, conflicts []*entities.Descriptor, err error) {
	if err := m.compat.Check(d); err != nil {
		return nil, nil, err
	}

	if !skipDeps {
		missing, err := m.deps.Missing(ctx, d, registryView{m})
		if err != nil {
			return nil, nil, err
		}
		if len(missing) > 0 {
			return nil, nil, &entities.DependencyMissingError{ClassName: d.ClassName(), Missing: missing}
		}
	}

	for _, existing := range m.plugins.Bucket(d.Capability(), d.Code()) {
		if existing.UniqueID() == d.UniqueID() {
			if existing.Version().Compare(d.Version()) > 0 {
				return nil, nil, &entities.HigherVersionInstalledError{
					UniqueID:  d.UniqueID(),
					Installed: existing.Version(),
					Requested: d.Version(),
				}
			}
			replaced = append(replaced, existing)
			continue
		}

		if existing.IsEnabled() && d.IsEnabled() {
			if !force {
				return nil, nil, &entities.CodeConflictError{
					Capability: d.Capability(),
					Code:       d.Code(),
					Requested:  d.String(),
					Existing:   existing.String(),
				}
			}
			conflicts = append(conflicts, existing)
		}
	}
	return replaced, conflicts, nil
}

// trackSource reports whether the source was not tracked before.
func (m *Manager) trackSource(ctx context.Context, source string) (bool, error) {
	if source == "" || m.libraries.IsTracked(source) {
		return false, nil
	}
	if err := m.loader.AddSource(ctx, source); err != nil {
		return false, err
	}

	digest, err := values.DigestPath(source)
	if err != nil {
		m.logger.Warn("failed to compute source digest", "source", source, "error", err)
	}
	return m.libraries.Track(source, digest), nil
}

func (m *Manager) addLibraryPath(source string) {
	for _, p := range m.libraryPath {
		if p == source {
			return
		}
	}
	m.libraryPath = append(m.libraryPath, source)
}
