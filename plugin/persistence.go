package plugin

import (
	"context"
	"errors"
	"fmt"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/filesystem"
)

// Initialize loads the bundled defaults, then the user override file, then
// the auto-install directory. Only an unreadable bundled descriptor file is
// returned; every other problem, including a bundled entry that cannot be
// installed, is logged and skipped.
// Calling Initialize again returns the first result.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.initialize(ctx)
	})
	return m.initErr
}

func (m *Manager) initialize(ctx context.Context) error {
	if m.bundledFS != nil && m.bundledPath != "" {
		file, err := filesystem.LoadFS(m.bundledFS, m.bundledPath)
		if err != nil {
			return fmt.Errorf("%w: %w", entities.ErrBundledDescriptors, err)
		}
		_ = m.loadFile(ctx, file, true)
	}

	if m.overridePath != "" {
		m.loadOverrides(ctx)
	}

	if m.autoInstallDir != "" {
		m.autoInstall(ctx)
	}

	m.logger.Info("plugin registry initialized", "plugins", len(m.ListAll()))
	return nil
}

func (m *Manager) loadOverrides(ctx context.Context) {
	exists, err := m.repository.Exists(ctx, m.overridePath)
	if err != nil {
		m.logger.Warn("cannot stat override descriptors", "path", m.overridePath, "error", err)
		return
	}
	if !exists {
		m.logger.Debug("no override descriptors", "path", m.overridePath)
		return
	}

	file, err := m.repository.Load(ctx, m.overridePath)
	switch {
	case err != nil:
		m.logger.Warn("ignoring unreadable override descriptors", "path", m.overridePath, "error", err)
	case file != nil:
		_ = m.Load(ctx, file)
	}
}

// Load installs every entry of a descriptor file as a user plugin, forced,
// with the entry's enabled flag. Entries that cannot be installed are
// logged and skipped; their errors are returned joined.
func (m *Manager) Load(ctx context.Context, file *entities.DescriptorFile) error {
	return m.loadFile(ctx, file, false)
}

func (m *Manager) loadFile(ctx context.Context, file *entities.DescriptorFile, builtIn bool) error {
	var errs []error
	for _, g := range file.Groups {
		m.locked(func() {
			m.capabilities.Register(entities.CapabilityEntry{Capability: g.Capability, Name: g.Name, Key: g.Key})
		})

		for _, e := range g.Plugins {
			req := InstallRequest{
				ClassName:  e.ClassName,
				Source:     g.EffectiveSource(e),
				Force:      !builtIn,
				Enable:     e.Enabled,
				Capability: g.Capability,
			}

			var err error
			m.locked(func() {
				_, err = m.install(ctx, req, builtIn)
			})
			if err == nil {
				continue
			}
			m.logger.Warn("skipping plugin", "plugin", e.ClassName, "built_in", builtIn, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns the descriptor file of the user installed plugins,
// grouped by capability. Built-in plugins and empty groups are left out.
func (m *Manager) Snapshot() *entities.DescriptorFile {
	m.mu.Lock()
	defer m.mu.Unlock()

	file := entities.NewDescriptorFile()
	for _, c := range m.plugins.Capabilities() {
		var group *entities.PluginGroup
		for _, d := range m.plugins.ByCapability(c) {
			if d.IsBuiltIn() {
				continue
			}
			if group == nil {
				group = file.AddGroup(m.capabilities.Get(c))
			}
			group.AddPlugin(d.ClassName(), d.IsEnabled(), d.Source())
		}
	}
	return file
}

// Save writes Snapshot to the override path.
func (m *Manager) Save(ctx context.Context) error {
	if m.overridePath == "" {
		return errors.New("no override descriptor path configured")
	}
	if err := m.repository.Save(ctx, m.Snapshot(), m.overridePath); err != nil {
		return fmt.Errorf("saving plugin descriptors: %w", err)
	}
	m.logger.Debug("plugin descriptors saved", "path", m.overridePath)
	return nil
}
