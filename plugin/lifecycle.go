package plugin

import (
	"context"
	"slices"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// Uninstall removes a plugin. Built-in plugins cannot be uninstalled.
// It reports whether the plugin was removed.
func (m *Manager) Uninstall(ctx context.Context, d *entities.Descriptor) bool {
	removed := false
	m.locked(func() {
		stored := m.plugins.Find(d)
		if stored == nil || stored.IsBuiltIn() {
			return
		}
		m.uninstall(ctx, stored)
		removed = true
	})
	return removed
}

func (m *Manager) uninstall(ctx context.Context, d *entities.Descriptor) {
	m.plugins.Remove(d)
	if m.libraries.Release(d) {
		m.loader.RemoveSource(d.Source())
		m.libraryPath = slices.DeleteFunc(m.libraryPath, func(p string) bool { return p == d.Source() })
	}
	m.closePlugin(ctx, d.Plugin())

	m.emit(EventUninstalled, d)
	m.logger.Info("plugin uninstalled", "plugin", d.ClassName(), "version", d.Version().String())

	m.restoreDefault(d.Capability(), d.Code())
}

// restoreDefault re-enables the last built-in of a bucket when nothing in
// it is enabled.
func (m *Manager) restoreDefault(capability values.Capability, code values.Code) {
	if len(m.plugins.Enabled(capability, code)) > 0 {
		return
	}
	if b := m.plugins.LastBuiltIn(capability, code, nil); b != nil {
		m.setEnabled(b, true)
	}
}

// SetEnabled enables or disables an installed plugin.
//
// Enabling fails with CodeConflictError while a different plugin serves the
// same code. Disabling the only enabled plugin of a code re-enables the
// last built-in one.
func (m *Manager) SetEnabled(d *entities.Descriptor, enabled bool) error {
	var err error
	m.locked(func() {
		err = m.changeEnabled(d, enabled)
	})
	return err
}

func (m *Manager) changeEnabled(d *entities.Descriptor, enabled bool) error {
	stored := m.plugins.Find(d)
	if stored == nil {
		return &entities.PluginNotFoundError{Descriptor: d.String()}
	}
	if stored.IsEnabled() == enabled {
		return nil
	}

	active := m.plugins.Enabled(stored.Capability(), stored.Code())
	if enabled {
		for _, other := range active {
			if other.UniqueID() != stored.UniqueID() {
				return &entities.CodeConflictError{
					Capability: stored.Capability(),
					Code:       stored.Code(),
					Requested:  stored.String(),
					Existing:   other.String(),
				}
			}
		}
	} else if len(active) == 1 && active[0] == stored {
		if b := m.plugins.LastBuiltIn(stored.Capability(), stored.Code(), stored); b != nil {
			m.setEnabled(b, true)
		}
	}

	m.setEnabled(stored, enabled)
	return nil
}

// setEnabled flips the flag and queues the matching event.
func (m *Manager) setEnabled(d *entities.Descriptor, enabled bool) {
	if !m.plugins.SetEnabled(d, enabled) {
		return
	}
	if enabled {
		m.emit(EventEnabled, d)
		m.logger.Debug("plugin enabled", "plugin", d.ClassName())
	} else {
		m.emit(EventDisabled, d)
		m.logger.Debug("plugin disabled", "plugin", d.ClassName())
	}
}

func (m *Manager) closePlugin(ctx context.Context, p entities.Plugin) {
	c, ok := p.(entities.Closer)
	if !ok {
		return
	}
	if err := c.Close(ctx); err != nil {
		m.logger.Warn("failed to close plugin", "code", p.Info().Code, "error", err)
	}
}
