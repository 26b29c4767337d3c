package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/loader"
)

// Discover lists the plugins an archive or directory provides, without
// installing them. The source is added to the loader search path. Classes
// that fail to load or are not plugins are logged and skipped.
// Returned descriptors are disabled and not built-in.
func (m *Manager) Discover(ctx context.Context, path string) ([]*entities.Descriptor, error) {
	classes, err := m.loader.Classes(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", path, err)
	}
	if err := m.loader.AddSource(ctx, path); err != nil {
		return nil, fmt.Errorf("discover %s: %w", path, err)
	}

	var found []*entities.Descriptor
	for _, className := range classes {
		p, err := m.loader.Load(ctx, path, className)
		if err != nil {
			m.logger.Debug("skipping class", "class", className, "source", path, "error", err)
			continue
		}
		d, err := entities.NewDescriptor(className, p, entities.WithSource(path))
		if err != nil {
			m.closePlugin(ctx, p)
			m.logger.Warn("skipping plugin", "class", className, "source", path, "error", err)
			continue
		}
		found = append(found, d)
	}
	return found, nil
}

// InstallArchive installs, enabled, every plugin of an archive or directory
// that is not installed yet. A plugin whose code is already served by
// another enabled plugin is installed disabled.
func (m *Manager) InstallArchive(ctx context.Context, path string) ([]*entities.Descriptor, error) {
	candidates, err := m.Discover(ctx, path)
	if err != nil {
		return nil, err
	}

	var (
		installed []*entities.Descriptor
		errs      []error
	)
	for _, c := range candidates {
		m.closePlugin(ctx, c.Plugin())
		if m.IsInstalled(c) {
			continue
		}

		req := InstallRequest{ClassName: c.ClassName(), Source: path, Enable: true}
		d, err := m.Install(ctx, req)
		if errors.Is(err, entities.ErrCodeConflict) {
			m.logger.Warn("code already served, installing disabled", "plugin", c.ClassName())
			req.Enable = false
			d, err = m.Install(ctx, req)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		installed = append(installed, d)
	}
	return installed, errors.Join(errs...)
}

// autoInstall installs the archives and directories found in the
// auto-install directory. Failures are logged.
func (m *Manager) autoInstall(ctx context.Context) {
	entries, err := os.ReadDir(m.autoInstallDir)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("cannot read auto-install directory", "dir", m.autoInstallDir, "error", err)
		}
		return
	}

	for _, e := range entries {
		if !e.IsDir() && !loader.IsSourcePath(e.Name()) {
			continue
		}
		path := filepath.Join(m.autoInstallDir, e.Name())
		installed, err := m.InstallArchive(ctx, path)
		if err != nil {
			m.logger.Warn("auto-install failed", "source", path, "error", err)
		}
		if len(installed) > 0 {
			m.logger.Info("auto-installed plugins", "source", path, "count", len(installed))
		}
	}
}
