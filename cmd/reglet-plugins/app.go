package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/reglet-dev/reglet-plugin-registry/config"
	"github.com/reglet-dev/reglet-plugin-registry/plugin"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/catalog"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/factory"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/loader"
)

// app is an initialized registry built from the configuration file.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	loader  *loader.Loader
	manager *plugin.Manager
}

func openApp(ctx context.Context, configPath string, factories *factory.Registry, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.Level()}))

	hostVersion, err := cfg.Version()
	if err != nil {
		return nil, fmt.Errorf("invalid host version: %w", err)
	}

	opts := []plugin.Option{
		plugin.WithLogger(logger),
		plugin.WithHostVersion(hostVersion),
		plugin.WithOverridePath(cfg.OverrideDescriptors),
		plugin.WithAutoInstallDir(cfg.AutoInstallDir),
	}
	if cfg.BundledDescriptors != "" {
		opts = append(opts, plugin.WithBundledDescriptors(
			os.DirFS(filepath.Dir(cfg.BundledDescriptors)),
			filepath.Base(cfg.BundledDescriptors),
		))
	}
	if cfg.MessageCatalog != "" {
		cat, err := catalog.Load(cfg.MessageCatalog)
		if err != nil {
			return nil, err
		}
		opts = append(opts, plugin.WithCatalog(cat))
	}

	ld, err := loader.New(ctx, loader.WithFactories(factories), loader.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	m := plugin.NewManager(ld, opts...)
	if err := m.Initialize(ctx); err != nil {
		_ = ld.Close(ctx)
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, loader: ld, manager: m}, nil
}

func (a *app) Close(ctx context.Context) error {
	return a.loader.Close(ctx)
}
