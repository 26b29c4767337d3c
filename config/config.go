// Package config loads the plugin registry configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"gopkg.in/yaml.v3"
)

// DefaultHostVersion is used when no configuration file exists.
const DefaultHostVersion = "1.0"

// Config is the registry configuration.
type Config struct {
	// HostVersion is the version plugins are checked against.
	HostVersion string `yaml:"host_version" jsonschema:"required,pattern=^v?[0-9]+(\\.[0-9]+)*$,description=Version of the host application"`

	// BundledDescriptors is the read-only descriptor file shipped with the
	// host. Empty disables built-in plugins.
	BundledDescriptors string `yaml:"bundled_descriptors,omitempty" jsonschema:"description=Descriptor file listing built-in plugins"`

	// OverrideDescriptors is the user descriptor file written on save.
	OverrideDescriptors string `yaml:"override_descriptors,omitempty" jsonschema:"description=Descriptor file holding user-installed plugins"`

	AutoInstallDir   string `yaml:"auto_install_dir,omitempty" jsonschema:"description=Directory whose archives are installed at startup"`
	MessageCatalog   string `yaml:"message_catalog,omitempty" jsonschema:"description=YAML catalog resolving group keys to display names"`
	WatchAutoInstall bool   `yaml:"watch_auto_install,omitempty" jsonschema:"description=Install archives dropped into the auto-install directory at runtime"`
	LogLevel         string `yaml:"log_level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// Dir returns the default configuration directory, ~/.reglet/plugins.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".reglet", "plugins")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	dir := Dir()
	return &Config{
		HostVersion:         DefaultHostVersion,
		OverrideDescriptors: filepath.Join(dir, "plugins.xml"),
		AutoInstallDir:      filepath.Join(dir, "auto-install"),
		LogLevel:            "info",
	}
}

// Load reads the configuration at path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates a YAML document against the configuration schema and
// decodes it over the defaults.
func Parse(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Version parses HostVersion.
func (c *Config) Version() (values.Version, error) {
	return values.ParseVersion(c.HostVersion)
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
