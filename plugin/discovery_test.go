package plugin_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-plugin-registry/plugin"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ld := plugin.NewMockLoader()
	ld.Register("com.example.CSV", info("csv", "csv", "1.0"))
	ld.Register("com.example.JSON", info("json", "json", "1.0"))
	ld.LoadErr["com.example.Helper"] = entities.ErrNotAPlugin
	ld.SourceClasses["/p/bundle.zip"] = []string{"com.example.CSV", "com.example.Helper", "com.example.JSON", "com.example.Unknown"}
	m := newManager(t, ld)

	found, err := m.Discover(ctx, "/p/bundle.zip")
	require.NoError(t, err)
	assert.Equal(t, []string{"com.example.CSV", "com.example.JSON"}, classNames(found))
	for _, d := range found {
		assert.False(t, d.IsEnabled())
		assert.False(t, d.IsBuiltIn())
		assert.Equal(t, "/p/bundle.zip", d.Source())
	}
	assert.Contains(t, ld.Sources(), "/p/bundle.zip")
	assert.Empty(t, m.ListAll(), "discovery does not install")

	_, err = m.Discover(ctx, "/p/missing.zip")
	require.Error(t, err)
}

func TestInstallArchive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ld := plugin.NewMockLoader()
	ld.Register("com.example.BuiltinCSV", info("csv", "builtin-csv", "1.0"))
	ld.Register("com.example.FastCSV", info("csv", "fast-csv", "1.0"))
	ld.Register("com.example.JSON", info("json", "json", "1.0"))
	ld.SourceClasses["/p/bundle.zip"] = []string{"com.example.FastCSV", "com.example.JSON"}
	var logs bytes.Buffer
	m := newManager(t, ld,
		plugin.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		plugin.WithBundledDescriptors(bundledFS(bundledEntry{"com.example.BuiltinCSV", true}), bundledPath))
	require.NoError(t, m.Initialize(ctx))

	installed, err := m.InstallArchive(ctx, "/p/bundle.zip")
	require.NoError(t, err)
	require.Len(t, installed, 2)

	assert.False(t, installed[0].IsEnabled(), "csv is served by the built-in")
	assert.Contains(t, logs.String(), `level=WARN msg="code already served, installing disabled" plugin=com.example.FastCSV`)
	assert.True(t, installed[1].IsEnabled())

	csv, ok := m.Lookup(exporter, "csv")
	require.True(t, ok)
	assert.Equal(t, "com.example.BuiltinCSV", csv.ClassName())

	again, err := m.InstallArchive(ctx, "/p/bundle.zip")
	require.NoError(t, err)
	assert.Empty(t, again, "installed plugins are skipped")
	assert.Len(t, m.ListAll(), 3)

	loaded := ld.Loaded("com.example.JSON")
	require.Len(t, loaded, 2)
	assert.True(t, loaded[0].(*plugin.StubPlugin).Closed(), "discovery instances are released")
	assert.False(t, loaded[1].(*plugin.StubPlugin).Closed())
}

func TestInitialize_AutoInstallDir(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	archive := filepath.Join(dir, "extra.zip")
	require.NoError(t, os.WriteFile(archive, []byte("zip"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "unpacked"), 0o750))

	ld := plugin.NewMockLoader()
	ld.Register("com.example.JSON", info("json", "json", "1.0"))
	ld.Register("com.example.XML", info("xml", "xml", "1.0"))
	ld.SourceClasses[archive] = []string{"com.example.JSON"}
	ld.SourceClasses[filepath.Join(dir, "unpacked")] = []string{"com.example.XML"}

	m := newManager(t, ld, plugin.WithAutoInstallDir(dir))
	require.NoError(t, m.Initialize(ctx))

	assert.Equal(t, []string{"com.example.JSON", "com.example.XML"}, classNames(m.ListAll()))
	libs := m.Libraries()
	require.Len(t, libs, 2)
	assert.False(t, libs[0].Digest.IsZero(), "archives are fingerprinted")
	assert.True(t, libs[1].Digest.IsZero(), "directories are not")
}

func TestInitialize_MissingAutoInstallDir(t *testing.T) {
	t.Parallel()

	m := newManager(t, plugin.NewMockLoader(), plugin.WithAutoInstallDir(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, m.Initialize(context.Background()))
	assert.Empty(t, m.ListAll())
}
