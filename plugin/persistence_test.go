package plugin_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/reglet-dev/reglet-plugin-registry/plugin"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/catalog"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/filesystem"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/ports"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type savedState struct {
	class   string
	enabled bool
	source  string
}

func userState(m *plugin.Manager) []savedState {
	var out []savedState
	for _, d := range m.ListAll() {
		if d.IsBuiltIn() {
			continue
		}
		out = append(out, savedState{d.ClassName(), d.IsEnabled(), d.Source()})
	}
	return out
}

func roundTripLoader() *plugin.MockLoader {
	ld := plugin.NewMockLoader()
	ld.Register("com.example.BuiltinCSV", info("csv", "builtin-csv", "1.0"))
	ld.Register("com.example.FastCSV", info("csv", "fast-csv", "1.2"))
	ld.Register("com.example.JSON", info("json", "json", "1.0"))
	ld.Register("com.example.Raw", values.PluginInfo{Code: "raw", Version: values.MustParseVersion("1"), Capability: reader})
	return ld
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()

	repos := map[string]func(t *testing.T) (ports.DescriptorRepository, string){
		"memory": func(t *testing.T) (ports.DescriptorRepository, string) {
			return plugin.NewMockRepository(), overridePath
		},
		"xml file": func(t *testing.T) (ports.DescriptorRepository, string) {
			return filesystem.NewFileDescriptorRepository(), filepath.Join(t.TempDir(), "plugins.xml")
		},
		"yaml file": func(t *testing.T) (ports.DescriptorRepository, string) {
			return filesystem.NewFileDescriptorRepository(), filepath.Join(t.TempDir(), "plugins.yaml")
		},
	}

	for name, mk := range repos {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			repo, path := mk(t)
			bundled := bundledFS(bundledEntry{"com.example.BuiltinCSV", true})

			first := newManager(t, roundTripLoader(),
				plugin.WithRepository(repo),
				plugin.WithOverridePath(path),
				plugin.WithBundledDescriptors(bundled, bundledPath))
			require.NoError(t, first.Initialize(ctx))

			_, err := first.Install(ctx, plugin.InstallRequest{ClassName: "com.example.FastCSV", Source: "/p/fast.zip", Enable: true, Force: true})
			require.NoError(t, err)
			_, err = first.Install(ctx, plugin.InstallRequest{ClassName: "com.example.JSON", Source: "/p/json.zip"})
			require.NoError(t, err)
			_, err = first.Install(ctx, plugin.InstallRequest{ClassName: "com.example.Raw", Enable: true})
			require.NoError(t, err)
			require.NoError(t, first.Save(ctx))

			second := newManager(t, roundTripLoader(),
				plugin.WithRepository(repo),
				plugin.WithOverridePath(path),
				plugin.WithBundledDescriptors(bundled, bundledPath))
			require.NoError(t, second.Initialize(ctx))

			assert.Equal(t, userState(first), userState(second))
			assert.Equal(t, []savedState{
				{"com.example.FastCSV", true, "/p/fast.zip"},
				{"com.example.JSON", false, "/p/json.zip"},
				{"com.example.Raw", true, ""},
			}, userState(second))

			builtIn, ok := second.Lookup(exporter, "csv")
			require.True(t, ok)
			assert.Equal(t, "com.example.FastCSV", builtIn.ClassName(), "override wins over the built-in")
		})
	}
}

func TestSnapshot_GroupsUserPlugins(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, roundTripLoader(), plugin.WithBundledDescriptors(bundledFS(bundledEntry{"com.example.BuiltinCSV", true}), bundledPath))
	require.NoError(t, m.Initialize(ctx))
	assert.Empty(t, m.Snapshot().Groups, "built-in plugins are never saved")

	_, err := m.Install(ctx, plugin.InstallRequest{ClassName: "com.example.Raw", Enable: true})
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Len(t, snap.Groups, 1)
	assert.Equal(t, reader, snap.Groups[0].Capability)
	assert.Equal(t, []*entities.PluginEntry{{ClassName: "com.example.Raw", Enabled: true}}, snap.Groups[0].Plugins)

	_, err = m.Install(ctx, plugin.InstallRequest{ClassName: "com.example.JSON"})
	require.NoError(t, err)
	snap = m.Snapshot()
	require.Len(t, snap.Groups, 2)
	assert.Equal(t, "Exporters", snap.Groups[0].Name, "group names come from the descriptor files")
	assert.Equal(t, "group.exporters", snap.Groups[0].Key)
}

func TestSave_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, roundTripLoader())
	require.Error(t, m.Save(ctx), "no override path")

	repo := plugin.NewMockRepository()
	repo.SaveErr = os.ErrPermission
	m = newManager(t, roundTripLoader(), plugin.WithRepository(repo), plugin.WithOverridePath(overridePath))
	require.ErrorIs(t, m.Save(ctx), os.ErrPermission)
}

func TestLoad_SkipsUnresolvable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, roundTripLoader())
	file := entities.NewDescriptorFile()
	g := file.AddGroup(entities.CapabilityEntry{Capability: exporter})
	g.AddPlugin("com.example.Gone", true, "")
	g.AddPlugin("com.example.JSON", false, "")

	err := m.Load(ctx, file)
	require.ErrorIs(t, err, entities.ErrClassNotFound)
	assert.Equal(t, []string{"com.example.JSON"}, classNames(m.ListAll()))
}

func TestInitialize_UnreadableBundleIsFatal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := map[string]fstest.MapFS{
		"missing file": {},
		"invalid xml":  {bundledPath: {Data: []byte("plugins: yes")}},
	}

	for name, fsys := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			m := newManager(t, roundTripLoader(), plugin.WithBundledDescriptors(fsys, bundledPath))
			err := m.Initialize(ctx)
			require.ErrorIs(t, err, entities.ErrBundledDescriptors)
			assert.Same(t, err, m.Initialize(ctx), "second call returns the first result")
		})
	}
}

func TestInitialize_SkipsUnresolvableBundledEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var logs bytes.Buffer
	m := newManager(t, roundTripLoader(),
		plugin.WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
		plugin.WithBundledDescriptors(bundledFS(
			bundledEntry{"com.example.Gone", true},
			bundledEntry{"com.example.JSON", true},
		), bundledPath))
	require.NoError(t, m.Initialize(ctx))

	all := m.ListAll()
	assert.Equal(t, []string{"com.example.JSON"}, classNames(all))
	assert.True(t, m.IsBuiltIn(all[0]))
	assert.Contains(t, logs.String(), "plugin=com.example.Gone")
}

func TestInitialize_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, roundTripLoader(), plugin.WithBundledDescriptors(bundledFS(bundledEntry{"com.example.BuiltinCSV", true}), bundledPath))
	require.NoError(t, m.Initialize(ctx))
	require.NoError(t, m.Initialize(ctx))
	assert.Len(t, m.ListAll(), 1)
}

func TestInitialize_OverrideProblemsAreSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := plugin.NewMockRepository()
	file := entities.NewDescriptorFile()
	g := file.AddGroup(entities.CapabilityEntry{Capability: exporter})
	g.AddPlugin("com.example.Gone", true, "")
	g.AddPlugin("com.example.FastCSV", true, "")
	repo.Files[overridePath] = file

	m := newManager(t, roundTripLoader(),
		plugin.WithRepository(repo),
		plugin.WithOverridePath(overridePath),
		plugin.WithBundledDescriptors(bundledFS(bundledEntry{"com.example.BuiltinCSV", true}), bundledPath))
	require.NoError(t, m.Initialize(ctx))
	assert.Equal(t, []string{"com.example.BuiltinCSV", "com.example.FastCSV"}, classNames(m.ListAll()))

	broken := plugin.NewMockRepository()
	broken.Files[overridePath] = file
	broken.LoadErr = os.ErrPermission
	m = newManager(t, roundTripLoader(), plugin.WithRepository(broken), plugin.WithOverridePath(overridePath))
	require.NoError(t, m.Initialize(ctx))
	assert.Equal(t, 1, broken.LoadCalls())

	unstattable := plugin.NewMockRepository()
	unstattable.StatErr = os.ErrPermission
	m = newManager(t, roundTripLoader(), plugin.WithRepository(unstattable), plugin.WithOverridePath(overridePath))
	require.NoError(t, m.Initialize(ctx))
	assert.Zero(t, unstattable.LoadCalls())
}

func TestInitialize_MissingOverrideIsNotRead(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	repo := plugin.NewMockRepository()
	m := newManager(t, roundTripLoader(), plugin.WithRepository(repo), plugin.WithOverridePath(overridePath))
	require.NoError(t, m.Initialize(ctx))
	assert.Zero(t, repo.LoadCalls())
	assert.Empty(t, m.ListAll())
}

func TestInitialize_BuiltInDisabledEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, roundTripLoader(), plugin.WithBundledDescriptors(bundledFS(
		bundledEntry{"com.example.BuiltinCSV", false},
		bundledEntry{"com.example.JSON", true},
	), bundledPath))
	require.NoError(t, m.Initialize(ctx))

	all := m.ListAll()
	require.Len(t, all, 2)
	assert.False(t, all[0].IsEnabled())
	assert.True(t, all[1].IsEnabled())
	assert.True(t, m.IsBuiltIn(all[0]))
}

func TestCapabilities_UseCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	m := newManager(t, roundTripLoader(),
		plugin.WithBundledDescriptors(bundledFS(bundledEntry{"com.example.BuiltinCSV", true}), bundledPath),
		plugin.WithCatalog(catalog.New(map[string]string{"group.exporters": "Export formats"})))
	require.NoError(t, m.Initialize(ctx))
	_, err := m.Install(ctx, plugin.InstallRequest{ClassName: "com.example.Raw", Enable: true})
	require.NoError(t, err)

	caps := m.Capabilities()
	require.Len(t, caps, 2)
	assert.Equal(t, "Export formats", caps[0].Name)
	assert.Equal(t, reader, caps[1].Capability)
	assert.Equal(t, "Reader", caps[1].DisplayName())
}
