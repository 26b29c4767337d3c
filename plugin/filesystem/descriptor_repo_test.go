package filesystem_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/filesystem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleXML = `<?xml version="1.0" encoding="UTF-8"?>
<application>
  <plugingroup name="Exporters" interface="com.example.Exporter" key="group.exporters" source="/p/exporters.zip">
    <plugin>
      com.example.CSV
    </plugin>
    <plugin enabled="false" source="/p/json.zip">com.example.JSON</plugin>
    <plugin enabled="no">com.example.XML</plugin>
  </plugingroup>
  <plugingroup interface="com.example.Reader"/>
</application>
`

const sampleYAML = `groups:
  - name: Exporters
    capability: com.example.Exporter
    key: group.exporters
    source: /p/exporters.zip
    plugins:
      - class: com.example.CSV
      - class: com.example.JSON
        enabled: false
        source: /p/json.zip
      - class: com.example.XML
        enabled: true
  - capability: com.example.Reader
    plugins: []
`

func sampleFile() *entities.DescriptorFile {
	f := entities.NewDescriptorFile()
	g := f.AddGroup(entities.CapabilityEntry{Capability: "com.example.Exporter", Name: "Exporters", Key: "group.exporters"})
	g.Source = "/p/exporters.zip"
	g.AddPlugin("com.example.CSV", true, "")
	g.AddPlugin("com.example.JSON", false, "/p/json.zip")
	g.AddPlugin("com.example.XML", true, "")
	return f
}

func assertSample(t *testing.T, f *entities.DescriptorFile) {
	t.Helper()
	require.NotNil(t, f)
	require.GreaterOrEqual(t, len(f.Groups), 1)

	g := f.Groups[0]
	assert.Equal(t, "Exporters", g.Name)
	assert.Equal(t, "com.example.Exporter", g.Capability.String())
	assert.Equal(t, "group.exporters", g.Key)
	require.Len(t, g.Plugins, 3)

	assert.Equal(t, "com.example.CSV", g.Plugins[0].ClassName)
	assert.True(t, g.Plugins[0].Enabled)
	assert.Equal(t, "/p/exporters.zip", g.EffectiveSource(g.Plugins[0]))

	assert.Equal(t, "com.example.JSON", g.Plugins[1].ClassName)
	assert.False(t, g.Plugins[1].Enabled)
	assert.Equal(t, "/p/json.zip", g.EffectiveSource(g.Plugins[1]))

	assert.True(t, g.Plugins[2].Enabled, "only a literal false disables")
}

func TestXMLCodec_Decode(t *testing.T) {
	t.Parallel()

	f, err := filesystem.XMLCodec{}.Decode(strings.NewReader(sampleXML))
	require.NoError(t, err)
	assertSample(t, f)
	require.Len(t, f.Groups, 2)
	assert.Empty(t, f.Groups[1].Plugins)
}

func TestXMLCodec_DecodeErrors(t *testing.T) {
	t.Parallel()

	_, err := filesystem.XMLCodec{}.Decode(strings.NewReader(`<application><plugingroup interface="x"`))
	require.Error(t, err)

	_, err = filesystem.XMLCodec{}.Decode(strings.NewReader("<plugins/>"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "<application>")
}

func TestYAMLCodec_Decode(t *testing.T) {
	t.Parallel()

	f, err := filesystem.YAMLCodec{}.Decode(strings.NewReader(sampleYAML))
	require.NoError(t, err)
	assertSample(t, f)

	f, err = filesystem.YAMLCodec{}.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Groups)
}

func TestCodecs_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, codec := range []filesystem.Codec{filesystem.XMLCodec{}, filesystem.YAMLCodec{}} {
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, sampleFile()))

		got, err := codec.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, sampleFile(), got)
	}
}

func TestCodecFor(t *testing.T) {
	t.Parallel()

	assert.IsType(t, filesystem.YAMLCodec{}, filesystem.CodecFor("plugins.yaml"))
	assert.IsType(t, filesystem.YAMLCodec{}, filesystem.CodecFor("plugins.YML"))
	assert.IsType(t, filesystem.XMLCodec{}, filesystem.CodecFor("plugins.xml"))
	assert.IsType(t, filesystem.XMLCodec{}, filesystem.CodecFor("plugins"))
}

func TestFileDescriptorRepository(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	repo := filesystem.NewFileDescriptorRepository()
	ctx := context.Background()

	for _, name := range []string{"plugins.xml", "plugins.yaml"} {
		t.Run("Save and Load "+name, func(t *testing.T) {
			path := filepath.Join(tmpDir, "nested", name)
			require.NoError(t, repo.Save(ctx, sampleFile(), path))

			exists, err := repo.Exists(ctx, path)
			require.NoError(t, err)
			assert.True(t, exists)

			loaded, err := repo.Load(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, sampleFile(), loaded)
		})
	}

	t.Run("Load non-existent", func(t *testing.T) {
		loaded, err := repo.Load(ctx, filepath.Join(tmpDir, "missing.xml"))
		require.NoError(t, err)
		assert.Nil(t, loaded)

		loaded, err = repo.Load(ctx, filepath.Join(tmpDir, "no-dir", "missing.xml"))
		require.NoError(t, err)
		assert.Nil(t, loaded)

		exists, err := repo.Exists(ctx, filepath.Join(tmpDir, "missing.xml"))
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("Load invalid", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.xml")
		require.NoError(t, os.WriteFile(path, []byte(`<application><plugingroup><plugin>a.B</plugin></plugingroup></application>`), 0o600))
		_, err := repo.Load(ctx, path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "capability is required")
	})

	t.Run("Save rejects invalid", func(t *testing.T) {
		f := &entities.DescriptorFile{Groups: []*entities.PluginGroup{{Name: "x"}}}
		require.Error(t, repo.Save(ctx, f, filepath.Join(tmpDir, "bad.xml")))
	})
}

func TestLoadFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"defaults/plugins.xml": {Data: []byte(sampleXML)}}
	f, err := filesystem.LoadFS(fsys, "defaults/plugins.xml")
	require.NoError(t, err)
	assertSample(t, f)

	_, err = filesystem.LoadFS(fsys, "defaults/missing.xml")
	require.Error(t, err)
}
