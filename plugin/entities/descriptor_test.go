package entities_test

import (
	"testing"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDescriptor(t *testing.T) {
	t.Parallel()

	p := stubPlugin{info: values.PluginInfo{
		Code:                   "csv",
		Version:                values.MustParseVersion("1.2"),
		Capability:             "com.example.Exporter",
		LowestSupportedVersion: values.MustParseVersion("1.0"),
		Dependencies:           []values.Dependency{{Capability: "com.example.Reader", Code: "raw"}},
		Name:                   "CSV export",
	}}

	d, err := entities.NewDescriptor("com.example.CSVExporter", p,
		entities.WithSource("/plugins/csv.zip"), entities.WithEnabled(true))
	require.NoError(t, err)

	assert.Equal(t, "com.example.CSVExporter", d.ClassName())
	assert.Equal(t, "com.example.CSVExporter", d.UniqueID(), "unique id defaults to the class name")
	assert.Equal(t, "csv", d.Code().String())
	assert.Equal(t, "1.2", d.Version().String())
	assert.Equal(t, "/plugins/csv.zip", d.Source())
	assert.True(t, d.IsEnabled())
	assert.False(t, d.IsBuiltIn())
	assert.Equal(t, "CSV export", d.Metadata().Name())
	assert.Len(t, d.Dependencies(), 1)
	assert.Equal(t, "csv com.example.CSVExporter@1.2", d.String())
}

func TestNewDescriptor_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		className string
		plugin    entities.Plugin
	}{
		{"empty class name", "", stubPlugin{info: values.PluginInfo{Code: "x", Capability: "c"}}},
		{"nil plugin", "a.B", nil},
		{"invalid code", "a.B", stubPlugin{info: values.PluginInfo{Code: "", Capability: "c"}}},
		{"missing capability", "a.B", stubPlugin{info: values.PluginInfo{Code: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := entities.NewDescriptor(tt.className, tt.plugin)
			require.ErrorIs(t, err, entities.ErrInvalidDescriptor)
		})
	}
}

func TestNewDescriptor_DefaultCapability(t *testing.T) {
	t.Parallel()

	d, err := entities.NewDescriptor("a.B", stubPlugin{info: values.PluginInfo{Code: "x"}},
		entities.WithDefaultCapability("com.example.Group"))
	require.NoError(t, err)
	assert.Equal(t, values.Capability("com.example.Group"), d.Capability())

	d, err = entities.NewDescriptor("a.B", stubPlugin{info: values.PluginInfo{Code: "x", Capability: "com.example.Own"}},
		entities.WithDefaultCapability("com.example.Group"))
	require.NoError(t, err)
	assert.Equal(t, values.Capability("com.example.Own"), d.Capability())
}

func TestDescriptor_Equals(t *testing.T) {
	t.Parallel()

	a := newDescriptor(t, "acme", "1.0")
	assert.True(t, a.Equals(newDescriptor(t, "acme", "1.0")))
	assert.False(t, a.Equals(newDescriptor(t, "acme", "1.0.0")))
	assert.False(t, a.Equals(newDescriptor(t, "other", "1.0")))
	assert.False(t, a.Equals(nil))
}

func TestDescriptor_DependenciesIsCopy(t *testing.T) {
	t.Parallel()

	d, err := entities.NewDescriptor("a.B", stubPlugin{info: values.PluginInfo{
		Code: "x", Capability: "c",
		Dependencies: []values.Dependency{{Capability: "d", Code: "y"}},
	}})
	require.NoError(t, err)

	deps := d.Dependencies()
	deps[0].Code = "changed"
	assert.Equal(t, "y", d.Dependencies()[0].Code)
}
