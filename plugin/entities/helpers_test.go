package entities_test

import (
	"testing"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
	"github.com/stretchr/testify/require"
)

type stubPlugin struct {
	info values.PluginInfo
}

func (p stubPlugin) Info() values.PluginInfo { return p.info }

func newDescriptor(t *testing.T, uniqueID, version string, opts ...entities.DescriptorOption) *entities.Descriptor {
	t.Helper()
	d, err := entities.NewDescriptor("com.example."+uniqueID, stubPlugin{info: values.PluginInfo{
		Code:       "csv",
		UniqueID:   uniqueID,
		Version:    values.MustParseVersion(version),
		Capability: "com.example.Exporter",
	}}, opts...)
	require.NoError(t, err)
	return d
}
