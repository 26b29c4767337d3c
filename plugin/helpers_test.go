package plugin_test

import (
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/reglet-dev/reglet-plugin-registry/plugin"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

const (
	exporter values.Capability = "com.example.Exporter"
	reader   values.Capability = "com.example.Reader"

	bundledPath  = "defaults/plugins.xml"
	overridePath = "/home/user/.reglet/plugins/plugins.xml"
)

var hostVersion = values.MustParseVersion("2.0")

func info(code, uniqueID, version string) values.PluginInfo {
	return values.PluginInfo{
		Code:       code,
		UniqueID:   uniqueID,
		Version:    values.MustParseVersion(version),
		Capability: exporter,
	}
}

func newManager(t *testing.T, ld *plugin.MockLoader, opts ...plugin.Option) *plugin.Manager {
	t.Helper()
	base := []plugin.Option{
		plugin.WithLogger(plugin.NewTestLogger()),
		plugin.WithHostVersion(hostVersion),
		plugin.WithRepository(plugin.NewMockRepository()),
	}
	return plugin.NewManager(ld, append(base, opts...)...)
}

type bundledEntry struct {
	class   string
	enabled bool
}

// bundledFS returns a file system holding an XML descriptor file with one
// Exporter group.
func bundledFS(entries ...bundledEntry) fstest.MapFS {
	var b strings.Builder
	b.WriteString(`<application><plugingroup name="Exporters" interface="com.example.Exporter" key="group.exporters">`)
	for _, e := range entries {
		fmt.Fprintf(&b, `<plugin enabled="%t">%s</plugin>`, e.enabled, e.class)
	}
	b.WriteString(`</plugingroup></application>`)
	return fstest.MapFS{bundledPath: {Data: []byte(b.String())}}
}

func eventTypes(events []plugin.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Type.String() + " " + e.Descriptor.ClassName()
	}
	return out
}

func classNames(ds []*entities.Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ClassName()
	}
	return out
}
