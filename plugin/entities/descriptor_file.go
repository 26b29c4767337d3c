package entities

import (
	"errors"
	"fmt"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// DescriptorFile is the in-memory form of a plugin descriptor file.
// Groups declare the plugins implementing one capability.
type DescriptorFile struct {
	Groups []*PluginGroup `yaml:"groups" json:"groups"`
}

// PluginGroup lists the plugins of one capability.
type PluginGroup struct {
	Name       string            `yaml:"name,omitempty" json:"name,omitempty"`
	Capability values.Capability `yaml:"capability" json:"capability"`
	Key        string            `yaml:"key,omitempty" json:"key,omitempty"`
	Source     string            `yaml:"source,omitempty" json:"source,omitempty"`
	Plugins    []*PluginEntry    `yaml:"plugins" json:"plugins"`
}

// PluginEntry declares a single plugin class.
type PluginEntry struct {
	ClassName string `yaml:"class" json:"class"`
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Source    string `yaml:"source,omitempty" json:"source,omitempty"`
}

// NewDescriptorFile creates an empty descriptor file.
func NewDescriptorFile() *DescriptorFile {
	return &DescriptorFile{}
}

// AddGroup appends a group, or returns the existing group of the same
// capability.
func (f *DescriptorFile) AddGroup(entry CapabilityEntry) *PluginGroup {
	if g := f.Group(entry.Capability); g != nil {
		return g
	}
	g := &PluginGroup{Name: entry.Name, Capability: entry.Capability, Key: entry.Key}
	f.Groups = append(f.Groups, g)
	return g
}

// Group returns the group of a capability, or nil.
func (f *DescriptorFile) Group(capability values.Capability) *PluginGroup {
	for _, g := range f.Groups {
		if g.Capability == capability {
			return g
		}
	}
	return nil
}

// AddPlugin appends an entry to the group.
func (g *PluginGroup) AddPlugin(className string, enabled bool, source string) {
	g.Plugins = append(g.Plugins, &PluginEntry{ClassName: className, Enabled: enabled, Source: source})
}

// EffectiveSource returns the entry source, falling back to the group's.
func (g *PluginGroup) EffectiveSource(e *PluginEntry) string {
	if e.Source != "" {
		return e.Source
	}
	return g.Source
}

// PluginCount returns the number of entries across all groups.
func (f *DescriptorFile) PluginCount() int {
	n := 0
	for _, g := range f.Groups {
		n += len(g.Plugins)
	}
	return n
}

// Validate checks that every group names a capability and every entry a
// class.
func (f *DescriptorFile) Validate() error {
	var errs []error
	for i, g := range f.Groups {
		if g == nil {
			errs = append(errs, fmt.Errorf("group %d is empty", i))
			continue
		}
		if g.Capability.IsEmpty() {
			errs = append(errs, fmt.Errorf("group %d (%s): capability is required", i, g.Name))
		}
		for j, e := range g.Plugins {
			if e == nil || e.ClassName == "" {
				errs = append(errs, fmt.Errorf("group %d entry %d: class name is required", i, j))
			}
		}
	}
	return errors.Join(errs...)
}
