package filesystem

import (
	"bytes"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// DescriptorDocument represents the YAML structure of a descriptor file.
type DescriptorDocument struct {
	Groups []GroupDocument `yaml:"groups"`
}

// GroupDocument represents a plugin group in YAML.
type GroupDocument struct {
	Name       string          `yaml:"name,omitempty"`
	Capability string          `yaml:"capability"`
	Key        string          `yaml:"key,omitempty"`
	Source     string          `yaml:"source,omitempty"`
	Plugins    []EntryDocument `yaml:"plugins"`
}

// EntryDocument represents a plugin entry in YAML.
// A missing enabled flag means enabled.
type EntryDocument struct {
	Class   string `yaml:"class"`
	Enabled *bool  `yaml:"enabled,omitempty"`
	Source  string `yaml:"source,omitempty"`
}

// ToEntity converts the document to a domain entity.
func (d *DescriptorDocument) ToEntity() *entities.DescriptorFile {
	file := entities.NewDescriptorFile()
	for _, g := range d.Groups {
		group := &entities.PluginGroup{
			Name:       g.Name,
			Capability: values.Capability(g.Capability),
			Key:        g.Key,
			Source:     g.Source,
		}
		for _, e := range g.Plugins {
			group.Plugins = append(group.Plugins, &entities.PluginEntry{
				ClassName: e.Class,
				Enabled:   e.Enabled == nil || *e.Enabled,
				Source:    e.Source,
			})
		}
		file.Groups = append(file.Groups, group)
	}
	return file
}

// FromEntity converts a domain descriptor file to YAML representation.
func FromEntity(file *entities.DescriptorFile) *DescriptorDocument {
	if file == nil {
		return nil
	}

	doc := &DescriptorDocument{Groups: make([]GroupDocument, 0, len(file.Groups))}
	for _, g := range file.Groups {
		group := GroupDocument{
			Name:       g.Name,
			Capability: g.Capability.String(),
			Key:        g.Key,
			Source:     g.Source,
			Plugins:    make([]EntryDocument, 0, len(g.Plugins)),
		}
		for _, e := range g.Plugins {
			enabled := e.Enabled
			group.Plugins = append(group.Plugins, EntryDocument{Class: e.ClassName, Enabled: &enabled, Source: e.Source})
		}
		doc.Groups = append(doc.Groups, group)
	}
	return doc
}

// YAMLCodec encodes descriptor files as YAML.
type YAMLCodec struct{}

// Decode parses a YAML descriptor file. An empty document has no groups.
func (YAMLCodec) Decode(r io.Reader) (*entities.DescriptorFile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading descriptor YAML: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return entities.NewDescriptorFile(), nil
	}

	var doc DescriptorDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding descriptor YAML: %w", err)
	}
	return doc.ToEntity(), nil
}

// Encode writes the descriptor file as YAML.
func (YAMLCodec) Encode(w io.Writer, file *entities.DescriptorFile) error {
	encoder := yaml.NewEncoder(w)
	if err := encoder.Encode(FromEntity(file)); err != nil {
		return fmt.Errorf("encoding descriptor YAML: %w", err)
	}
	return encoder.Close()
}
