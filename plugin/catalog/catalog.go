// Package catalog resolves i18n keys of plugin groups to display text.
package catalog

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog implements ports.MessageCatalog over a flat key/text map.
type Catalog struct {
	messages map[string]string
}

// New creates a catalog from key/text pairs.
func New(messages map[string]string) *Catalog {
	return &Catalog{messages: maps.Clone(messages)}
}

// Parse reads a YAML catalog. Nested mappings are flattened with dots, so
//
//	group:
//	  exporters: Exporters
//
// defines the key "group.exporters".
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding message catalog: %w", err)
	}

	c := &Catalog{messages: make(map[string]string)}
	if err := c.flatten("", raw); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads a YAML catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read message catalog %q: %w", path, err)
	}
	return Parse(data)
}

func (c *Catalog) flatten(prefix string, node map[string]any) error {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]any:
			if err := c.flatten(key, val); err != nil {
				return err
			}
		case string:
			c.messages[key] = val
		case nil:
		default:
			c.messages[key] = fmt.Sprint(val)
		}
	}
	return nil
}

// Lookup returns the text of a key.
func (c *Catalog) Lookup(key string) (string, bool) {
	s, ok := c.messages[key]
	return s, ok
}

// Len returns the number of messages.
func (c *Catalog) Len() int {
	return len(c.messages)
}
