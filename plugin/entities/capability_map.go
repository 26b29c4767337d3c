package entities

import "github.com/reglet-dev/reglet-plugin-registry/plugin/values"

// CapabilityEntry carries the display data of a capability group.
type CapabilityEntry struct {
	Capability values.Capability
	Name       string
	Key        string
}

// DisplayName returns Name, falling back to the capability's short name.
func (e CapabilityEntry) DisplayName() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Capability.ShortName()
}

// CapabilityMap holds capability display entries in registration order.
type CapabilityMap struct {
	order   []values.Capability
	entries map[values.Capability]CapabilityEntry
}

// NewCapabilityMap creates an empty map.
func NewCapabilityMap() *CapabilityMap {
	return &CapabilityMap{entries: make(map[values.Capability]CapabilityEntry)}
}

// Register adds or updates an entry. Empty name or key on update keep the
// previous values.
func (m *CapabilityMap) Register(entry CapabilityEntry) {
	prev, ok := m.entries[entry.Capability]
	if !ok {
		m.order = append(m.order, entry.Capability)
	} else {
		if entry.Name == "" {
			entry.Name = prev.Name
		}
		if entry.Key == "" {
			entry.Key = prev.Key
		}
	}
	m.entries[entry.Capability] = entry
}

// Get returns the entry of a capability. Unknown capabilities get an entry
// with only the capability set.
func (m *CapabilityMap) Get(capability values.Capability) CapabilityEntry {
	if e, ok := m.entries[capability]; ok {
		return e
	}
	return CapabilityEntry{Capability: capability}
}

// All returns every entry in registration order.
func (m *CapabilityMap) All() []CapabilityEntry {
	out := make([]CapabilityEntry, 0, len(m.order))
	for _, c := range m.order {
		out = append(out, m.entries[c])
	}
	return out
}
