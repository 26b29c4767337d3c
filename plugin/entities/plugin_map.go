package entities

import (
	"slices"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

type codeBuckets struct {
	order   []values.Code
	buckets map[values.Code][]*Descriptor
}

// PluginMap indexes descriptors by capability, then code.
// Capabilities and codes iterate in first-insertion order; each bucket keeps
// installation order. PluginMap is not safe for concurrent use.
type PluginMap struct {
	order []values.Capability
	caps  map[values.Capability]*codeBuckets
}

// NewPluginMap creates an empty map.
func NewPluginMap() *PluginMap {
	return &PluginMap{caps: make(map[values.Capability]*codeBuckets)}
}

// Add appends d to its (capability, code) bucket.
func (m *PluginMap) Add(d *Descriptor) {
	cb, ok := m.caps[d.capability]
	if !ok {
		cb = &codeBuckets{buckets: make(map[values.Code][]*Descriptor)}
		m.caps[d.capability] = cb
		m.order = append(m.order, d.capability)
	}
	if _, ok := cb.buckets[d.code]; !ok {
		cb.order = append(cb.order, d.code)
	}
	cb.buckets[d.code] = append(cb.buckets[d.code], d)
}

// Remove deletes exactly d (pointer identity) from its bucket.
// Empty buckets and capabilities are dropped.
func (m *PluginMap) Remove(d *Descriptor) bool {
	cb, ok := m.caps[d.capability]
	if !ok {
		return false
	}
	bucket := cb.buckets[d.code]
	i := slices.Index(bucket, d)
	if i < 0 {
		return false
	}

	bucket = slices.Delete(bucket, i, i+1)
	if len(bucket) > 0 {
		cb.buckets[d.code] = bucket
		return true
	}

	delete(cb.buckets, d.code)
	cb.order = slices.DeleteFunc(cb.order, func(c values.Code) bool { return c.Equals(d.code) })
	if len(cb.order) == 0 {
		delete(m.caps, d.capability)
		m.order = slices.DeleteFunc(m.order, func(c values.Capability) bool { return c == d.capability })
	}
	return true
}

// Find returns the installed descriptor matching d: d itself when it is
// stored, otherwise the first with the same unique id and version.
func (m *PluginMap) Find(d *Descriptor) *Descriptor {
	if d == nil {
		return nil
	}
	bucket := m.bucket(d.capability, d.code)
	if slices.Contains(bucket, d) {
		return d
	}
	for _, existing := range bucket {
		if existing.Equals(d) {
			return existing
		}
	}
	return nil
}

// Bucket returns a copy of the (capability, code) bucket.
func (m *PluginMap) Bucket(capability values.Capability, code values.Code) []*Descriptor {
	return slices.Clone(m.bucket(capability, code))
}

func (m *PluginMap) bucket(capability values.Capability, code values.Code) []*Descriptor {
	cb, ok := m.caps[capability]
	if !ok {
		return nil
	}
	return cb.buckets[code]
}

// ByCapability returns every descriptor of a capability in code order.
func (m *PluginMap) ByCapability(capability values.Capability) []*Descriptor {
	cb, ok := m.caps[capability]
	if !ok {
		return nil
	}
	var out []*Descriptor
	for _, code := range cb.order {
		out = append(out, cb.buckets[code]...)
	}
	return out
}

// All flattens the map in capability, code and bucket order.
func (m *PluginMap) All() []*Descriptor {
	var out []*Descriptor
	for _, capability := range m.order {
		out = append(out, m.ByCapability(capability)...)
	}
	return out
}

// Capabilities returns the capabilities with at least one descriptor.
func (m *PluginMap) Capabilities() []values.Capability {
	return slices.Clone(m.order)
}

// Len returns the total number of descriptors.
func (m *PluginMap) Len() int {
	n := 0
	for _, cb := range m.caps {
		for _, bucket := range cb.buckets {
			n += len(bucket)
		}
	}
	return n
}

// SetEnabled flips the enabled flag and reports whether it changed.
func (m *PluginMap) SetEnabled(d *Descriptor, enabled bool) bool {
	return d.setEnabled(enabled)
}

// Enabled returns the enabled descriptors of a bucket.
func (m *PluginMap) Enabled(capability values.Capability, code values.Code) []*Descriptor {
	var out []*Descriptor
	for _, d := range m.bucket(capability, code) {
		if d.enabled.Load() {
			out = append(out, d)
		}
	}
	return out
}

// LastBuiltIn returns the most recently installed built-in descriptor of a
// bucket other than exclude, or nil.
func (m *PluginMap) LastBuiltIn(capability values.Capability, code values.Code, exclude *Descriptor) *Descriptor {
	bucket := m.bucket(capability, code)
	for i := len(bucket) - 1; i >= 0; i-- {
		if bucket[i].builtIn && bucket[i] != exclude {
			return bucket[i]
		}
	}
	return nil
}
