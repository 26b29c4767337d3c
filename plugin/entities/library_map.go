package entities

import (
	"slices"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// Library is a tracked plugin source and the descriptors loaded from it.
type Library struct {
	Path        string
	Digest      values.Digest
	Descriptors []*Descriptor
}

// LibraryMap reference-counts plugin sources by path.
// A source is dropped as soon as no descriptor references it.
type LibraryMap struct {
	order []string
	libs  map[string]*Library
}

// NewLibraryMap creates an empty map.
func NewLibraryMap() *LibraryMap {
	return &LibraryMap{libs: make(map[string]*Library)}
}

// Track registers a source. It reports false when already tracked.
func (m *LibraryMap) Track(path string, digest values.Digest) bool {
	if _, ok := m.libs[path]; ok {
		return false
	}
	m.libs[path] = &Library{Path: path, Digest: digest}
	m.order = append(m.order, path)
	return true
}

// IsTracked reports whether the source is registered.
func (m *LibraryMap) IsTracked(path string) bool {
	_, ok := m.libs[path]
	return ok
}

// Reference records that d was loaded from its source.
// Untracked sources are tracked with a zero digest.
func (m *LibraryMap) Reference(d *Descriptor) {
	if d.source == "" {
		return
	}
	m.Track(d.source, values.Digest{})
	lib := m.libs[d.source]
	if !slices.Contains(lib.Descriptors, d) {
		lib.Descriptors = append(lib.Descriptors, d)
	}
}

// Release removes d from its source and reports whether the source was
// dropped because nothing references it anymore.
func (m *LibraryMap) Release(d *Descriptor) bool {
	lib, ok := m.libs[d.source]
	if !ok {
		return false
	}
	lib.Descriptors = slices.DeleteFunc(lib.Descriptors, func(x *Descriptor) bool { return x == d })
	if len(lib.Descriptors) > 0 {
		return false
	}
	m.Drop(d.source)
	return true
}

// Drop forgets a source regardless of references.
func (m *LibraryMap) Drop(path string) {
	delete(m.libs, path)
	m.order = slices.DeleteFunc(m.order, func(p string) bool { return p == path })
}

// Get returns a copy of the library entry.
func (m *LibraryMap) Get(path string) (Library, bool) {
	lib, ok := m.libs[path]
	if !ok {
		return Library{}, false
	}
	return Library{Path: lib.Path, Digest: lib.Digest, Descriptors: slices.Clone(lib.Descriptors)}, true
}

// All returns copies of every tracked library in tracking order.
func (m *LibraryMap) All() []Library {
	out := make([]Library, 0, len(m.order))
	for _, path := range m.order {
		lib, _ := m.Get(path)
		out = append(out, lib)
	}
	return out
}
