package loader

import (
	"errors"
	"slices"
	"sync"
)

// SearchPath is the ordered list of opened sources.
// It is safe for concurrent use.
type SearchPath struct {
	sources []*Source
	mu      sync.RWMutex

	// MaxEntrySize bounds ReadFile. Zero means DefaultMaxEntrySize.
	MaxEntrySize int64
}

// Add opens and appends a source. Adding a path twice is a no-op.
func (sp *SearchPath) Add(path string) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.indexLocked(path) >= 0 {
		return nil
	}
	src, err := OpenSource(path)
	if err != nil {
		return err
	}
	sp.sources = append(sp.sources, src)
	return nil
}

// Remove closes and drops a source.
func (sp *SearchPath) Remove(path string) error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	i := sp.indexLocked(path)
	if i < 0 {
		return nil
	}
	src := sp.sources[i]
	sp.sources = slices.Delete(sp.sources, i, i+1)
	return src.Close()
}

// Get returns the source opened for path.
func (sp *SearchPath) Get(path string) (*Source, bool) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	i := sp.indexLocked(path)
	if i < 0 {
		return nil, false
	}
	return sp.sources[i], true
}

// Paths returns the search path in order.
func (sp *SearchPath) Paths() []string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	out := make([]string, len(sp.sources))
	for i, s := range sp.sources {
		out[i] = s.Path
	}
	return out
}

func (sp *SearchPath) limit() int64 {
	if sp.MaxEntrySize == 0 {
		return DefaultMaxEntrySize
	}
	return sp.MaxEntrySize
}

// ReadFile returns the entry from the first source that has it.
func (sp *SearchPath) ReadFile(name string) ([]byte, string, bool, error) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	for _, src := range sp.sources {
		data, ok, err := src.ReadFile(name, sp.limit())
		if err != nil {
			return nil, "", false, err
		}
		if ok {
			return data, src.Path, true, nil
		}
	}
	return nil, "", false, nil
}

// ReadFileFrom reads the entry from one source only. It reports false when
// the source is not on the search path or lacks the entry.
func (sp *SearchPath) ReadFileFrom(source, name string) ([]byte, bool, error) {
	sp.mu.RLock()
	defer sp.mu.RUnlock()

	i := sp.indexLocked(source)
	if i < 0 {
		return nil, false, nil
	}
	return sp.sources[i].ReadFile(name, sp.limit())
}

// Close closes every source.
func (sp *SearchPath) Close() error {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	var errs []error
	for _, src := range sp.sources {
		errs = append(errs, src.Close())
	}
	sp.sources = nil
	return errors.Join(errs...)
}

func (sp *SearchPath) indexLocked(path string) int {
	return slices.IndexFunc(sp.sources, func(s *Source) bool { return s.Path == path })
}
