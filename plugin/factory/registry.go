// Package factory maps class names to constructors for plugins compiled into
// the host binary.
package factory

import (
	"fmt"
	"slices"
	"sync"
)

// Factory creates a new instance of a class. The loader checks the result
// implements entities.Plugin.
type Factory func() any

// Registry holds factories by fully qualified class name.
// It is safe for concurrent use.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for a class name.
func (r *Registry) Register(className string, f Factory) error {
	if className == "" {
		return fmt.Errorf("class name cannot be empty")
	}
	if f == nil {
		return fmt.Errorf("factory for %s is nil", className)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[className]; exists {
		return fmt.Errorf("class already registered: %s", className)
	}
	r.factories[className] = f
	return nil
}

// MustRegister is like Register but panics on error.
// Meant for package init blocks.
func (r *Registry) MustRegister(className string, f Factory) {
	if err := r.Register(className, f); err != nil {
		panic(err)
	}
}

// Lookup returns the factory of a class.
func (r *Registry) Lookup(className string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[className]
	return f, ok
}

// ClassNames returns the registered names, sorted.
func (r *Registry) ClassNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
