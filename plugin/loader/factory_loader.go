package loader

import (
	"context"
	"fmt"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/factory"
)

// FactoryLoader instantiates classes compiled into the host.
type FactoryLoader struct {
	BaseLoader
	registry *factory.Registry
}

// NewFactoryLoader creates a loader backed by a factory registry.
func NewFactoryLoader(registry *factory.Registry) *FactoryLoader {
	return &FactoryLoader{registry: registry}
}

// Load creates the class from its factory, otherwise delegates to next.
// Classes compiled into the host win over every source.
func (l *FactoryLoader) Load(ctx context.Context, source, className string) (entities.Plugin, error) {
	f, ok := l.registry.Lookup(className)
	if !ok {
		return l.LoadNext(ctx, source, className)
	}

	v, err := instantiate(className, f)
	if err != nil {
		return nil, err
	}
	p, ok := v.(entities.Plugin)
	if !ok {
		return nil, fmt.Errorf("%s (%T): %w", className, v, entities.ErrNotAPlugin)
	}
	return p, nil
}

func instantiate(className string, f factory.Factory) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &entities.InstantiationError{ClassName: className, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	v = f()
	if v == nil {
		return nil, &entities.InstantiationError{ClassName: className, Err: fmt.Errorf("factory returned nil")}
	}
	return v, nil
}
