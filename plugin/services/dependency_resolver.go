package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// DependencyResolver checks plugin dependencies against installed plugins
// using Masterminds/semver constraints.
type DependencyResolver struct{}

// NewDependencyResolver creates a new DependencyResolver.
func NewDependencyResolver() *DependencyResolver {
	return &DependencyResolver{}
}

// Missing returns the dependencies of d that no enabled installed plugin
// satisfies. Plugins implementing entities.DependencyChecker add their own.
func (r *DependencyResolver) Missing(ctx context.Context, d *entities.Descriptor, installed entities.InstalledLookup) ([]values.Dependency, error) {
	var missing []values.Dependency
	for _, dep := range d.Dependencies() {
		ok, err := r.Satisfied(dep, installed)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", d.ClassName(), err)
		}
		if !ok {
			missing = append(missing, dep)
		}
	}

	if checker, ok := d.Plugin().(entities.DependencyChecker); ok {
		missing = append(missing, checker.MissingDependencies(ctx, installed)...)
	}
	return missing, nil
}

// Satisfied reports whether an enabled plugin matches the dependency.
func (r *DependencyResolver) Satisfied(dep values.Dependency, installed entities.InstalledLookup) (bool, error) {
	c, err := parseConstraint(dep.Constraint)
	if err != nil {
		return false, err
	}
	for _, candidate := range installed.ListByCapabilityAndCode(dep.Capability, dep.Code, false) {
		if c == nil || c.Check(candidate.Version().Semver()) {
			return true, nil
		}
	}
	return false, nil
}

// parseConstraint returns nil for "" and "latest", which accept anything.
func parseConstraint(constraint string) (*semver.Constraints, error) {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" || constraint == "latest" {
		return nil, nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return c, nil
}
