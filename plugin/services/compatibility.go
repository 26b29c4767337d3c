// Package services contains the domain services used by the plugin manager.
package services

import (
	"github.com/reglet-dev/reglet-plugin-registry/plugin/entities"
	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// CompatibilityChecker verifies plugins against the running host version.
type CompatibilityChecker struct {
	host values.Version
}

// NewCompatibilityChecker creates a checker for the given host version.
func NewCompatibilityChecker(host values.Version) *CompatibilityChecker {
	return &CompatibilityChecker{host: host}
}

// HostVersion returns the version plugins are checked against.
func (c *CompatibilityChecker) HostVersion() values.Version {
	return c.host
}

// Check fails with UnsupportedVersionError when the host is older than the
// plugin's lowest supported version.
func (c *CompatibilityChecker) Check(d *entities.Descriptor) error {
	if c.host.Compare(d.LowestSupportedVersion()) < 0 {
		return &entities.UnsupportedVersionError{
			ClassName: d.ClassName(),
			Host:      c.host,
			Required:  d.LowestSupportedVersion(),
		}
	}
	return nil
}
