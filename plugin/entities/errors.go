package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/reglet-plugin-registry/plugin/values"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrPluginNotFound is returned when a descriptor is not installed.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrUnsupportedVersion is returned when the host is older than the
	// plugin's lowest supported version.
	ErrUnsupportedVersion = errors.New("unsupported host version")

	// ErrHigherVersionInstalled is returned when a newer version of the same
	// plugin is already installed.
	ErrHigherVersionInstalled = errors.New("higher version installed")

	// ErrCodeConflict is returned when another enabled plugin already serves
	// the same capability and code.
	ErrCodeConflict = errors.New("code conflict")

	// ErrDependencyMissing is returned when required plugins are not installed.
	ErrDependencyMissing = errors.New("dependency missing")

	// ErrClassNotFound is returned when no loader source contains a class.
	ErrClassNotFound = errors.New("class not found")

	// ErrInstantiation is returned when a class exists but cannot be created.
	ErrInstantiation = errors.New("plugin instantiation failed")

	// ErrNotAPlugin is returned when a loaded value does not implement Plugin.
	ErrNotAPlugin = errors.New("not a plugin")

	// ErrInvalidDescriptor is returned when plugin info cannot form a descriptor.
	ErrInvalidDescriptor = errors.New("invalid plugin descriptor")

	// ErrBundledDescriptors is returned when the bundled descriptor file
	// cannot be read or parsed. Initialization cannot continue without it.
	ErrBundledDescriptors = errors.New("bundled descriptors failed")
)

// UnsupportedVersionError indicates the host version is below the plugin's
// lowest supported version.
type UnsupportedVersionError struct {
	ClassName string
	Host      values.Version
	Required  values.Version
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("plugin %s requires host version %s, running %s",
		e.ClassName, e.Required, e.Host)
}

// Is implements error matching for errors.Is() checks.
func (e *UnsupportedVersionError) Is(target error) bool {
	return target == ErrUnsupportedVersion
}

// HigherVersionInstalledError indicates an install would downgrade a plugin.
type HigherVersionInstalledError struct {
	UniqueID  string
	Installed values.Version
	Requested values.Version
}

func (e *HigherVersionInstalledError) Error() string {
	return fmt.Sprintf("plugin %s: version %s is installed, refusing %s",
		e.UniqueID, e.Installed, e.Requested)
}

// Is implements error matching for errors.Is() checks.
func (e *HigherVersionInstalledError) Is(target error) bool {
	return target == ErrHigherVersionInstalled
}

// CodeConflictError names the plugin being installed or enabled and the
// enabled plugin it collides with.
type CodeConflictError struct {
	Capability values.Capability
	Code       values.Code
	Requested  string
	Existing   string
}

func (e *CodeConflictError) Error() string {
	return fmt.Sprintf("code conflict on %s/%s: %s collides with enabled %s",
		e.Capability, e.Code, e.Requested, e.Existing)
}

// Is implements error matching for errors.Is() checks.
func (e *CodeConflictError) Is(target error) bool {
	return target == ErrCodeConflict
}

// DependencyMissingError lists the dependencies no enabled plugin satisfies.
type DependencyMissingError struct {
	ClassName string
	Missing   []values.Dependency
}

func (e *DependencyMissingError) Error() string {
	deps := make([]string, len(e.Missing))
	for i, d := range e.Missing {
		deps[i] = d.String()
	}
	return fmt.Sprintf("plugin %s has missing dependencies: %s",
		e.ClassName, strings.Join(deps, ", "))
}

// Is implements error matching for errors.Is() checks.
func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}

// ClassNotFoundError indicates no source provides the class.
type ClassNotFoundError struct {
	ClassName string
}

func (e *ClassNotFoundError) Error() string {
	return fmt.Sprintf("class not found: %s", e.ClassName)
}

// Is implements error matching for errors.Is() checks.
func (e *ClassNotFoundError) Is(target error) bool {
	return target == ErrClassNotFound
}

// InstantiationError wraps the failure raised while creating a plugin.
type InstantiationError struct {
	ClassName string
	Err       error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("cannot instantiate %s: %v", e.ClassName, e.Err)
}

// Is implements error matching for errors.Is() checks.
func (e *InstantiationError) Is(target error) bool {
	return target == ErrInstantiation
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// PluginNotFoundError indicates the descriptor is not in the registry.
type PluginNotFoundError struct {
	Descriptor string
}

func (e *PluginNotFoundError) Error() string {
	return fmt.Sprintf("plugin not found: %s", e.Descriptor)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, entities.ErrPluginNotFound)
func (e *PluginNotFoundError) Is(target error) bool {
	return target == ErrPluginNotFound
}
