package values

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is an ordered tuple of non-negative integers (e.g. 1.2.0).
// Immutable after creation.
type Version struct {
	parts []int
}

// NewVersion creates a version from its components.
// Negative components are rejected.
func NewVersion(parts ...int) (Version, error) {
	for i, p := range parts {
		if p < 0 {
			return Version{}, fmt.Errorf("version component %d is negative: %d", i, p)
		}
	}
	cp := make([]int, len(parts))
	copy(cp, parts)
	return Version{parts: cp}, nil
}

// MustNewVersion creates a Version or panics.
func MustNewVersion(parts ...int) Version {
	v, err := NewVersion(parts...)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseVersion parses a dotted version string ("1.2.0").
// An empty string yields the empty version. A leading "v" is accepted.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return Version{}, nil
	}

	fields := strings.Split(s, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: segment %q is not an integer", s, f)
		}
		if n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: segment %q is negative", s, f)
		}
		parts = append(parts, n)
	}
	return Version{parts: parts}, nil
}

// MustParseVersion parses a version or panics.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Parts returns a copy of the version components.
func (v Version) Parts() []int {
	cp := make([]int, len(v.parts))
	copy(cp, v.parts)
	return cp
}

// Len returns the number of components.
func (v Version) Len() int {
	return len(v.parts)
}

// IsEmpty returns true if the version has no components.
func (v Version) IsEmpty() bool {
	return len(v.parts) == 0
}

// Compare returns -1, 0 or 1.
//
// Components are compared pairwise up to the shorter length and the first
// difference decides. When every compared component is equal the longer
// version is greater, so 1.2 < 1.2.0.
func (v Version) Compare(other Version) int {
	n := min(len(v.parts), len(other.parts))
	for i := range n {
		switch {
		case v.parts[i] < other.parts[i]:
			return -1
		case v.parts[i] > other.parts[i]:
			return 1
		}
	}
	switch {
	case len(v.parts) < len(other.parts):
		return -1
	case len(v.parts) > len(other.parts):
		return 1
	default:
		return 0
	}
}

// Equals reports whether Compare returns 0.
func (v Version) Equals(other Version) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// String returns the dotted representation.
func (v Version) String() string {
	if len(v.parts) == 0 {
		return ""
	}
	s := make([]string, len(v.parts))
	for i, p := range v.parts {
		s[i] = strconv.Itoa(p)
	}
	return strings.Join(s, ".")
}

// Semver converts the version to a semantic version for constraint checks.
// Missing minor and patch components are zero; components past the third
// are dropped.
func (v Version) Semver() *semver.Version {
	var major, minor, patch uint64
	if len(v.parts) > 0 {
		major = uint64(v.parts[0]) //nolint:gosec // components are validated non-negative
	}
	if len(v.parts) > 1 {
		minor = uint64(v.parts[1]) //nolint:gosec // components are validated non-negative
	}
	if len(v.parts) > 2 {
		patch = uint64(v.parts[2]) //nolint:gosec // components are validated non-negative
	}
	return semver.New(major, minor, patch, "", "")
}

// MarshalJSON encodes the version as a dotted string.
func (v Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON accepts either a dotted string or an array of integers.
func (v *Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseVersion(s)
		if err != nil {
			return err
		}
		*v = parsed
		return nil
	}

	var parts []int
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("invalid version JSON %s: expected string or integer array", string(data))
	}
	parsed, err := NewVersion(parts...)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
