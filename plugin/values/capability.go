package values

import (
	"fmt"
	"strings"
)

// Capability identifies the abstract contract a plugin implements, such as
// "com.example.Exporter". Plugins are grouped by capability.
type Capability string

// ParseCapability validates a capability identifier.
// Identifiers are dotted names without whitespace.
func ParseCapability(s string) (Capability, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("capability cannot be empty")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("invalid capability %q: must not contain whitespace", s)
	}
	return Capability(s), nil
}

// String returns the identifier.
func (c Capability) String() string {
	return string(c)
}

// ShortName returns the last dotted segment ("Exporter" for
// "com.example.Exporter").
func (c Capability) ShortName() string {
	s := string(c)
	if idx := strings.LastIndex(s, "."); idx != -1 {
		return s[idx+1:]
	}
	return s
}

// IsEmpty returns true if this is the zero value.
func (c Capability) IsEmpty() bool {
	return c == ""
}

// Dependency names a companion plugin that must be installed and enabled.
type Dependency struct {
	Capability Capability `json:"capability" yaml:"capability"`
	Code       string     `json:"code" yaml:"code"`
	// Constraint is an optional semver constraint such as ">= 1.2".
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// String returns "capability/code constraint".
func (d Dependency) String() string {
	s := fmt.Sprintf("%s/%s", d.Capability, d.Code)
	if d.Constraint != "" {
		s += " " + d.Constraint
	}
	return s
}
