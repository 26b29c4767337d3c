package values

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code identifies the functionality a plugin provides (e.g. "csv").
// Several plugins may share a code; they are alternative providers of the
// same feature. Enforces non-empty, trimmed codes.
type Code struct {
	value string
}

// NewCode creates a Code with strict validation.
// A valid code must:
// - Be non-empty
// - contain only alphanumeric characters, underscores, hyphens and dots
// - NOT contain path separators or parent directory references
// - Be at most 64 characters long
func NewCode(code string) (Code, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Code{}, fmt.Errorf("plugin code cannot be empty")
	}

	if len(code) > 64 {
		return Code{}, fmt.Errorf("plugin code too long (max 64 chars)")
	}

	if strings.ContainsAny(code, `/\`) {
		return Code{}, fmt.Errorf("plugin code cannot contain path separators")
	}

	if strings.Contains(code, "..") {
		return Code{}, fmt.Errorf("plugin code cannot contain parent directory references")
	}

	for _, ch := range code {
		if !isValidCodeChar(ch) {
			return Code{}, fmt.Errorf("invalid plugin code %q: must contain only alphanumeric characters, underscores, hyphens and dots", code)
		}
	}

	return Code{value: code}, nil
}

func isValidCodeChar(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' ||
		r == '-' ||
		r == '.'
}

// MustNewCode creates a Code or panics
func MustNewCode(code string) Code {
	c, err := NewCode(code)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns the string representation
func (c Code) String() string {
	return c.value
}

// IsEmpty returns true if this is the zero value
func (c Code) IsEmpty() bool {
	return c.value == ""
}

// Equals checks if two codes are equal
func (c Code) Equals(other Code) bool {
	return c.value == other.value
}

// MarshalJSON implements json.Marshaler.
func (c Code) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Code) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid plugin code JSON: %w", err)
	}

	code, err := NewCode(s)
	if err != nil {
		return err
	}
	*c = code
	return nil
}
