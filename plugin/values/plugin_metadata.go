package values

import "time"

// PluginMetadata contains descriptive information about a plugin.
// Display-only; none of it takes part in registry invariants.
type PluginMetadata struct {
	name            string
	description     string
	vendor          string
	supportContact  string
	releaseDate     time.Time
	restartRequired bool
}

// MetadataOption configures PluginMetadata.
type MetadataOption func(*PluginMetadata)

// WithVendor sets the vendor name.
func WithVendor(vendor string) MetadataOption {
	return func(m *PluginMetadata) { m.vendor = vendor }
}

// WithSupportContact sets the support contact (mail address or URL).
func WithSupportContact(contact string) MetadataOption {
	return func(m *PluginMetadata) { m.supportContact = contact }
}

// WithReleaseDate sets the release date.
func WithReleaseDate(date time.Time) MetadataOption {
	return func(m *PluginMetadata) { m.releaseDate = date }
}

// WithRestartRequired marks the plugin as needing a host restart after install.
func WithRestartRequired(required bool) MetadataOption {
	return func(m *PluginMetadata) { m.restartRequired = required }
}

// NewPluginMetadata creates plugin metadata.
func NewPluginMetadata(name, description string, opts ...MetadataOption) PluginMetadata {
	m := PluginMetadata{
		name:        name,
		description: description,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Name returns the display name.
func (m PluginMetadata) Name() string {
	return m.name
}

// Description returns human-readable description.
func (m PluginMetadata) Description() string {
	return m.description
}

// Vendor returns the vendor name.
func (m PluginMetadata) Vendor() string {
	return m.vendor
}

// SupportContact returns the support contact.
func (m PluginMetadata) SupportContact() string {
	return m.supportContact
}

// ReleaseDate returns the release date, zero if unknown.
func (m PluginMetadata) ReleaseDate() time.Time {
	return m.releaseDate
}

// RestartRequired reports whether the host must restart after install.
func (m PluginMetadata) RestartRequired() bool {
	return m.restartRequired
}
