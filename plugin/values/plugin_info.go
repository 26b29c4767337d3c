package values

import "time"

// PluginInfo is the metadata a plugin reports about itself when it is
// instantiated. Wasm plugins return it as JSON.
type PluginInfo struct {
	Code       string     `json:"code"`
	UniqueID   string     `json:"unique_id,omitempty"`
	Version    Version    `json:"version"`
	Capability Capability `json:"capability"`

	// LowestSupportedVersion is the minimum host version the plugin runs on.
	LowestSupportedVersion Version `json:"lowest_supported_version"`

	Dependencies []Dependency `json:"dependencies,omitempty"`

	// LibraryProvider marks plugins whose source must be exposed on the
	// library path for dependent tooling.
	LibraryProvider bool `json:"library_provider,omitempty"`

	Name            string    `json:"name,omitempty"`
	Description     string    `json:"description,omitempty"`
	Vendor          string    `json:"vendor,omitempty"`
	SupportContact  string    `json:"support_contact,omitempty"`
	ReleaseDate     time.Time `json:"release_date,omitzero"`
	RestartRequired bool      `json:"restart_required,omitempty"`
}

// Metadata returns the display metadata part of the info.
func (i PluginInfo) Metadata() PluginMetadata {
	return NewPluginMetadata(i.Name, i.Description,
		WithVendor(i.Vendor),
		WithSupportContact(i.SupportContact),
		WithReleaseDate(i.ReleaseDate),
		WithRestartRequired(i.RestartRequired),
	)
}
